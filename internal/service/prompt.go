package service

import (
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc"

	"landmarks/internal/config"
	"landmarks/internal/domain"
)

var researchInstructions = heredoc.Doc(`
	You are tasked with creating an educational research report about NYC landmarks.
	Focus on providing accurate, well-structured information based on the provided context.
	Cite relevant passages when appropriate using [Source: Name, Page: X] format.
`)

var conversationInstructions = heredoc.Doc(`
	You must build on the previous conversation and provide a coherent continuation.
	Focus on answering the new query while maintaining context from the previous exchanges.
`)

// researchTemplate args: query, instructions, context.
const researchTemplate = `
	You are an expert on New York City landmarks and architecture, tasked with creating a detailed research report
	based on the following query: "%[1]s"

	%[2]s
	CONTEXT INFORMATION:
	%[3]s

	USER QUERY: %[1]s

	Your response should be a well-structured, educational research report that:
	1. Directly addresses the query with accurate information
	2. Synthesizes information from multiple sources
	3. Highlights architectural, historical, and cultural significance
	4. Cites relevant passages when appropriate
	5. Is formatted in clear paragraphs with appropriate headings
	6. Uses a professional, educational tone suitable for a heritage organization

	Respond with a comprehensive research report formatted in markdown.
`

// conversationTemplate args: history, context, query.
const conversationTemplate = `
	You are an expert on New York City landmarks and architecture, engaged in a conversation about NYC
	landmarks. Your goal is to provide informative, accurate responses based on the available information.

	CONVERSATION HISTORY:
	%[1]s

	CONTEXT INFORMATION:
	%[2]s

	NEW USER QUERY: %[3]s

	Your response should:
	1. Directly address the user's new query
	2. Build upon information from the previous conversation when relevant
	3. Provide new information and insights, not just repeat previous responses
	4. Cite relevant passages when appropriate
	5. Be formatted in clear paragraphs suitable for conversation
	6. Maintain a helpful, professional tone

	Respond with a comprehensive answer formatted in markdown.
`

// RenderPrompt builds the generation request. The continuation template is used
// exactly when the context carries conversation history.
func RenderPrompt(rc domain.ResearchContext, cfg config.ResearchConfig) domain.Prompt {
	history := FormatHistory(rc.History)
	contextText := FormatContext(rc, history)

	p := domain.Prompt{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}
	if len(rc.History) > 0 {
		p.System = conversationInstructions
		p.User = heredoc.Docf(conversationTemplate, history, contextText, rc.Query)
		return p
	}
	p.User = heredoc.Docf(researchTemplate, rc.Query, researchInstructions, contextText)
	return p
}

// FormatContext renders the landmark block, the numbered passages and the history.
func FormatContext(rc domain.ResearchContext, history string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(FormatLandmark(rc.Landmark))
	b.WriteString("\nRELEVANT PASSAGES:\n")
	b.WriteString(FormatPassages(rc.Passages))
	b.WriteString("\n")
	b.WriteString(history)
	b.WriteString("\n")
	return b.String()
}

// FormatLandmark renders the landmark information block, or "" without a landmark.
func FormatLandmark(d *domain.LandmarkDetail) string {
	if d == nil {
		return ""
	}
	designated := "Unknown"
	if !d.Designation.DesignationDate.IsZero() {
		designated = d.Designation.DesignationDate.Format("2006-01-02")
	}
	return fmt.Sprintf("\nLANDMARK INFORMATION:\nID: %s\nName: %s\nBorough: %s\nDesignation Date: %s\n",
		d.LPCID, d.Name, d.Location.Borough, designated)
}

// FormatPassages numbers passages from 1 and annotates each with title, page and score.
func FormatPassages(passages []domain.SourcePassage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		title := p.SourceTitle
		if title == "" {
			title = "Unknown"
		}
		page := "N/A"
		if p.PageNumber != nil {
			page = fmt.Sprint(*p.PageNumber)
		}
		parts[i] = fmt.Sprintf("PASSAGE %d [Source: %s, Page: %s, Relevance: %.2f]:\n%s",
			i+1, title, page, p.RelevanceScore, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// FormatHistory serialises prior turns as numbered query/response pairs.
func FormatHistory(history []domain.HistoryTurn) string {
	items := make([]string, 0, 2*len(history))
	for i, h := range history {
		items = append(items,
			fmt.Sprintf("USER QUERY %d: %s", i+1, h.Query),
			fmt.Sprintf("ASSISTANT RESPONSE %d: %s", i+1, h.Response))
	}
	return strings.Join(items, "\n\n")
}
