package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"landmarks/internal/domain"
)

// ResearchPort is the TUI-facing subset of the research service.
type ResearchPort interface {
	GenerateReport(ctx context.Context, req domain.ResearchRequest) (*domain.ResearchResponse, error)
	DeleteConversation(ctx context.Context, conversationID string) bool
}

type reportMsg struct {
	resp *domain.ResearchResponse
	err  error
}

// Model is the Bubble Tea model for the research chat.
type Model struct {
	service        ResearchPort
	timeout        time.Duration
	style          string
	renderer       *glamour.TermRenderer
	input          textinput.Model
	viewport       viewport.Model
	turns          []domain.ResearchResponse
	cursor         int
	conversationID string
	landmarkID     string
	summary        string
	status         string
	busy           bool
	ready          bool
}

// New creates a chat model. style is a glamour standard style name such as
// "auto", "dark" or "notty"; summary is shown under the header.
func New(service ResearchPort, summary, style string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about a NYC landmark (/landmark LP-00004, /new, /help)"
	ti.Focus()
	ti.CharLimit = 1000
	if style == "" {
		style = "auto"
	}
	return Model{
		service:  service,
		timeout:  timeout,
		style:    style,
		input:    ti,
		viewport: viewport.New(0, 0),
		summary:  summary,
		status:   "Ready. Type a question and press Enter.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and report events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		if r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(max(20, msg.Width-6)),
		); err == nil {
			m.renderer = r
		}
		m.viewport.SetContent(m.renderCurrentTurn())
		return m, nil

	case reportMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.conversationID = msg.resp.ConversationID
		m.turns = append(m.turns, *msg.resp)
		m.cursor = len(m.turns) - 1
		m.status = fmt.Sprintf("Turn %d of conversation %s", len(m.turns), shortID(m.conversationID))
		m.viewport.SetContent(m.renderCurrentTurn())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			if strings.HasPrefix(line, "/") {
				return m.command(line)
			}
			return m.ask(line)
		case "pgdown":
			if len(m.turns) > 0 {
				m.cursor = (m.cursor + 1) % len(m.turns)
				m.viewport.SetContent(m.renderCurrentTurn())
				return m, nil
			}
		case "pgup":
			if len(m.turns) > 0 {
				m.cursor = (m.cursor - 1 + len(m.turns)) % len(m.turns)
				m.viewport.SetContent(m.renderCurrentTurn())
				return m, nil
			}
		case "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(query string) (tea.Model, tea.Cmd) {
	if len(query) < 5 {
		m.status = "Questions must be at least 5 characters."
		return m, nil
	}
	m.busy = true
	m.status = "Researching..."
	req := domain.ResearchRequest{Query: query, ConversationID: m.conversationID, LandmarkID: m.landmarkID}
	service, timeout := m.service, m.timeout
	return m, func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		resp, err := service.GenerateReport(ctx, req)
		return reportMsg{resp: resp, err: err}
	}
}

func (m Model) command(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/landmark":
		if len(fields) < 2 {
			m.landmarkID = ""
			m.status = "Landmark focus cleared."
			return m, nil
		}
		id := strings.ToUpper(fields[1])
		if !domain.IsLandmarkID(id) {
			m.status = fmt.Sprintf("%q is not a landmark id (expected LP-00000).", fields[1])
			return m, nil
		}
		m.landmarkID = id
		m.status = "Focused on " + id + "."
	case "/new":
		if m.conversationID != "" {
			m.service.DeleteConversation(context.Background(), m.conversationID)
		}
		m.conversationID = ""
		m.turns = nil
		m.cursor = 0
		m.status = "Started a new conversation."
		m.viewport.SetContent(m.renderCurrentTurn())
	case "/help":
		m.status = "/landmark <id> focus · /landmark clear focus · /new reset · PgUp/PgDn turns · Ctrl+C quit"
	default:
		m.status = "Unknown command " + fields[0] + ". Try /help."
	}
	return m, nil
}

// View renders the TUI layout and the selected turn.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "NYC Landmarks Research"
	if m.landmarkID != "" {
		title += "  [" + m.landmarkID + "]"
	}
	header := lipgloss.NewStyle().Bold(true).Render(title)
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(truncate(m.summary, m.viewport.Width))
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrentTurn() string {
	if len(m.turns) == 0 {
		return "No reports yet."
	}
	t := m.turns[m.cursor]

	var b strings.Builder
	fmt.Fprintf(&b, "Turn %d/%d  %s\n", m.cursor+1, len(m.turns), labelStyle.Render(t.Query))
	if t.LandmarkName != "" {
		fmt.Fprintf(&b, "%s (%s)\n", t.LandmarkName, t.LandmarkID)
	}
	b.WriteString(m.renderMarkdown(t.Report))

	if len(t.Sources) > 0 {
		b.WriteString("\n" + labelStyle.Render("Sources") + "\n")
		for i, s := range t.Sources {
			title := s.Title
			if title == "" {
				title = s.SourceID
			}
			page := ""
			if s.Page != nil {
				page = fmt.Sprintf(", p. %d", *s.Page)
			}
			fmt.Fprintf(&b, "%d. %s%s  score=%.2f\n   %s\n", i+1, title, page, s.RelevanceScore, highlightBestSentence(s.Content, t.Query))
		}
	}
	if len(t.RelatedLandmarks) > 0 {
		names := make([]string, len(t.RelatedLandmarks))
		for i, r := range t.RelatedLandmarks {
			names[i] = fmt.Sprintf("%s (%s)", r.Name, r.ID)
		}
		b.WriteString("\n" + labelStyle.Render("Related") + " " + strings.Join(names, ", ") + "\n")
	}
	if len(t.Images) > 0 {
		b.WriteString("\n" + labelStyle.Render("Images") + "\n")
		for _, img := range t.Images {
			fmt.Fprintf(&b, "- %s %s\n", img.URL, img.Caption)
		}
	}
	if len(t.SuggestedQueries) > 0 {
		b.WriteString("\n" + labelStyle.Render("Try next") + "\n")
		for _, q := range t.SuggestedQueries {
			b.WriteString("- " + q + "\n")
		}
	}
	return b.String()
}

func (m Model) renderMarkdown(md string) string {
	if m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+[.!?]*`)
)

// highlightBestSentence emphasises the sentence of text sharing the most words with query.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return strings.TrimSpace(text)
	}
	bestIdx := 0
	bestScore := -1
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	out := make([]string, 0, len(sentences))
	for i, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if i == bestIdx {
			s = highlightStyle.Render(s)
		}
		out = append(out, s)
	}
	return strings.Join(out, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := map[string]struct{}{}
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 3 || len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
