package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landmarks/internal/domain"
)

type fakeResearch struct {
	requests []domain.ResearchRequest
	deleted  []string
	err      error
}

func (f *fakeResearch) GenerateReport(_ context.Context, req domain.ResearchRequest) (*domain.ResearchResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ResearchResponse{
		ConversationID:   "conversation-1234",
		Query:            req.Query,
		Report:           "# Flatiron Building\n\nA triangular tower.",
		LandmarkID:       req.LandmarkID,
		LandmarkName:     "Flatiron Building",
		Sources:          []domain.SourceDocument{{SourceID: "doc-1", Title: "Designation Report", Content: "It is triangular. It opened in 1902.", RelevanceScore: 0.9}},
		RelatedLandmarks: []domain.RelatedLandmark{{ID: "LP-00009", Name: "Woolworth Building"}},
		SuggestedQueries: []string{"When was this landmark designated?"},
	}, nil
}

func (f *fakeResearch) DeleteConversation(_ context.Context, id string) bool {
	f.deleted = append(f.deleted, id)
	return true
}

func typeLine(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

func TestAskRunsReportAndShowsTurn(t *testing.T) {
	svc := &fakeResearch{}
	m := sized(New(svc, "corpus summary", "notty", 0))

	m, _ = typeLine(t, m, "/landmark lp-00004")
	assert.Equal(t, "LP-00004", m.landmarkID)

	m, cmd := typeLine(t, m, "Tell me about the Flatiron Building")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.False(t, m.busy)
	assert.Equal(t, "conversation-1234", m.conversationID)
	require.Len(t, svc.requests, 1)
	assert.Equal(t, "LP-00004", svc.requests[0].LandmarkID)
	assert.Empty(t, svc.requests[0].ConversationID)

	view := m.renderCurrentTurn()
	assert.Contains(t, view, "Flatiron Building")
	assert.Contains(t, view, "Designation Report")
	assert.Contains(t, view, "Woolworth Building (LP-00009)")
	assert.Contains(t, view, "When was this landmark designated?")
	assert.Contains(t, m.View(), "[LP-00004]")

	m, cmd = typeLine(t, m, "And who designed it?")
	m.Update(cmd())
	assert.Equal(t, "conversation-1234", svc.requests[1].ConversationID)
}

func TestShortQuestionIsRejected(t *testing.T) {
	svc := &fakeResearch{}
	m, cmd := typeLine(t, sized(New(svc, "", "notty", 0)), "hi?")
	assert.Nil(t, cmd)
	assert.Contains(t, m.status, "at least 5")
	assert.Empty(t, svc.requests)
}

func TestErrorsShowInStatus(t *testing.T) {
	svc := &fakeResearch{err: errors.New("generator offline")}
	m, cmd := typeLine(t, sized(New(svc, "", "notty", 0)), "What is the Chrysler Building?")
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "Error: generator offline", m.status)
	assert.Empty(t, m.turns)
}

func TestCommands(t *testing.T) {
	svc := &fakeResearch{}
	m := sized(New(svc, "", "notty", 0))

	m, _ = typeLine(t, m, "/landmark flatiron")
	assert.Empty(t, m.landmarkID)
	assert.Contains(t, m.status, "not a landmark id")

	m.conversationID = "c-1"
	m.turns = []domain.ResearchResponse{{Query: "q"}}
	m, _ = typeLine(t, m, "/new")
	assert.Equal(t, []string{"c-1"}, svc.deleted)
	assert.Empty(t, m.conversationID)
	assert.Empty(t, m.turns)

	m, _ = typeLine(t, m, "/bogus")
	assert.True(t, strings.HasPrefix(m.status, "Unknown command"))
}

func TestHighlightBestSentence(t *testing.T) {
	out := highlightBestSentence("The tower is tall. The facade is limestone.", "limestone facade")
	assert.Contains(t, out, "The tower is tall.")
	assert.Contains(t, out, "limestone")
	assert.Equal(t, "", highlightBestSentence("", "x"))
	assert.Equal(t, "plain text.", highlightBestSentence("  plain text. ", ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
}
