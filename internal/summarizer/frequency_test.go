package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShortTextIsReturnedWhole(t *testing.T) {
	s := NewFrequencySummarizer()
	out, err := s.Summarize("The tower rises.  It is tall.", 5)
	require.NoError(t, err)
	assert.Equal(t, "The tower rises. It is tall.", out)
}

func TestSummaryKeepsOriginalOrder(t *testing.T) {
	text := strings.Join([]string{
		"The Flatiron Building is a landmark building.",
		"Weather was mild.",
		"The building facade is limestone and the building is famous.",
		"Lunch was served.",
		"Landmark building designation protected the building.",
	}, " ")

	out, err := NewFrequencySummarizer().Summarize(text, 2)
	require.NoError(t, err)
	assert.NotContains(t, out, "Weather")
	assert.NotContains(t, out, "Lunch")
	first := strings.Index(out, "The Flatiron")
	require.GreaterOrEqual(t, first, 0)
	assert.Equal(t, 0, first)
}

func TestDefaultSentenceCount(t *testing.T) {
	text := strings.Repeat("Landmark sentence here. ", 8)
	out, err := NewFrequencySummarizer().Summarize(text, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(out, "."))
}

func TestEmptyText(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("", 3)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}
