package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isamwata/llmcouncil/backend"
)

func TestMarkerValidator(t *testing.T) {
	v := MarkerValidator{RequiredMarkers: []string{"## Summary", "## Risks"}}

	assert.Equal(t, []string{"## Summary", "## Risks"}, v.Markers())
	assert.Empty(t, v.Missing("## Summary\ntext\n## Risks\nmore"))
	assert.Equal(t, []string{"## Risks"}, v.Missing("## Summary\ntext"))
	assert.Equal(t, []string{"## Summary", "## Risks"}, v.Missing("nothing at all"))
}

func TestDeliberate_SynthesisRepairThenComplete(t *testing.T) {
	invokers := testInvokers(3)
	calls := 0
	invokers["chair"] = backend.NewMockInvoker("chair", backend.WithReplyFunc(func(messages []backend.Message) (string, error) {
		calls++
		if calls == 1 {
			return "## Summary\nFirst draft.", nil
		}
		// The retry carries the previous draft plus a corrective note.
		last := messages[len(messages)-1].Content
		if !strings.Contains(last, "## Risks") {
			return "", errors.New("corrective note did not name the gap")
		}
		return "## Summary\nFull draft.\n## Risks\nNone known.", nil
	}))

	e := newTestEngine(t, testConfig(), invokers, func(o *Options) {
		o.Coverage = MarkerValidator{RequiredMarkers: []string{"## Summary", "## Risks"}}
		o.Repair = RepairPolicy{MaxRetries: 2}
	})

	result, err := e.Deliberate(context.Background(), "q", "")
	require.NoError(t, err)

	assert.False(t, result.Synthesis.Fallback)
	assert.Equal(t, 2, result.Synthesis.Attempts)
	assert.Contains(t, result.Synthesis.Text, "## Risks")
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "## Risks")
}

func TestDeliberate_SynthesisGapFillSplice(t *testing.T) {
	invokers := testInvokers(3)
	invokers["chair"] = backend.NewMockInvoker("chair", backend.WithReplyFunc(func(messages []backend.Message) (string, error) {
		last := messages[len(messages)-1].Content
		if strings.Contains(last, "ONLY the missing sections") {
			return "## Risks\nFilled in afterwards.", nil
		}
		return "Preamble.\nThe ## Summary section stands alone.\nTrailing prose.", nil
	}))

	e := newTestEngine(t, testConfig(), invokers, func(o *Options) {
		o.Coverage = MarkerValidator{RequiredMarkers: []string{"## Summary", "## Risks"}}
		o.Repair = RepairPolicy{MaxRetries: 0}
	})

	result, err := e.Deliberate(context.Background(), "q", "")
	require.NoError(t, err)

	// One synthesis call plus the scoped gap-fill call.
	assert.Equal(t, 2, result.Synthesis.Attempts)
	assert.False(t, result.Synthesis.Fallback)

	// The gap is spliced in right after the line holding the last present
	// marker, not appended at the end.
	want := "Preamble.\nThe ## Summary section stands alone.\n## Risks\nFilled in afterwards.\nTrailing prose."
	assert.Equal(t, want, result.Synthesis.Text)
}

func TestDeliberate_ChairFailureFallsBackToTopRanked(t *testing.T) {
	// Every evaluator ranks as shown, and the seeded shuffles determine the
	// winner; the fallback must be whichever backend tops the cross ranking.
	invokers := testInvokers(3)
	invokers["chair"] = backend.NewMockInvoker("chair", backend.WithError(errors.New("chair offline")))

	e := newTestEngine(t, testConfig(), invokers)

	result, err := e.Deliberate(context.Background(), "q", "")
	require.NoError(t, err)

	require.True(t, result.Synthesis.Fallback)
	require.NotEmpty(t, result.CrossRanking)
	top := result.CrossRanking[0].BackendID
	assert.Equal(t, "Answer from "+top+".", result.Synthesis.Text)

	var sawFallbackWarning bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "fallback") {
			sawFallbackWarning = true
		}
	}
	assert.True(t, sawFallbackWarning)
}

func TestSpliceGap(t *testing.T) {
	markers := []string{"## Summary", "## Risks"}

	t.Run("no marker present appends", func(t *testing.T) {
		got := spliceGap("plain text\n", "## Summary\nlate", markers)
		assert.Equal(t, "plain text\n\n## Summary\nlate", got)
	})

	t.Run("inserts after line holding last present marker", func(t *testing.T) {
		text := "intro\n## Summary\nbody\noutro"
		got := spliceGap(text, "## Risks\nnone", markers)
		assert.Equal(t, "intro\n## Summary\n## Risks\nnone\nbody\noutro", got)
	})

	t.Run("marker on final line without newline", func(t *testing.T) {
		got := spliceGap("intro\n## Summary", "## Risks\nnone", markers)
		assert.Equal(t, "intro\n## Summary\n## Risks\nnone", got)
	})
}
