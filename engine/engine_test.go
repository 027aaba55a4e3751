package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isamwata/llmcouncil/backend"
	"github.com/isamwata/llmcouncil/ranking"
)

// rankAsShownReply ranks the responses exactly in the order they were shown,
// using the shuffled labels from the prompt. After inversion the canonical
// ranking must equal that round's presentation order.
func rankAsShownReply(n int) string {
	var sb strings.Builder
	sb.WriteString("They all have merit.\n\n")
	sb.WriteString(ranking.Sentinel + "\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, ranking.LabelFor(i))
	}
	return sb.String()
}

func testConfig() Config {
	return Config{
		Backends:            []string{"m1", "m2", "m3"},
		ChairID:             "chair",
		BootstrapEnabled:    true,
		BootstrapIterations: 3,
		InvokeTimeout:       time.Second,
	}
}

func testInvokers(n int) map[string]backend.Invoker {
	invokers := map[string]backend.Invoker{
		"chair": backend.NewMockInvoker("chair", backend.WithReply("Synthesized answer.")),
	}
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("m%d", i)
		answer := fmt.Sprintf("Answer from %s.", id)
		invokers[id] = backend.NewMockInvoker(id, backend.WithReplyFunc(func(messages []backend.Message) (string, error) {
			last := messages[len(messages)-1].Content
			if strings.Contains(last, ranking.Sentinel) {
				return rankAsShownReply(n), nil
			}
			return answer, nil
		}))
	}
	return invokers
}

func newTestEngine(t *testing.T, cfg Config, invokers map[string]backend.Invoker, optFns ...func(o *Options)) *Engine {
	t.Helper()
	optFns = append([]func(o *Options){func(o *Options) {
		o.Random = rand.New(rand.NewSource(42))
	}}, optFns...)
	e, err := New(cfg, invokers, optFns...)
	require.NoError(t, err)
	return e
}

func TestNew_ChairMustNotBeMember(t *testing.T) {
	cfg := testConfig()
	cfg.ChairID = "m2"

	_, err := New(cfg, testInvokers(3))
	assert.ErrorIs(t, err, ErrChairIsMember)
}

func TestNew_RejectsUnregisteredBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backends = append(cfg.Backends, "ghost")

	_, err := New(cfg, testInvokers(3))
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestDeliberate_FullRun(t *testing.T) {
	e := newTestEngine(t, testConfig(), testInvokers(3))

	res, err := e.Deliberate(context.Background(), "What is the airspeed of an unladen swallow?", "")
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	require.Len(t, res.Responses, 3)
	assert.Equal(t, "m1", res.Responses[0].BackendID)
	assert.Equal(t, "m2", res.Responses[1].BackendID)
	assert.Equal(t, "m3", res.Responses[2].BackendID)

	// Label bijection in declaration order.
	assert.Equal(t, ranking.Label("Response A"), res.Labels["m1"])
	assert.Equal(t, ranking.Label("Response B"), res.Labels["m2"])
	assert.Equal(t, ranking.Label("Response C"), res.Labels["m3"])
	assert.Len(t, res.LabelToBackend, 3)
	for id, l := range res.Labels {
		assert.Equal(t, id, res.LabelToBackend[l])
	}

	require.Len(t, res.Rounds, 3)
	for _, round := range res.Rounds {
		// Evaluators ranked responses as shown, so the canonical ranking
		// must equal the round's presentation order.
		require.Len(t, round.Rankings, 3)
		for _, got := range round.Rankings {
			assert.Equal(t, round.Presentation, got)
		}
	}

	assert.Len(t, res.Aggregates, 3)
	assert.Len(t, res.CrossRanking, 3)
	assert.Equal(t, "Synthesized answer.", res.Synthesis.Text)
	assert.False(t, res.Synthesis.Fallback)
	assert.Empty(t, res.Warnings)
}

func TestDeliberate_AllBackendsFailStage1(t *testing.T) {
	invokers := map[string]backend.Invoker{
		"m1":    backend.NewMockInvoker("m1", backend.WithError(errors.New("down"))),
		"m2":    backend.NewMockInvoker("m2", backend.WithError(errors.New("down"))),
		"m3":    backend.NewMockInvoker("m3", backend.WithError(errors.New("down"))),
		"chair": backend.NewMockInvoker("chair"),
	}
	e := newTestEngine(t, testConfig(), invokers)

	res, err := e.Deliberate(context.Background(), "anyone home?", "")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoResponses)
}

func TestDeliberate_PartialStage1Failure(t *testing.T) {
	invokers := testInvokers(2)
	// m2 fails Stage 1 but still participates as an evaluator.
	invokers["m2"] = backend.NewMockInvoker("m2", backend.WithReplyFunc(func(messages []backend.Message) (string, error) {
		if strings.Contains(messages[len(messages)-1].Content, ranking.Sentinel) {
			return rankAsShownReply(2), nil
		}
		return "", errors.New("rate limited")
	}))
	e := newTestEngine(t, testConfig(), invokers)

	res, err := e.Deliberate(context.Background(), "q", "")
	require.NoError(t, err)

	// m2 never receives a label...
	require.Len(t, res.Responses, 2)
	assert.NotContains(t, res.Labels, "m2")
	assert.Equal(t, ranking.Label("Response A"), res.Labels["m1"])
	assert.Equal(t, ranking.Label("Response B"), res.Labels["m3"])

	// ...but still evaluates in Stage 2.
	for _, round := range res.Rounds {
		assert.Contains(t, round.Rankings, "m2")
	}

	assert.NotEmpty(t, res.Warnings)
}

func TestDeliberate_LegacyModeSingleRound(t *testing.T) {
	cfg := testConfig()
	cfg.BootstrapEnabled = false
	e := newTestEngine(t, cfg, testInvokers(3))

	res, err := e.Deliberate(context.Background(), "q", "")
	require.NoError(t, err)

	require.Len(t, res.Rounds, 1)
	round := res.Rounds[0]
	assert.Equal(t, "overall", round.Criterion.Name)
	// No shuffling: presentation is the canonical label order.
	assert.Equal(t, ranking.Labels(3), round.Presentation)

	// Same aggregation code path still yields per-backend aggregates.
	assert.Len(t, res.Aggregates, 3)
}

func TestDeliberate_EvaluatorFailuresExcludedFromAggregation(t *testing.T) {
	invokers := testInvokers(3)
	// m3 answers Stage 1 but fails every evaluation call.
	invokers["m3"] = backend.NewMockInvoker("m3", backend.WithReplyFunc(func(messages []backend.Message) (string, error) {
		if strings.Contains(messages[len(messages)-1].Content, ranking.Sentinel) {
			return "", errors.New("evaluation outage")
		}
		return "Answer from m3.", nil
	}))
	e := newTestEngine(t, testConfig(), invokers)

	res, err := e.Deliberate(context.Background(), "q", "")
	require.NoError(t, err)

	require.Len(t, res.Responses, 3)
	assert.Len(t, res.Aggregates, 2)
	for _, agg := range res.Aggregates {
		assert.NotEqual(t, "m3", agg.Evaluator)
	}
	// m3's response is still a ranked subject.
	assert.Len(t, res.CrossRanking, 3)

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "m3") && strings.Contains(w, "excluded from aggregation") {
			found = true
		}
	}
	assert.True(t, found, "expected an exclusion warning for m3")
}

func TestDeliberate_SupportingContextReachesBackends(t *testing.T) {
	var sawContext bool
	invokers := testInvokers(3)
	invokers["m1"] = backend.NewMockInvoker("m1", backend.WithReplyFunc(func(messages []backend.Message) (string, error) {
		last := messages[len(messages)-1].Content
		if strings.Contains(last, ranking.Sentinel) {
			return rankAsShownReply(3), nil
		}
		if messages[0].Role == "system" && strings.Contains(messages[0].Content, "the moon is made of rock") {
			sawContext = true
		}
		return "Answer from m1.", nil
	}))
	e := newTestEngine(t, testConfig(), invokers)

	_, err := e.Deliberate(context.Background(), "q", "the moon is made of rock")
	require.NoError(t, err)
	assert.True(t, sawContext)
}

func TestDeliberate_HooksFireInStageOrder(t *testing.T) {
	var stages []Stage
	mkHook := func(s Stage) Hook {
		return NewFunctionHook(s, func(_ context.Context, hookCtx *HookContext) error {
			stages = append(stages, hookCtx.Stage)
			return nil
		})
	}
	e := newTestEngine(t, testConfig(), testInvokers(3), func(o *Options) {
		o.Hooks = []Hook{mkHook(StageResponses), mkHook(StagePeerRanking), mkHook(StageSynthesis)}
	})

	_, err := e.Deliberate(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageResponses, StagePeerRanking, StageSynthesis}, stages)
}

func TestDeliberate_HookErrorBecomesWarning(t *testing.T) {
	hook := NewFunctionHook(StageResponses, func(context.Context, *HookContext) error {
		return errors.New("exporter offline")
	})
	e := newTestEngine(t, testConfig(), testInvokers(3), func(o *Options) {
		o.Hooks = []Hook{hook}
	})

	res, err := e.Deliberate(context.Background(), "q", "")
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "exporter offline")
}

func TestDeliberate_MaxCallsBudget(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCalls = 3 // enough for Stage 1 only
	e := newTestEngine(t, cfg, testInvokers(3))

	res, err := e.Deliberate(context.Background(), "q", "")
	require.NoError(t, err)

	// Stage 1 spent the budget; everything after degrades with warnings.
	require.Len(t, res.Responses, 3)
	assert.Empty(t, res.Aggregates)
	assert.True(t, res.Synthesis.Fallback)
	assert.NotEmpty(t, res.Warnings)
}
