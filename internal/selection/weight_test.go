package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psikit/internal/logging"
	"psikit/internal/types"
)

func testWeigher(eval Evaluator, boost bool) *weigher {
	return &weigher{
		cache:      newSatCache(eval),
		importance: &stubImportance{scores: map[string]float64{}},
		cfg:        testCfg(),
		topic:      "test",
		topicBoost: boost,
	}
}

func plog() *logging.PassLogger {
	return logging.WithPassID(logging.CategorySelect, "test")
}

// actionWeight is the arithmetic mean of contributing rule-weights,
// not their sum.
func TestActionWeightIsMean(t *testing.T) {
	cond1 := types.NewStructuredCondition(types.Clause{Predicate: "a"})
	cond2 := types.NewStructuredCondition(types.Clause{Predicate: "b"})
	r1 := &types.Rule{Name: "r1", Topic: "test", Strength: 0.8, Condition: cond1, Action: types.Action{Name: "act"}}
	r2 := &types.Rule{Name: "r2", Topic: "test", Strength: 0.4, Condition: cond2, Action: types.Action{Name: "act"}}

	w := testWeigher(newStubEvaluator(), true)
	aggs, err := w.aggregate([]*types.Rule{r1, r2}, plog())
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	agg := aggs[0]
	assert.Equal(t, 2, agg.count)
	assert.InDelta(t, 1.2, agg.sum, 1e-9)
	assert.InDelta(t, 0.6, agg.weight(), 1e-9, "mean of 0.8 and 0.4")
}

// A rule with zero satisfiability contributes to neither count nor sum.
func TestZeroSatisfiabilityExcluded(t *testing.T) {
	r1 := mkRule("live", 1.0, "act")
	r2 := mkRule("dead", 1.0, "act")

	eval := newStubEvaluator()
	eval.scores[r2.Condition] = 0

	w := testWeigher(eval, true)
	aggs, err := w.aggregate([]*types.Rule{r1, r2}, plog())
	require.NoError(t, err)
	require.Len(t, aggs, 1)

	assert.Equal(t, 1, aggs[0].count, "unsatisfiable rule is excluded, not zero-weighted")
	assert.InDelta(t, 1.0, aggs[0].sum, 1e-9)
}

func TestZeroStrengthExcluded(t *testing.T) {
	r1 := mkRule("r1", 0, "act")

	w := testWeigher(newStubEvaluator(), true)
	aggs, err := w.aggregate([]*types.Rule{r1}, plog())
	require.NoError(t, err)
	assert.Empty(t, aggs)
}

func TestTopicBoostFallback(t *testing.T) {
	onTopic := mkRule("on", 1.0, "a")
	offTopic := mkRule("off", 1.0, "b")
	offTopic.Topic = "other"

	w := testWeigher(newStubEvaluator(), true)
	assert.InDelta(t, 1.0, w.importanceTerm(onTopic), 1e-9)
	assert.InDelta(t, 0.5, w.importanceTerm(offTopic), 1e-9)
}

func TestImportanceTermWithoutBoost(t *testing.T) {
	r1 := mkRule("r1", 1.0, "a")

	w := testWeigher(newStubEvaluator(), false)
	w.importance = &stubImportance{scores: map[string]float64{"r1": 0.3}}
	assert.InDelta(t, 0.3, w.importanceTerm(r1), 1e-9)

	// Unknown rules score zero, which excludes them downstream.
	r2 := mkRule("r2", 1.0, "a")
	assert.Zero(t, w.importanceTerm(r2))
}

// Aggregation preserves first-contribution order across actions.
func TestAggregateInsertionOrder(t *testing.T) {
	r1 := mkRule("r1", 1.0, "first")
	r2 := mkRule("r2", 1.0, "second")
	r3 := mkRule("r3", 1.0, "first")

	w := testWeigher(newStubEvaluator(), true)
	aggs, err := w.aggregate([]*types.Rule{r1, r2, r3}, plog())
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	assert.Equal(t, "first", aggs[0].action.Name)
	assert.Equal(t, "second", aggs[1].action.Name)
	assert.Same(t, r1, aggs[0].firstRule, "first contributing rule is kept for the action")
	assert.Equal(t, 2, aggs[0].count)
}
