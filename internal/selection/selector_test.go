package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psikit/internal/types"
)

func agg(name string, rule *types.Rule, weights ...float64) *actionAggregate {
	a := &actionAggregate{action: types.Action{Name: name}, firstRule: rule}
	for _, w := range weights {
		a.count++
		a.sum += w
	}
	return a
}

func TestPickEmpty(t *testing.T) {
	assert.Nil(t, pick(nil, &panicRandom{t}, plog()))
}

func TestPickSingleSkipsRandom(t *testing.T) {
	r := mkRule("r", 1.0, "A")
	got := pick([]*actionAggregate{agg("A", r, 0.2)}, &panicRandom{t}, plog())
	assert.Same(t, r, got)
}

func TestPickRouletteWalk(t *testing.T) {
	rA := mkRule("ra", 1.0, "A")
	rB := mkRule("rb", 1.0, "B")
	rC := mkRule("rc", 1.0, "C")
	aggs := []*actionAggregate{
		agg("A", rA, 0.2), // cumulative 0.2
		agg("B", rB, 0.3), // cumulative 0.5
		agg("C", rC, 0.5), // cumulative 1.0
	}

	for _, tc := range []struct {
		u    float64
		want *types.Rule
	}{
		{0.0, rA},   // cutoff 0.0, first bucket always reachable
		{0.19, rA},  // cutoff 0.19
		{0.21, rB},  // cutoff 0.21
		{0.499, rB}, // cutoff just under the B/C boundary
		{0.999, rC},
	} {
		got := pick(aggs, &seqRandom{seq: []float64{tc.u}}, plog())
		require.NotNil(t, got, "u=%v", tc.u)
		assert.Same(t, tc.want, got, "u=%v", tc.u)
	}
}

// Equal weights resolve to whichever action the walk reaches first.
func TestPickTieBreakByOrder(t *testing.T) {
	rA := mkRule("ra", 1.0, "A")
	rB := mkRule("rb", 1.0, "B")
	aggs := []*actionAggregate{
		agg("A", rA, 0.5),
		agg("B", rB, 0.5),
	}

	// cutoff exactly at the boundary lands on the earlier action
	got := pick(aggs, &seqRandom{seq: []float64{0.5}}, plog())
	assert.Same(t, rA, got)
}

// Draw for an action returns its first recorded rule, whatever rule count
// the aggregate carries.
func TestPickReturnsFirstRuleOfAction(t *testing.T) {
	first := mkRule("first", 1.0, "A")
	a := agg("A", first, 0.3, 0.3)
	b := agg("B", mkRule("other", 1.0, "B"), 0.1)

	got := pick([]*actionAggregate{a, b}, &seqRandom{seq: []float64{0.1}}, plog())
	assert.Same(t, first, got)
}
