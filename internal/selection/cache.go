package selection

import (
	"psikit/internal/types"
)

// satCache memoizes condition satisfiability for the duration of one
// selection pass. The evaluator may carry side effects (variable binding in
// the world model), so it is invoked at most once per distinct condition per
// pass. Conditions are keyed by object identity: rules sharing the same
// condition object share one evaluation; distinct objects with equal keys do
// not.
//
// A fresh cache is built at the start of every pass and discarded with it.
// Satisfiability is time-dependent on world state and must never leak across
// passes.
type satCache struct {
	eval    Evaluator
	scores  map[types.Condition]float64
	evals   int // evaluator invocations, for diagnostics
	lookups int
}

func newSatCache(eval Evaluator) *satCache {
	return &satCache{
		eval:   eval,
		scores: make(map[types.Condition]float64),
	}
}

// satisfiability returns the cached score for cond, evaluating on first use.
func (c *satCache) satisfiability(cond types.Condition) (float64, error) {
	c.lookups++
	if score, ok := c.scores[cond]; ok {
		return score, nil
	}

	score, err := c.eval.Satisfiability(cond)
	if err != nil {
		return 0, err
	}
	c.evals++
	c.scores[cond] = score
	return score, nil
}
