package selection

import (
	"psikit/internal/logging"
	"psikit/internal/types"
)

// pick chooses one action from the aggregates. A single positive-weight
// action is returned directly, without touching the random source; otherwise
// a weighted lottery runs over the aggregates in insertion order. Equal
// weights tie-break by whichever action the walk reaches first.
//
// The rule returned for an action is always the first rule recorded for it
// during aggregation, so repeated passes over the same pool are consistent.
func pick(aggs []*actionAggregate, rng Random, plog *logging.PassLogger) *types.Rule {
	switch len(aggs) {
	case 0:
		return nil
	case 1:
		plog.Debug("single candidate action %s, selected directly", aggs[0].action.Key())
		return aggs[0].firstRule
	}

	total := 0.0
	for _, a := range aggs {
		total += a.weight()
	}

	cutoff := total * rng.Float64()
	acc := 0.0
	for _, a := range aggs {
		acc += a.weight()
		if acc >= cutoff {
			plog.Debug("roulette: total=%.4f cutoff=%.4f -> %s (weight=%.4f)",
				total, cutoff, a.action.Key(), a.weight())
			return a.firstRule
		}
	}

	// Unreachable when total > 0; floating rounding on a degenerate set can
	// land here, which counts as an empty result.
	plog.Warn("roulette walk exhausted (total=%.6f), empty result", total)
	return nil
}
