package selection

import (
	"psikit/internal/logging"
	"psikit/internal/types"
)

// gatherTriggered produces the candidate set for an input-driven pass by
// unioning three sources in order: exact structural matches, the wildcard
// registry, and the approximate term index. The union is deduplicated by
// condition identity, first seen wins.
//
// A trigger with no extracted predicate structure yields an empty set; that
// is a normal outcome, not an error.
func gatherTriggered(src Source, t *types.Trigger, plog *logging.PassLogger) ([]*types.Rule, error) {
	if t.Empty() {
		plog.Debug("trigger has no predicate structure, no candidates")
		return nil, nil
	}

	exact, err := src.ExactMatches(t)
	if err != nil {
		return nil, err
	}
	wildcard := src.WildcardRules()
	indexed, err := src.IndexedMatches(t)
	if err != nil {
		return nil, err
	}

	merged := make([]*types.Rule, 0, len(exact)+len(wildcard)+len(indexed))
	merged = append(merged, exact...)
	merged = append(merged, wildcard...)
	merged = append(merged, indexed...)

	candidates := dedupByCondition(merged)
	plog.Debug("gathered %d candidates for %q (exact=%d wildcard=%d indexed=%d)",
		len(candidates), t.Clause.Key(), len(exact), len(wildcard), len(indexed))
	return candidates, nil
}

// gatherFocus produces the candidate set for an attention-driven pass:
// the salient subset, or the whole pool when focus filtering is disabled.
func gatherFocus(src Source, filter bool, plog *logging.PassLogger) []*types.Rule {
	var pool []*types.Rule
	if filter {
		pool = src.FocusRules()
	} else {
		pool = src.AllRules()
	}

	candidates := dedupByCondition(pool)
	plog.Debug("gathered %d focus candidates (filter=%v)", len(candidates), filter)
	return candidates
}

// dedupByCondition keeps the first rule seen for each distinct condition
// object. Rules sharing the identical condition (goal-expanded instances,
// or the same rule reached through several gathering strategies) collapse to
// one candidate.
func dedupByCondition(in []*types.Rule) []*types.Rule {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[types.Condition]struct{}, len(in))
	out := make([]*types.Rule, 0, len(in))
	for _, r := range in {
		if _, ok := seen[r.Condition]; ok {
			continue
		}
		seen[r.Condition] = struct{}{}
		out = append(out, r)
	}
	return out
}
