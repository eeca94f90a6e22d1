package selection

import (
	"psikit/internal/config"
	"psikit/internal/logging"
	"psikit/internal/types"
)

// actionAggregate accumulates the rule-weights contributing to one action.
// Only rules with positive weight are ever added, so sum is positive for
// every aggregate that exists and the selector never draws against a
// zero-weight action.
type actionAggregate struct {
	action    types.Action
	firstRule *types.Rule // first contributing rule; returned for the action
	count     int
	sum       float64
}

// weight returns the action's selection weight: the arithmetic mean of its
// contributing rule-weights. The mean keeps an action backed by many
// low-confidence rules from dominating the draw on volume alone.
func (a *actionAggregate) weight() float64 {
	return a.sum / float64(a.count)
}

// weigher computes per-rule weights and folds them into per-action
// aggregates for one pass.
type weigher struct {
	cache      *satCache
	importance ImportanceProvider
	cfg        config.SelectionConfig
	topic      string

	// topicBoost switches the importance term to the topic-boost fallback.
	// Triggered passes enable it when importance scoring is disabled; focus
	// passes never do. Focus mode presupposes a live attention bank and
	// always multiplies by the raw importance score.
	topicBoost bool
}

// aggregate scores candidates and groups them by action, preserving first
// contribution order. Rules weighing zero or less are excluded entirely:
// they appear in no aggregate's count or sum.
func (w *weigher) aggregate(candidates []*types.Rule, plog *logging.PassLogger) ([]*actionAggregate, error) {
	var aggs []*actionAggregate
	byAction := make(map[string]*actionAggregate)

	wlog := logging.Get(logging.CategoryWeights)

	for _, r := range candidates {
		sat, err := w.cache.satisfiability(r.Condition)
		if err != nil {
			return nil, err
		}

		rw := r.Strength * sat * w.importanceTerm(r)
		if rw <= 0 {
			// Diagnostics only; the rule simply does not participate.
			wlog.Debug("rule %s excluded (strength=%.3f sat=%.3f)", r.ID(), r.Strength, sat)
			continue
		}

		key := r.Action.Key()
		agg, ok := byAction[key]
		if !ok {
			agg = &actionAggregate{action: r.Action, firstRule: r}
			byAction[key] = agg
			aggs = append(aggs, agg)
		}
		agg.count++
		agg.sum += rw
	}

	plog.Debug("weighted %d candidates into %d actions", len(candidates), len(aggs))
	return aggs, nil
}

// importanceTerm is the rule's attention score, or the binary topic boost
// when the attention bank is not in play. Without the fallback, disabled
// importance scoring would zero every weight and starve selection.
func (w *weigher) importanceTerm(r *types.Rule) float64 {
	if w.topicBoost {
		if r.Topic != "" && r.Topic == w.topic {
			return w.cfg.TopicBoost
		}
		return w.cfg.OffTopicBoost
	}
	return w.importance.Importance(r)
}
