// Package attention provides the importance scores consumed by rule
// weighting. The bank is a minimal in-memory stand-in for a full attention
// economy: scores are stimulated by the host, decay multiplicatively, and
// default to zero, which is exactly the starvation condition the selection
// engine's topic-boost fallback exists for.
package attention

import (
	"sync"

	"psikit/internal/types"
)

// Bank holds per-rule importance scores keyed by the rule's identifier.
type Bank struct {
	mu     sync.RWMutex
	scores map[string]float64
}

// NewBank returns an empty bank; every rule starts at importance zero.
func NewBank() *Bank {
	return &Bank{scores: make(map[string]float64)}
}

// Stimulate adds amount to a rule's importance. Negative amounts are allowed
// but the score never goes below zero.
func (b *Bank) Stimulate(ruleID string, amount float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.scores[ruleID] + amount
	if v < 0 {
		v = 0
	}
	b.scores[ruleID] = v
}

// Decay multiplies every score by factor in [0,1), dropping entries that
// fall below a noise floor.
func (b *Bank) Decay(factor float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range b.scores {
		v *= factor
		if v < 1e-9 {
			delete(b.scores, k)
			continue
		}
		b.scores[k] = v
	}
}

// Importance returns the rule's current score, zero when never stimulated.
func (b *Bank) Importance(r *types.Rule) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.scores[r.ID()]
}
