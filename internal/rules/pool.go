package rules

import (
	"sync"

	"psikit/internal/logging"
	"psikit/internal/types"
)

// Pool is the registered rule set for one behavior component. It maintains
// three retrieval structures over the same rules: an exact-match index over
// ground conditions, the wildcard registry (conditions with no constant
// terms), and an inverted term index for approximate structural matching.
// It also tracks the currently salient focus subset.
//
// The pool owns its rules; the selection engine only reads them.
type Pool struct {
	mu    sync.RWMutex
	rules []*types.Rule

	// exact maps the canonical key of fully-ground conditions to their rules.
	exact map[string][]*types.Rule

	// wildcard holds rules whose condition carries no constant terms.
	wildcard []*types.Rule

	// index maps predicate and constant tokens to rules mentioning them.
	index map[string][]*types.Rule

	// focus marks the currently salient rules, in pool order on read.
	focus map[*types.Rule]struct{}
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		exact: make(map[string][]*types.Rule),
		index: make(map[string][]*types.Rule),
		focus: make(map[*types.Rule]struct{}),
	}
}

// Add registers a rule and updates all retrieval structures.
func (p *Pool) Add(r *types.Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.addLocked(r)
}

// Replace swaps the entire pool contents, used by hot reload. The focus set
// is cleared: it referred to rule instances that no longer exist.
func (p *Pool) Replace(rs []*types.Rule) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rules = nil
	p.exact = make(map[string][]*types.Rule)
	p.wildcard = nil
	p.index = make(map[string][]*types.Rule)
	p.focus = make(map[*types.Rule]struct{})

	for _, r := range rs {
		p.addLocked(r)
	}
	logging.Rules("pool replaced: %d rules (%d wildcard)", len(p.rules), len(p.wildcard))
}

func (p *Pool) addLocked(r *types.Rule) {
	p.rules = append(p.rules, r)

	if sc, ok := r.Condition.(*types.StructuredCondition); ok && sc.Ground() {
		key := sc.Key()
		p.exact[key] = append(p.exact[key], r)
	}

	if p.isWildcard(r.Condition) {
		p.wildcard = append(p.wildcard, r)
	}

	for _, tok := range indexTokens(r.Condition) {
		p.index[tok] = append(p.index[tok], r)
	}
}

// isWildcard covers both explicit wildcard conditions and structured
// templates without any constant term.
func (p *Pool) isWildcard(c types.Condition) bool {
	if c.Wildcard() {
		return true
	}
	if sc, ok := c.(*types.StructuredCondition); ok {
		return !sc.HasConstant()
	}
	return false
}

// indexTokens lists the inverted-index entries for a condition: its
// predicates plus its constant values.
func indexTokens(c types.Condition) []string {
	var toks []string
	for _, cl := range c.Clauses() {
		toks = append(toks, "p:"+cl.Predicate)
		for _, t := range cl.Terms {
			if !t.Variable {
				toks = append(toks, "c:"+t.Value)
			}
		}
	}
	return toks
}

// Len returns the number of registered rules.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rules)
}

// All returns a snapshot of all registered rules in registration order.
func (p *Pool) All() []*types.Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*types.Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// ExactMatches returns rules whose ground condition is a literal match of
// the trigger's extracted clause.
func (p *Pool) ExactMatches(t *types.Trigger) ([]*types.Rule, error) {
	if t.Empty() {
		return nil, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	matches := p.exact[t.Clause.Key()]
	out := make([]*types.Rule, len(matches))
	copy(out, matches)
	return out, nil
}

// WildcardRules returns the context-free template rules.
func (p *Pool) WildcardRules() []*types.Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*types.Rule, len(p.wildcard))
	copy(out, p.wildcard)
	return out
}

// IndexedMatches returns rules sharing the trigger's predicate or any of its
// constant terms, in pool registration order.
func (p *Pool) IndexedMatches(t *types.Trigger) ([]*types.Rule, error) {
	if t.Empty() {
		return nil, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	hits := make(map[*types.Rule]struct{})
	for _, r := range p.index["p:"+t.Clause.Predicate] {
		hits[r] = struct{}{}
	}
	for _, term := range t.Clause.Terms {
		for _, r := range p.index["c:"+term.Value] {
			hits[r] = struct{}{}
		}
	}
	if len(hits) == 0 {
		return nil, nil
	}

	// Walk pool order so results are deterministic regardless of map order.
	out := make([]*types.Rule, 0, len(hits))
	for _, r := range p.rules {
		if _, ok := hits[r]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// SetFocus replaces the salient subset with the rules whose alias appears in
// names. Unknown names are ignored.
func (p *Pool) SetFocus(names ...string) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.focus = make(map[*types.Rule]struct{})
	for _, r := range p.rules {
		if _, ok := want[r.Name]; ok {
			p.focus[r] = struct{}{}
		}
	}
}

// FocusRules returns the salient subset in pool registration order.
func (p *Pool) FocusRules() []*types.Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*types.Rule, 0, len(p.focus))
	for _, r := range p.rules {
		if _, ok := p.focus[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// AllRules returns the whole registered pool, the focus-mode source when
// focus filtering is disabled.
func (p *Pool) AllRules() []*types.Rule {
	return p.All()
}

// Predicates returns predicate name → arity for every clause in the pool,
// used to generate kernel declarations. Conflicting arities keep the first
// one seen; the kernel rejects facts that disagree.
func (p *Pool) Predicates() map[string]int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]int)
	for _, r := range p.rules {
		for _, cl := range r.Condition.Clauses() {
			if _, ok := out[cl.Predicate]; !ok {
				out[cl.Predicate] = len(cl.Terms)
			}
		}
	}
	return out
}
