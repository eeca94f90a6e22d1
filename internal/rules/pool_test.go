package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psikit/internal/types"
)

func poolRule(name string, when []string, action string) *types.Rule {
	cond, err := ParseCondition(when)
	if err != nil {
		panic(err)
	}
	return &types.Rule{
		Name:      name,
		Strength:  1.0,
		Condition: cond,
		Action:    types.Action{Name: action},
	}
}

func TestPoolExactMatches(t *testing.T) {
	p := NewPool()
	ground := poolRule("ground", []string{"greet(alice)"}, "wave")
	templated := poolRule("templated", []string{"greet($WHO)"}, "wave")
	p.Add(ground)
	p.Add(templated)

	got, err := p.ExactMatches(ParseTrigger("greet alice"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Same(t, ground, got[0], "only literal ground matches count as exact")

	got, err = p.ExactMatches(ParseTrigger("greet bob"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPoolWildcardRegistry(t *testing.T) {
	p := NewPool()
	star := poolRule("star", []string{"*"}, "shrug")
	noConst := poolRule("noconst", []string{"greet($WHO)"}, "wave")
	withConst := poolRule("withconst", []string{"greet(alice)"}, "wave")
	p.Add(star)
	p.Add(noConst)
	p.Add(withConst)

	got := p.WildcardRules()
	require.Len(t, got, 2)
	assert.Same(t, star, got[0])
	assert.Same(t, noConst, got[1], "conditions without constant terms are templates")
}

func TestPoolIndexedMatches(t *testing.T) {
	p := NewPool()
	byPred := poolRule("bypred", []string{"greet(bob)"}, "wave")
	byConst := poolRule("byconst", []string{"mentions(alice)"}, "nod")
	unrelated := poolRule("unrelated", []string{"weather(rain)"}, "umbrella")
	p.Add(byPred)
	p.Add(byConst)
	p.Add(unrelated)

	got, err := p.IndexedMatches(ParseTrigger("greet alice"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Pool registration order, not map order.
	assert.Same(t, byPred, got[0])
	assert.Same(t, byConst, got[1])
}

func TestPoolIndexedMatchesEmptyTrigger(t *testing.T) {
	p := NewPool()
	p.Add(poolRule("r", []string{"greet(bob)"}, "wave"))

	got, err := p.IndexedMatches(ParseTrigger("!!"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPoolFocus(t *testing.T) {
	p := NewPool()
	r1 := poolRule("r1", []string{"a(x)"}, "one")
	r2 := poolRule("r2", []string{"b(y)"}, "two")
	r3 := poolRule("r3", []string{"c(z)"}, "three")
	p.Add(r1)
	p.Add(r2)
	p.Add(r3)

	p.SetFocus("r3", "r1", "missing")
	got := p.FocusRules()
	require.Len(t, got, 2)
	assert.Same(t, r1, got[0], "focus keeps pool order")
	assert.Same(t, r3, got[1])

	assert.Len(t, p.AllRules(), 3)
}

func TestPoolReplace(t *testing.T) {
	p := NewPool()
	p.Add(poolRule("old", []string{"greet(alice)"}, "wave"))
	p.SetFocus("old")

	fresh := poolRule("fresh", []string{"greet(alice)"}, "bow")
	p.Replace([]*types.Rule{fresh})

	assert.Equal(t, 1, p.Len())
	got, err := p.ExactMatches(ParseTrigger("greet alice"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Same(t, fresh, got[0])
	assert.Empty(t, p.FocusRules(), "focus is cleared on reload")
}

func TestPoolPredicates(t *testing.T) {
	p := NewPool()
	p.Add(poolRule("r1", []string{"greet($WHO)", "mood(happy)"}, "wave"))
	p.Add(poolRule("r2", []string{"greet(alice)"}, "nod"))

	preds := p.Predicates()
	assert.Equal(t, map[string]int{"greet": 1, "mood": 1}, preds)
}
