package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psikit/internal/rules"
	"psikit/internal/types"
)

func mustClause(t *testing.T, s string) types.Clause {
	t.Helper()
	cl, err := rules.ParseClause(s)
	require.NoError(t, err)
	return cl
}

func setupKernel(t *testing.T) *Kernel {
	t.Helper()
	k := New(DefaultConfig())
	require.NoError(t, k.DeclarePredicates(map[string]int{
		"greet": 1,
		"mood":  1,
		"pair":  2,
	}))
	return k
}

func TestSatisfiabilityFractions(t *testing.T) {
	k := setupKernel(t)
	require.NoError(t, k.Assert(mustClause(t, "greet(alice)")))

	full := types.NewStructuredCondition(mustClause(t, "greet(alice)"))
	half := types.NewStructuredCondition(mustClause(t, "greet(alice)"), mustClause(t, "mood(happy)"))
	none := types.NewStructuredCondition(mustClause(t, "mood(happy)"))

	for _, tc := range []struct {
		cond types.Condition
		want float64
	}{
		{full, 1.0},
		{half, 0.5},
		{none, 0.0},
	} {
		got, err := k.Satisfiability(tc.cond)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-9, tc.cond.Key())
	}
}

func TestSatisfiabilityVariables(t *testing.T) {
	k := setupKernel(t)
	require.NoError(t, k.Assert(mustClause(t, "greet(alice)")))
	require.NoError(t, k.Assert(mustClause(t, "pair(alice, bob)")))

	variable := types.NewStructuredCondition(mustClause(t, "greet($WHO)"))
	got, err := k.Satisfiability(variable)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9, "variable term unifies with any fact")

	// Repeated variables must bind to the same value.
	twin := types.NewStructuredCondition(mustClause(t, "pair($X, $X)"))
	got, err = k.Satisfiability(twin)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-9, "pair(alice, bob) does not satisfy pair($X, $X)")

	free := types.NewStructuredCondition(mustClause(t, "pair($X, $Y)"))
	got, err = k.Satisfiability(free)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestSatisfiabilityWildcard(t *testing.T) {
	k := setupKernel(t)
	got, err := k.Satisfiability(&types.WildcardCondition{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9, "wildcard conditions are trivially satisfied")
}

func TestSatisfiabilityUndeclaredPredicate(t *testing.T) {
	k := setupKernel(t)
	cond := types.NewStructuredCondition(types.Clause{Predicate: "unknown"})
	got, err := k.Satisfiability(cond)
	require.NoError(t, err, "unknown predicates are unsatisfied, not errors")
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestAssertInputReplacesPreviousTurn(t *testing.T) {
	k := setupKernel(t)

	require.NoError(t, k.AssertInput(mustClause(t, "greet(alice)")))
	cond := types.NewStructuredCondition(mustClause(t, "greet(alice)"))

	got, err := k.Satisfiability(cond)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)

	// A new turn's input retracts the previous one.
	require.NoError(t, k.AssertInput(mustClause(t, "greet(bob)")))
	got, err = k.Satisfiability(cond)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-9, "previous turn's input must not linger")

	require.NoError(t, k.ClearInput())
	assert.Equal(t, 0, k.FactCount())
}

func TestWorldFactsPersistAcrossTurns(t *testing.T) {
	k := setupKernel(t)
	require.NoError(t, k.Assert(mustClause(t, "mood(happy)")))
	require.NoError(t, k.AssertInput(mustClause(t, "greet(alice)")))
	require.NoError(t, k.AssertInput(mustClause(t, "greet(bob)")))

	cond := types.NewStructuredCondition(mustClause(t, "mood(happy)"))
	got, err := k.Satisfiability(cond)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
	assert.Equal(t, 2, k.FactCount())
}

func TestLogicBlockDerivesFacts(t *testing.T) {
	k := New(DefaultConfig())
	require.NoError(t, k.LoadLogic(`
	Decl greeted(A0).
	Decl friendly(A0).
	friendly(X) :- greeted(X).
	`))
	require.NoError(t, k.DeclarePredicates(map[string]int{"greeted": 1}))

	require.NoError(t, k.Assert(mustClause(t, "greeted(alice)")))

	derived := types.NewStructuredCondition(mustClause(t, "friendly(alice)"))
	got, err := k.Satisfiability(derived)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9, "derived facts satisfy conditions")
}

func TestAssertErrors(t *testing.T) {
	k := setupKernel(t)

	err := k.Assert(mustClause(t, "undeclared(x)"))
	assert.Error(t, err)

	err = k.Assert(mustClause(t, "greet(a, b)"))
	assert.Error(t, err, "arity mismatch")

	err = k.Assert(mustClause(t, "greet($X)"))
	assert.Error(t, err, "non-ground clause")
}

func TestFactLimit(t *testing.T) {
	k := New(Config{FactLimit: 1})
	require.NoError(t, k.DeclarePredicates(map[string]int{"greet": 1}))

	require.NoError(t, k.Assert(mustClause(t, "greet(alice)")))
	err := k.Assert(mustClause(t, "greet(bob)"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fact limit exceeded")
}

func TestHasPredicate(t *testing.T) {
	k := setupKernel(t)
	assert.True(t, k.HasPredicate("greet", 1))
	assert.False(t, k.HasPredicate("greet", 2))
	assert.False(t, k.HasPredicate("nope", 1))
}
