package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"psikit/internal/types"
)

func TestParseClause(t *testing.T) {
	tests := []struct {
		in   string
		want types.Clause
	}{
		{"greet(alice)", types.Clause{Predicate: "greet", Terms: []types.Term{types.Const("alice")}}},
		{"greet($WHO)", types.Clause{Predicate: "greet", Terms: []types.Term{types.Var("WHO")}}},
		{"greet(WHO)", types.Clause{Predicate: "greet", Terms: []types.Term{types.Var("WHO")}}},
		{"pair(alice, $X)", types.Clause{Predicate: "pair", Terms: []types.Term{types.Const("alice"), types.Var("X")}}},
		{"idle", types.Clause{Predicate: "idle"}},
		{"idle()", types.Clause{Predicate: "idle"}},
		{"  spaced ( a , b ) ", types.Clause{Predicate: "spaced", Terms: []types.Term{types.Const("a"), types.Const("b")}}},
	}
	for _, tc := range tests {
		got, err := ParseClause(tc.in)
		require.NoError(t, err, tc.in)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("ParseClause(%q) mismatch (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestParseClauseErrors(t *testing.T) {
	for _, in := range []string{"", "Greet(alice)", "greet(alice", "greet(,)", "9bad(x)"} {
		_, err := ParseClause(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseConditionWildcard(t *testing.T) {
	cond, err := ParseCondition([]string{"*"})
	require.NoError(t, err)
	assert.True(t, cond.Wildcard())
	assert.Empty(t, cond.Clauses())
}

func TestParseConditionStructured(t *testing.T) {
	cond, err := ParseCondition([]string{"greet($WHO)", "mood(happy)"})
	require.NoError(t, err)
	require.Len(t, cond.Clauses(), 2)
	assert.Equal(t, "greet($WHO) & mood(happy)", cond.Key())
	assert.False(t, cond.Wildcard())
}

func TestParseConditionEmpty(t *testing.T) {
	_, err := ParseCondition(nil)
	assert.Error(t, err)
}

func TestParseTrigger(t *testing.T) {
	tr := ParseTrigger("Hello, Alice!")
	require.False(t, tr.Empty())
	assert.Equal(t, "hello(alice)", tr.Clause.Key())
	assert.Equal(t, "Hello, Alice!", tr.Text)

	tr = ParseTrigger("greet alice bob")
	assert.Equal(t, "greet(alice, bob)", tr.Clause.Key())
}

func TestParseTriggerNoStructure(t *testing.T) {
	for _, in := range []string{"", "   ", "?!?", "42 is fine"} {
		tr := ParseTrigger(in)
		assert.True(t, tr.Empty(), "input %q", in)
	}
}
