// Package types provides shared type definitions used across psikit packages.
// This package exists to break import cycles between rules, kernel, and
// selection. Types in this package should be foundational data structures
// with no complex dependencies.
package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// CONDITION PRIMITIVES
// =============================================================================

// Term is a single argument slot in a clause: either a constant value or a
// named variable. Variables unify with anything during satisfiability checks.
type Term struct {
	Value    string
	Variable bool
}

// Const builds a constant term.
func Const(v string) Term { return Term{Value: v} }

// Var builds a variable term.
func Var(name string) Term { return Term{Value: name, Variable: true} }

// String returns the canonical script form of the term ($X for variables).
func (t Term) String() string {
	if t.Variable {
		return "$" + t.Value
	}
	return t.Value
}

// Clause is one predicate application inside a condition, e.g. greet(alice)
// or greet($WHO).
type Clause struct {
	Predicate string
	Terms     []Term
}

// Key returns the canonical string form of the clause, used for exact-match
// indexing and logging.
func (c Clause) Key() string {
	parts := make([]string, len(c.Terms))
	for i, t := range c.Terms {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", c.Predicate, strings.Join(parts, ", "))
}

// Ground reports whether the clause contains no variables.
func (c Clause) Ground() bool {
	for _, t := range c.Terms {
		if t.Variable {
			return false
		}
	}
	return true
}

// HasConstant reports whether any term of the clause is a constant.
func (c Clause) HasConstant() bool {
	for _, t := range c.Terms {
		if !t.Variable {
			return true
		}
	}
	return false
}

// =============================================================================
// CONDITIONS
// =============================================================================

// Condition is the condition half of a rule. Two variants exist: structured
// conditions (ordered predicate clauses) and wildcard conditions (match any
// trigger). Conditions are compared by object identity: several rules may
// share the exact same Condition value, and deduplication, caching, and
// single-evaluation guarantees all key on that identity, not on Key().
type Condition interface {
	// Key returns a human-readable canonical form. It is NOT an identity:
	// distinct wildcard conditions share the key "*".
	Key() string
	// Clauses returns the clause list; empty for wildcard conditions.
	Clauses() []Clause
	// Wildcard reports whether the condition matches any trigger.
	Wildcard() bool
}

// StructuredCondition is an ordered conjunction of clauses.
type StructuredCondition struct {
	clauses []Clause
	key     string
}

// NewStructuredCondition builds a condition from clauses. Clause order is
// preserved and participates in the canonical key.
func NewStructuredCondition(clauses ...Clause) *StructuredCondition {
	keys := make([]string, len(clauses))
	for i, cl := range clauses {
		keys[i] = cl.Key()
	}
	return &StructuredCondition{
		clauses: clauses,
		key:     strings.Join(keys, " & "),
	}
}

func (c *StructuredCondition) Key() string       { return c.key }
func (c *StructuredCondition) Clauses() []Clause { return c.clauses }
func (c *StructuredCondition) Wildcard() bool    { return false }

// Ground reports whether every clause is variable-free.
func (c *StructuredCondition) Ground() bool {
	for _, cl := range c.clauses {
		if !cl.Ground() {
			return false
		}
	}
	return true
}

// HasConstant reports whether any clause carries a constant term. Conditions
// without constants are template rules and go to the wildcard registry.
func (c *StructuredCondition) HasConstant() bool {
	for _, cl := range c.clauses {
		if cl.HasConstant() {
			return true
		}
	}
	return false
}

// WildcardCondition matches any trigger. Each loaded wildcard rule gets its
// own instance so identity comparison still distinguishes them. The pad keeps
// the struct non-zero-sized: zero-size heap allocations share a single
// address, which would collapse every wildcard rule into one identity.
type WildcardCondition struct {
	_ [1]byte
}

func (c *WildcardCondition) Key() string       { return "*" }
func (c *WildcardCondition) Clauses() []Clause { return nil }
func (c *WildcardCondition) Wildcard() bool    { return true }

// =============================================================================
// ACTIONS, RULES, TRIGGERS
// =============================================================================

// Action is the action half of a rule. Actions are opaque to the selection
// core: only their identity matters, and several rules may point at the same
// action.
type Action struct {
	Name string
	Args []string
}

// Key returns the aggregation identity of the action.
func (a Action) Key() string {
	if len(a.Args) == 0 {
		return a.Name
	}
	return a.Name + "(" + strings.Join(a.Args, ", ") + ")"
}

func (a Action) String() string { return a.Key() }

// Rule is an immutable condition→action association. The selection core only
// reads rules; creation and ownership belong to the rule pool.
type Rule struct {
	// Name is the optional user-facing alias, used for outcome recording.
	Name string
	// Topic groups rules for the topic-boost fallback.
	Topic string
	// Goal the rule serves. Goal-expanded instances share the Condition.
	Goal string
	// Strength is the rule's own confidence in [0,1].
	Strength  float64
	Condition Condition
	Action    Action
}

// ID returns a stable identifier for logging: the alias when present,
// otherwise the condition/action shape.
func (r *Rule) ID() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Condition.Key() + " -> " + r.Action.Key()
}

// Trigger is the extracted representation of one input: a single ground
// clause plus the raw text it came from. How text becomes a clause is host
// business (see rules.ParseTrigger); the selection core treats it as opaque.
type Trigger struct {
	Clause Clause
	Text   string
}

// Empty reports whether the input yielded no matchable predicate structure.
func (t *Trigger) Empty() bool {
	return t == nil || t.Clause.Predicate == ""
}
