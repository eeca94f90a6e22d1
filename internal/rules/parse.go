// Package rules owns the rule pool: script parsing, YAML loading, the
// wildcard registry, the term index used for approximate matching, the focus
// set, and hot reload of edited scripts. The pool is the candidate source the
// selection engine gathers from.
package rules

import (
	"fmt"
	"strings"
	"unicode"

	"psikit/internal/types"
)

// ParseClause parses one condition clause in script form, e.g.
// "greet(alice, $WHO)". Terms starting with $ or written entirely in
// uppercase are variables; everything else is a constant. A bare predicate
// with no parentheses is a zero-argument clause.
func ParseClause(s string) (types.Clause, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.Clause{}, fmt.Errorf("empty clause")
	}

	open := strings.IndexByte(s, '(')
	if open < 0 {
		if !validPredicate(s) {
			return types.Clause{}, fmt.Errorf("invalid predicate %q", s)
		}
		return types.Clause{Predicate: s}, nil
	}

	if !strings.HasSuffix(s, ")") {
		return types.Clause{}, fmt.Errorf("unterminated clause %q", s)
	}

	pred := strings.TrimSpace(s[:open])
	if !validPredicate(pred) {
		return types.Clause{}, fmt.Errorf("invalid predicate %q in clause %q", pred, s)
	}

	body := strings.TrimSpace(s[open+1 : len(s)-1])
	if body == "" {
		return types.Clause{Predicate: pred}, nil
	}

	var terms []types.Term
	for _, raw := range strings.Split(body, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			return types.Clause{}, fmt.Errorf("empty term in clause %q", s)
		}
		terms = append(terms, parseTerm(tok))
	}

	return types.Clause{Predicate: pred, Terms: terms}, nil
}

func parseTerm(tok string) types.Term {
	if strings.HasPrefix(tok, "$") {
		return types.Var(strings.TrimPrefix(tok, "$"))
	}
	if isAllUpper(tok) {
		return types.Var(tok)
	}
	return types.Const(tok)
}

// ParseCondition parses a script `when:` block into a Condition. A single
// "*" entry produces a wildcard condition; anything else is a structured
// conjunction of clauses.
func ParseCondition(when []string) (types.Condition, error) {
	if len(when) == 0 {
		return nil, fmt.Errorf("rule has no condition")
	}

	if len(when) == 1 && strings.TrimSpace(when[0]) == "*" {
		return &types.WildcardCondition{}, nil
	}

	clauses := make([]types.Clause, 0, len(when))
	for _, line := range when {
		cl, err := ParseClause(line)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, cl)
	}
	return types.NewStructuredCondition(clauses...), nil
}

// ParseTrigger extracts the matchable clause from one line of input: the
// first token becomes the predicate, the remaining tokens constant terms.
// Input that yields no predicate structure produces an empty trigger, which
// is not an error (the gatherer returns no candidates for it).
func ParseTrigger(text string) *types.Trigger {
	fields := strings.Fields(normalize(text))
	if len(fields) == 0 {
		return &types.Trigger{Text: text}
	}
	if !validPredicate(fields[0]) {
		return &types.Trigger{Text: text}
	}

	terms := make([]types.Term, 0, len(fields)-1)
	for _, f := range fields[1:] {
		terms = append(terms, types.Const(f))
	}
	return &types.Trigger{
		Clause: types.Clause{Predicate: fields[0], Terms: terms},
		Text:   text,
	}
}

// normalize lowercases input and strips punctuation so "Hello, Alice!" and
// "hello alice" extract the same clause.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// validPredicate matches the mangle identifier shape: [a-z_][a-zA-Z0-9_]*.
func validPredicate(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !((c >= 'a' && c <= 'z') || c == '_') {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}
