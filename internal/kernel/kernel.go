// Package kernel provides the Mangle-backed world model psikit evaluates
// rule conditions against. Predicates come from the loaded rule scripts,
// optional datalog logic blocks derive higher-level facts, and condition
// satisfiability is the fraction of condition clauses with at least one
// unifying fact in the store.
package kernel

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	_ "github.com/google/mangle/packages"
	"github.com/google/mangle/parse"

	"psikit/internal/logging"
	"psikit/internal/types"
)

// Config holds kernel configuration.
type Config struct {
	FactLimit int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{FactLimit: 100000}
}

// Kernel wraps the Mangle engine as psikit's world model. World facts are
// long-lived; input facts are replaced every turn. The fact store is rebuilt
// on input replacement so derived facts never go stale (datalog evaluation
// is monotonic, retraction alone would leave stale derivations behind).
type Kernel struct {
	config Config

	mu              sync.RWMutex
	schemaFragments []parse.SourceUnit
	programInfo     *analysis.ProgramInfo
	predicateIndex  map[string]ast.PredicateSym
	store           factstore.FactStore
	world           []ast.Atom // persistent world facts
	input           []ast.Atom // current turn's input facts
}

// New creates a kernel with no declared predicates.
func New(cfg Config) *Kernel {
	return &Kernel{
		config:         cfg,
		predicateIndex: make(map[string]ast.PredicateSym),
		store:          factstore.NewSimpleInMemoryStore(),
	}
}

// LoadLogic parses and installs a datalog fragment (Decls and rules) from a
// rule script's logic block.
func (k *Kernel) LoadLogic(src string) error {
	unit, err := parse.Unit(bytes.NewReader([]byte(src)))
	if err != nil {
		return fmt.Errorf("failed to parse logic block: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.schemaFragments = append(k.schemaFragments, unit)
	if err := k.rebuildProgramLocked(); err != nil {
		return fmt.Errorf("failed to analyze logic block: %w", err)
	}
	return nil
}

// DeclarePredicates declares pool predicates that no logic block already
// declared. Call after all LoadLogic calls.
func (k *Kernel) DeclarePredicates(preds map[string]int) error {
	k.mu.RLock()
	var b strings.Builder
	for name, arity := range preds {
		if _, ok := k.predicateIndex[name]; ok {
			continue
		}
		args := make([]string, arity)
		for i := range args {
			args[i] = fmt.Sprintf("A%d", i)
		}
		fmt.Fprintf(&b, "Decl %s(%s).\n", name, strings.Join(args, ", "))
	}
	k.mu.RUnlock()

	if b.Len() == 0 {
		return nil
	}
	return k.LoadLogic(b.String())
}

// rebuildProgramLocked analyzes all loaded fragments and refreshes the
// predicate index.
func (k *Kernel) rebuildProgramLocked() error {
	var clauses []ast.Clause
	var decls []ast.Decl
	for _, fragment := range k.schemaFragments {
		clauses = append(clauses, fragment.Clauses...)
		decls = append(decls, fragment.Decls...)
	}

	programInfo, err := analysis.AnalyzeOneUnit(parse.SourceUnit{Clauses: clauses, Decls: decls}, nil)
	if err != nil {
		return err
	}

	k.programInfo = programInfo
	k.predicateIndex = make(map[string]ast.PredicateSym, len(programInfo.Decls))
	for sym := range programInfo.Decls {
		k.predicateIndex[sym.Symbol] = sym
	}
	return nil
}

// Assert adds a persistent world fact.
func (k *Kernel) Assert(clause types.Clause) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	atom, err := k.clauseToAtomLocked(clause)
	if err != nil {
		return err
	}
	if k.config.FactLimit > 0 && len(k.world)+len(k.input) >= k.config.FactLimit {
		return fmt.Errorf("fact limit exceeded: %d", k.config.FactLimit)
	}

	k.world = append(k.world, atom)
	return k.rebuildStoreLocked()
}

// AssertInput replaces the previous turn's input facts with the trigger
// clause. Satisfiability is time-dependent on world state; the previous
// turn's input must not linger.
func (k *Kernel) AssertInput(clause types.Clause) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	atom, err := k.clauseToAtomLocked(clause)
	if err != nil {
		return err
	}

	k.input = []ast.Atom{atom}
	return k.rebuildStoreLocked()
}

// ClearInput drops the current turn's input facts.
func (k *Kernel) ClearInput() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.input = nil
	return k.rebuildStoreLocked()
}

// rebuildStoreLocked loads world+input facts into a fresh store and re-runs
// the datalog program over it.
func (k *Kernel) rebuildStoreLocked() error {
	store := factstore.NewSimpleInMemoryStore()
	for _, atom := range k.world {
		store.Add(atom)
	}
	for _, atom := range k.input {
		store.Add(atom)
	}
	k.store = store

	if k.programInfo == nil {
		return nil
	}
	if _, err := mengine.EvalProgramWithStats(k.programInfo, store); err != nil {
		return fmt.Errorf("rule evaluation: %w", err)
	}
	return nil
}

// HasPredicate reports whether a predicate with the given arity is declared.
func (k *Kernel) HasPredicate(name string, arity int) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	sym, ok := k.predicateIndex[name]
	return ok && sym.Arity == arity
}

// FactCount returns the number of asserted base facts (world + input).
func (k *Kernel) FactCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.world) + len(k.input)
}

// Satisfiability returns the fuzzy truth degree of a condition against the
// current store: the fraction of its clauses with at least one unifying
// fact. Wildcard conditions (no clauses) are trivially satisfied.
func (k *Kernel) Satisfiability(cond types.Condition) (float64, error) {
	clauses := cond.Clauses()
	if len(clauses) == 0 {
		return 1.0, nil
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	satisfied := 0
	for _, cl := range clauses {
		ok, err := k.clauseSatisfiedLocked(cl)
		if err != nil {
			return 0, err
		}
		if ok {
			satisfied++
		}
	}

	score := float64(satisfied) / float64(len(clauses))
	logging.KernelDebug("satisfiability %q = %.3f (%d/%d clauses)", cond.Key(), score, satisfied, len(clauses))
	return score, nil
}

// clauseSatisfiedLocked checks whether any stored fact unifies with the
// clause. Variables bind, and repeated variables within a clause must bind
// to the same value.
func (k *Kernel) clauseSatisfiedLocked(cl types.Clause) (bool, error) {
	sym, ok := k.predicateIndex[cl.Predicate]
	if !ok {
		// Undeclared predicate: the clause cannot hold, but a script
		// referencing unknown predicates is not a pass failure.
		logging.KernelDebug("predicate %s not declared; clause unsatisfied", cl.Predicate)
		return false, nil
	}
	if sym.Arity != len(cl.Terms) {
		return false, fmt.Errorf("predicate %s expects %d args, clause has %d", cl.Predicate, sym.Arity, len(cl.Terms))
	}

	found := false
	err := k.store.GetFacts(ast.NewQuery(sym), func(fact ast.Atom) error {
		if found {
			return nil
		}
		if unifies(cl, fact) {
			found = true
		}
		return nil
	})
	return found, err
}

func unifies(cl types.Clause, fact ast.Atom) bool {
	bindings := make(map[string]string)
	for i, term := range cl.Terms {
		val, ok := constantValue(fact.Args[i])
		if !ok {
			return false
		}
		if term.Variable {
			if bound, seen := bindings[term.Value]; seen {
				if bound != val {
					return false
				}
			} else {
				bindings[term.Value] = val
			}
			continue
		}
		if term.Value != val {
			return false
		}
	}
	return true
}

func constantValue(term ast.BaseTerm) (string, bool) {
	c, ok := term.(ast.Constant)
	if !ok {
		return "", false
	}
	switch c.Type {
	case ast.StringType, ast.NameType:
		return strings.TrimPrefix(c.Symbol, "/"), true
	default:
		return c.String(), true
	}
}

// clauseToAtomLocked converts a ground clause to a store atom. All terms are
// stored as string constants.
func (k *Kernel) clauseToAtomLocked(cl types.Clause) (ast.Atom, error) {
	if !cl.Ground() {
		return ast.Atom{}, fmt.Errorf("cannot assert non-ground clause %s", cl.Key())
	}

	sym, ok := k.predicateIndex[cl.Predicate]
	if !ok {
		return ast.Atom{}, fmt.Errorf("predicate %s is not declared", cl.Predicate)
	}
	if sym.Arity != len(cl.Terms) {
		return ast.Atom{}, fmt.Errorf("predicate %s expects %d args, got %d", cl.Predicate, sym.Arity, len(cl.Terms))
	}

	args := make([]ast.BaseTerm, len(cl.Terms))
	for i, t := range cl.Terms {
		args[i] = ast.String(t.Value)
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}
