// Package selection implements psikit's action-selection engine: gather the
// rules relevant to an input, weigh each candidate action by rule strength,
// context satisfiability, and importance, then pick one action by weighted
// lottery and record which rule fired.
//
// A selection pass is logically single-threaded: the engine assumes
// non-overlapping invocation by its caller (the behavior tick loop) and keeps
// all pass state (the satisfiability cache and the per-action aggregates)
// local to the pass. The only state crossing passes is the outcome Recorder.
package selection

import (
	"math/rand"
	"time"

	"github.com/google/uuid"

	"psikit/internal/config"
	"psikit/internal/logging"
	"psikit/internal/types"
)

// Evaluator scores a condition against the current world state, in [0,1].
// It may carry side effects and is called at most once per distinct
// condition per pass.
type Evaluator interface {
	Satisfiability(cond types.Condition) (float64, error)
}

// Source provides the candidate rules for both pass modes. The rule pool
// implements it.
type Source interface {
	ExactMatches(t *types.Trigger) ([]*types.Rule, error)
	WildcardRules() []*types.Rule
	IndexedMatches(t *types.Trigger) ([]*types.Rule, error)
	FocusRules() []*types.Rule
	AllRules() []*types.Rule
}

// ImportanceProvider supplies externally assigned rule importance.
type ImportanceProvider interface {
	Importance(r *types.Rule) float64
}

// Random is the process-level uniform source for the roulette draw.
type Random interface {
	Float64() float64 // in [0,1)
}

// SystemRandom returns a time-seeded Random for production use. Tests inject
// fixed sequences instead.
func SystemRandom() Random {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// PassRecord describes one completed selection pass for the history sink.
type PassRecord struct {
	PassID    string
	Mode      string // "trigger" or "focus"
	Trigger   string
	RuleAlias string
	RuleID    string
	Action    string
	Weight    float64
	Selected  bool
}

// HistorySink persists pass records. The sqlite store implements it.
type HistorySink interface {
	RecordPass(rec PassRecord) error
}

// Engine wires the collaborators together. Construct one per rule pool.
type Engine struct {
	source     Source
	eval       Evaluator
	importance ImportanceProvider
	recorder   *Recorder
	rng        Random
	cfg        config.SelectionConfig
	history    HistorySink
	topic      string
}

// NewEngine builds an engine. recorder and rng must be non-nil; history is
// optional.
func NewEngine(src Source, eval Evaluator, imp ImportanceProvider, rec *Recorder, rng Random, cfg config.SelectionConfig) *Engine {
	return &Engine{
		source:     src,
		eval:       eval,
		importance: imp,
		recorder:   rec,
		rng:        rng,
		cfg:        cfg,
	}
}

// SetHistory attaches a pass-history sink.
func (e *Engine) SetHistory(h HistorySink) { e.history = h }

// SetTopic sets the active topic used by the topic-boost fallback.
func (e *Engine) SetTopic(topic string) { e.topic = topic }

// Topic returns the active topic.
func (e *Engine) Topic() string { return e.topic }

// Recorder exposes the outcome slot for rejoinder lookups.
func (e *Engine) Recorder() *Recorder { return e.recorder }

// SelectFromTrigger runs an input-driven pass. It returns the winning rule,
// or (nil, nil) when no action is currently applicable: empty is an answer,
// not a failure. Collaborator errors propagate; a pass is stateless and safe
// to re-invoke with the same trigger.
func (e *Engine) SelectFromTrigger(t *types.Trigger) (*types.Rule, error) {
	passID := uuid.NewString()
	plog := logging.WithPassID(logging.CategorySelect, passID)
	timer := logging.StartTimer(logging.CategorySelect, "trigger pass "+passID)
	defer timer.Stop()

	candidates, err := gatherTriggered(e.source, t, plog)
	if err != nil {
		return nil, err
	}

	// Importance scores default to zero when the attention subsystem is not
	// running; triggered passes fall back to the topic boost so selection is
	// not starved.
	useBoost := !e.cfg.ImportanceEnabled
	return e.runPass(passID, "trigger", triggerText(t), candidates, useBoost, plog)
}

// SelectFromFocus runs an attention-driven pass over the salient rule subset
// (or the whole pool when focus filtering is disabled). Focus passes always
// weigh by the raw importance score, never the topic boost.
func (e *Engine) SelectFromFocus() (*types.Rule, error) {
	passID := uuid.NewString()
	plog := logging.WithPassID(logging.CategorySelect, passID)
	timer := logging.StartTimer(logging.CategorySelect, "focus pass "+passID)
	defer timer.Stop()

	candidates := gatherFocus(e.source, e.cfg.FocusFilter, plog)
	return e.runPass(passID, "focus", "", candidates, false, plog)
}

// runPass weighs candidates, draws a winner, and records the outcome. The
// cache and aggregates are constructed here and die with the pass.
func (e *Engine) runPass(passID, mode, trigger string, candidates []*types.Rule, useBoost bool, plog *logging.PassLogger) (*types.Rule, error) {
	if len(candidates) == 0 {
		plog.Info("%s pass: no candidates", mode)
		e.recordHistory(PassRecord{PassID: passID, Mode: mode, Trigger: trigger})
		return nil, nil
	}

	w := &weigher{
		cache:      newSatCache(e.eval),
		importance: e.importance,
		cfg:        e.cfg,
		topic:      e.topic,
		topicBoost: useBoost,
	}
	aggs, err := w.aggregate(candidates, plog)
	if err != nil {
		return nil, err
	}

	winner := pick(aggs, e.rng, plog)
	if winner == nil {
		plog.Info("%s pass: %d candidates, no positive-weight action", mode, len(candidates))
		e.recordHistory(PassRecord{PassID: passID, Mode: mode, Trigger: trigger})
		return nil, nil
	}

	if winner.Name != "" {
		e.recorder.Write(winner.Name)
	}

	rec := PassRecord{
		PassID:    passID,
		Mode:      mode,
		Trigger:   trigger,
		RuleAlias: winner.Name,
		RuleID:    winner.ID(),
		Action:    winner.Action.Key(),
		Selected:  true,
	}
	for _, a := range aggs {
		if a.firstRule == winner {
			rec.Weight = a.weight()
			break
		}
	}
	e.recordHistory(rec)

	plog.Info("%s pass: selected rule %s action %s", mode, winner.ID(), winner.Action.Key())
	return winner, nil
}

func (e *Engine) recordHistory(rec PassRecord) {
	if e.history == nil {
		return
	}
	if err := e.history.RecordPass(rec); err != nil {
		logging.StoreError("record pass %s: %v", rec.PassID, err)
	}
}

func triggerText(t *types.Trigger) string {
	if t == nil {
		return ""
	}
	return t.Text
}
