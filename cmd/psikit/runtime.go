package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"psikit/internal/attention"
	"psikit/internal/config"
	"psikit/internal/kernel"
	"psikit/internal/logging"
	"psikit/internal/rules"
	"psikit/internal/selection"
	"psikit/internal/store"
	"psikit/internal/types"
)

// runtime wires config, logging, kernel, pool, store, and engine together
// for the CLI commands.
type runtime struct {
	Config  *config.Config
	Pool    *rules.Pool
	Kernel  *kernel.Kernel
	Store   *store.Store
	Engine  *selection.Engine
	watcher *rules.Watcher
	cancel  context.CancelFunc
}

func newRuntime(workspace, activeTopic string) (*runtime, error) {
	cfg, err := config.Load(config.Path(workspace))
	if err != nil {
		return nil, err
	}

	if err := logging.Initialize(workspace); err != nil {
		return nil, err
	}
	logging.Boot("psikit %s starting in %s", cfg.Version, workspace)
	logger.Info("starting psikit",
		zap.String("version", cfg.Version),
		zap.String("workspace", workspace),
		zap.String("topic", activeTopic))

	k := kernel.New(kernel.Config{FactLimit: cfg.Kernel.FactLimit})
	pool := rules.NewPool()

	rulesDir := cfg.Rules.Dir
	if !filepath.IsAbs(rulesDir) {
		rulesDir = filepath.Join(workspace, rulesDir)
	}

	loadAll := func() error {
		result, err := rules.LoadDir(rulesDir)
		if err != nil {
			return err
		}
		for _, logic := range result.Logic {
			if err := k.LoadLogic(logic); err != nil {
				return err
			}
		}
		pool.Replace(result.Rules)
		return k.DeclarePredicates(pool.Predicates())
	}
	if err := loadAll(); err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	logger.Info("rules loaded",
		zap.Int("rules", pool.Len()),
		zap.String("dir", rulesDir))

	dbPath := cfg.Store.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workspace, dbPath)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	recorder := selection.NewRecorderWithSink(st)
	bank := attention.NewBank()
	engine := selection.NewEngine(pool, k, bank, recorder, selection.SystemRandom(), cfg.Selection)
	engine.SetHistory(st)
	engine.SetTopic(activeTopic)

	rt := &runtime{
		Config: cfg,
		Pool:   pool,
		Kernel: k,
		Store:  st,
		Engine: engine,
	}

	if cfg.Rules.Watch {
		w, err := rules.NewWatcher(rulesDir, loadAll)
		if err != nil {
			return nil, fmt.Errorf("start watcher: %w", err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		if err := w.Start(ctx); err != nil {
			cancel()
			return nil, fmt.Errorf("start watcher: %w", err)
		}
		logger.Info("watching rule scripts", zap.String("dir", rulesDir))
		rt.watcher = w
		rt.cancel = cancel
	}

	return rt, nil
}

// SelectOnce asserts the input into the world model and runs one triggered
// pass. A nil rule with nil error means no action is applicable.
func (rt *runtime) SelectOnce(input string) (*types.Rule, error) {
	trigger := rules.ParseTrigger(input)
	logger.Info("processing input",
		zap.String("input", input),
		zap.Bool("structured", !trigger.Empty()))

	// Inputs over undeclared predicates cannot satisfy any condition, so
	// they are not asserted into the world model.
	if !trigger.Empty() && rt.Kernel.HasPredicate(trigger.Clause.Predicate, len(trigger.Clause.Terms)) {
		if err := rt.Kernel.AssertInput(trigger.Clause); err != nil {
			return nil, err
		}
	}

	winner, err := rt.Engine.SelectFromTrigger(trigger)
	if err != nil {
		logger.Error("selection pass failed", zap.String("input", input), zap.Error(err))
		return nil, err
	}
	if winner == nil {
		logger.Info("no action applicable", zap.String("input", input))
		return nil, nil
	}
	logger.Info("action selected",
		zap.String("action", winner.Action.Key()),
		zap.String("rule", winner.ID()))
	return winner, nil
}

// RunOnce runs one triggered pass and prints the result.
func (rt *runtime) RunOnce(input string, out io.Writer) error {
	winner, err := rt.SelectOnce(input)
	if err != nil {
		return err
	}
	if winner == nil {
		fmt.Fprintln(out, "(no action applicable)")
		return nil
	}

	fmt.Fprintf(out, "%s\n", winner.Action.Key())
	if winner.Name != "" {
		fmt.Fprintf(out, "  [rule %s]\n", winner.Name)
	}
	return nil
}

// RunFocus runs one attention-driven pass.
func (rt *runtime) RunFocus(out io.Writer) error {
	winner, err := rt.Engine.SelectFromFocus()
	if err != nil {
		logger.Error("focus pass failed", zap.Error(err))
		return err
	}
	if winner == nil {
		logger.Info("no action applicable in focus pass")
		fmt.Fprintln(out, "(no action applicable)")
		return nil
	}
	logger.Info("action selected",
		zap.String("action", winner.Action.Key()),
		zap.String("rule", winner.ID()))
	fmt.Fprintf(out, "%s\n", winner.Action.Key())
	return nil
}

func (rt *runtime) Close() {
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	if rt.cancel != nil {
		rt.cancel()
	}
	if rt.Store != nil {
		_ = rt.Store.Close()
	}
	logging.CloseAll()
}
