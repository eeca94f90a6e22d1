package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"psikit/internal/logging"
	"psikit/internal/types"
)

// scriptFile is the YAML shape of one rule script.
type scriptFile struct {
	Topic string       `yaml:"topic"`
	Logic string       `yaml:"logic"` // optional mangle clauses for the kernel
	Rules []scriptRule `yaml:"rules"`
}

// scriptRule is one rule entry in a script.
type scriptRule struct {
	Name     string   `yaml:"name"`     // optional alias
	Strength *float64 `yaml:"strength"` // default 1.0
	When     []string `yaml:"when"`     // condition clauses, or ["*"]
	Do       string   `yaml:"do"`       // action name
	Args     []string `yaml:"args"`     // action arguments
	Goals    []string `yaml:"goals"`    // one rule instance per goal
}

// LoadResult is the outcome of loading a script directory.
type LoadResult struct {
	Rules  []*types.Rule
	Logic  []string // per-file logic blocks, in file order
	Topics []string
}

// LoadDir parses every *.yaml/*.yml script under dir. Files are parsed
// concurrently but merged in sorted filename order, so pool registration
// order is stable across runs.
func LoadDir(dir string) (*LoadResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read rules dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	sort.Strings(paths)

	type fileResult struct {
		rules []*types.Rule
		logic string
		topic string
	}

	results := make([]fileResult, len(paths))
	var g errgroup.Group
	var mu sync.Mutex

	for i, path := range paths {
		g.Go(func() error {
			rs, logic, topic, err := loadFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			results[i] = fileResult{rules: rs, logic: logic, topic: topic}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &LoadResult{}
	seenTopics := make(map[string]struct{})
	for _, fr := range results {
		out.Rules = append(out.Rules, fr.rules...)
		if fr.logic != "" {
			out.Logic = append(out.Logic, fr.logic)
		}
		if fr.topic != "" {
			if _, ok := seenTopics[fr.topic]; !ok {
				seenTopics[fr.topic] = struct{}{}
				out.Topics = append(out.Topics, fr.topic)
			}
		}
	}

	logging.Rules("loaded %d rules from %d scripts in %s", len(out.Rules), len(paths), dir)
	return out, nil
}

// loadFile parses a single script file into rule instances.
func loadFile(path string) ([]*types.Rule, string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", "", err
	}

	var sf scriptFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, "", "", fmt.Errorf("parse script: %w", err)
	}

	var out []*types.Rule
	for i, sr := range sf.Rules {
		rs, err := expandRule(sr, sf.Topic)
		if err != nil {
			return nil, "", "", fmt.Errorf("rule %d (%s): %w", i, sr.Name, err)
		}
		out = append(out, rs...)
	}
	return out, sf.Logic, sf.Topic, nil
}

// expandRule turns one script entry into rule instances: one per goal, all
// sharing the same Condition object so deduplication retains a single
// candidate for them.
func expandRule(sr scriptRule, topic string) ([]*types.Rule, error) {
	if sr.Do == "" {
		return nil, fmt.Errorf("missing action")
	}

	cond, err := ParseCondition(sr.When)
	if err != nil {
		return nil, err
	}

	strength := 1.0
	if sr.Strength != nil {
		strength = *sr.Strength
	}
	if strength < 0 || strength > 1 {
		return nil, fmt.Errorf("strength %v out of [0,1]", strength)
	}

	action := types.Action{Name: sr.Do, Args: sr.Args}

	goals := sr.Goals
	if len(goals) == 0 {
		goals = []string{""}
	}

	out := make([]*types.Rule, 0, len(goals))
	for _, goal := range goals {
		out = append(out, &types.Rule{
			Name:      sr.Name,
			Topic:     topic,
			Goal:      goal,
			Strength:  strength,
			Condition: cond,
			Action:    action,
		})
	}
	return out, nil
}
