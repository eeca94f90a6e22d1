package main

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	workspace string
	topic     string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "psikit",
	Short: "psikit - rule-based action selection engine",
	Long: `psikit selects actions from condition→action rule scripts.

Each input is matched against the rule pool (exact, wildcard, and indexed
matching), candidate actions are weighted by rule strength, context
satisfiability against a Mangle world model, and importance, and one action
is chosen by weighted lottery. The winning rule's alias feeds rejoinder
state for follow-up logic.

Run 'psikit repl' for an interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd performs one selection pass for a single input
var runCmd = &cobra.Command{
	Use:   "run <input...>",
	Short: "Run one selection pass for an input",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(workspace, topic)
		if err != nil {
			return err
		}
		defer rt.Close()

		input := strings.Join(args, " ")
		return rt.RunOnce(input, os.Stdout)
	},
}

// focusCmd performs one attention-driven pass
var focusCmd = &cobra.Command{
	Use:   "focus",
	Short: "Run one attention-driven selection pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(workspace, topic)
		if err != nil {
			return err
		}
		defer rt.Close()

		return rt.RunFocus(os.Stdout)
	},
}

// replCmd runs the interactive selection TUI
var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive selection loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(workspace, topic)
		if err != nil {
			return err
		}
		defer rt.Close()

		logger.Info("starting repl", zap.String("workspace", workspace))
		p := tea.NewProgram(newReplModel(rt))
		_, err = p.Run()
		return err
	},
}

// rulesCmd lists the loaded rule pool
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List loaded rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(workspace, topic)
		if err != nil {
			return err
		}
		defer rt.Close()

		for _, r := range rt.Pool.All() {
			alias := r.Name
			if alias == "" {
				alias = "-"
			}
			fmt.Printf("%-20s %5.2f  %-30s -> %s\n", alias, r.Strength, r.Condition.Key(), r.Action.Key())
		}
		fmt.Printf("%d rules\n", rt.Pool.Len())
		return nil
	},
}

// historyCmd shows recent selection passes
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent selection passes",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := newRuntime(workspace, topic)
		if err != nil {
			return err
		}
		defer rt.Close()

		passes, err := rt.Store.RecentPasses(limit)
		if err != nil {
			return err
		}
		for _, p := range passes {
			status := "-"
			if p.Selected {
				status = p.Action
			}
			fmt.Printf("%s  %-7s  %-30q  %s\n", p.Timestamp.Format("2006-01-02 15:04:05"), p.Mode, p.Trigger, status)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().StringVarP(&topic, "topic", "t", "", "active topic for topic-boost weighting")

	historyCmd.Flags().Int("limit", 20, "number of passes to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
