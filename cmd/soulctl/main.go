// Command soulctl runs synthesis cycles against a local corpus and inspects the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/live-neon/neon-soul-sub003/internal/app"
	"github.com/live-neon/neon-soul-sub003/internal/buildconfig"
	"github.com/live-neon/neon-soul-sub003/internal/config"
	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/service"
	"github.com/live-neon/neon-soul-sub003/internal/store"
)

func main() {
	if err := config.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	dbPath   string
	logLevel string
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "soulctl",
		Short:         "Synthesize principles and axioms from behavioral signals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite corpus path (default $SQLITE_PATH or neon-soul.db)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(runCmd(g), showCmd(g), versionCmd())
	return cmd
}

func runCmd(g *globalFlags) *cobra.Command {
	var (
		signalsPath string
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one synthesis cycle over a YAML or JSON file of signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRunRequest(signalsPath)
			if err != nil {
				return err
			}
			req.ForceResynthesis = req.ForceResynthesis || force

			engine, err := openEngine(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer engine.Close()

			result, err := engine.Synthesis.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), summarizeRun(result))
		},
	}
	cmd.Flags().StringVarP(&signalsPath, "signals", "s", "", "Signals file (YAML or JSON)")
	cmd.Flags().BoolVar(&force, "force", false, "Force full resynthesis")
	_ = cmd.MarkFlagRequired("signals")
	return cmd
}

func showCmd(g *globalFlags) *cobra.Command {
	var promotableOnly bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the latest corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer engine.Close()

			corpus, err := engine.Store.Latest(cmd.Context())
			if errors.Is(err, store.ErrNotFound) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "no corpus yet")
				return err
			}
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), summarizeCorpus(corpus, promotableOnly))
		},
	}
	cmd.Flags().BoolVar(&promotableOnly, "promotable", false, "Only list promotable axioms")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), buildconfig.Get().String())
			return err
		},
	}
}

func openEngine(ctx context.Context, g *globalFlags) (*app.App, error) {
	return app.New(ctx, app.Options{
		CorpusBackend: app.BackendSQLite,
		SQLitePath:    g.dbPath,
	}, newLogger(g.logLevel))
}

func readRunRequest(path string) (service.RunRequest, error) {
	var req service.RunRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("read signals: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("parse signals %s: %w", path, err)
	}
	return req, nil
}

func newLogger(level string) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Views

type axiomView struct {
	Text       string  `yaml:"text"`
	Tier       string  `yaml:"tier"`
	Dimension  string  `yaml:"dimension,omitempty"`
	Weight     float64 `yaml:"evidence_weight"`
	Signals    int     `yaml:"signal_count"`
	Promotable bool    `yaml:"promotable"`
	Blocker    string  `yaml:"blocker,omitempty"`
	Tensions   int     `yaml:"tensions,omitempty"`
}

type tensionView struct {
	Severity    string `yaml:"severity"`
	A           string `yaml:"a"`
	B           string `yaml:"b"`
	Description string `yaml:"description"`
}

type runView struct {
	CorpusID   string          `yaml:"corpus_id"`
	Cycle      int             `yaml:"cycle"`
	Mode       string          `yaml:"mode"`
	Reason     string          `yaml:"reason"`
	Triggers   []string        `yaml:"triggers,omitempty"`
	Stats      domain.RunStats `yaml:"stats"`
	Principles int             `yaml:"principles"`
	Orphaned   int             `yaml:"orphaned_signals"`
	Axioms     []axiomView     `yaml:"axioms"`
	Tensions   []tensionView   `yaml:"tensions,omitempty"`
	Warnings   []string        `yaml:"warnings,omitempty"`
}

type corpusView struct {
	CorpusID   string        `yaml:"corpus_id"`
	Cycle      int           `yaml:"cycle"`
	CreatedAt  string        `yaml:"created_at"`
	Mode       string        `yaml:"mode"`
	Principles int           `yaml:"principles"`
	Axioms     []axiomView   `yaml:"axioms"`
	Tensions   []tensionView `yaml:"tensions,omitempty"`
}

func summarizeRun(r *domain.RunResult) runView {
	return runView{
		CorpusID:   r.CorpusID.String(),
		Cycle:      r.Cycle,
		Mode:       string(r.CycleDecision.Mode),
		Reason:     r.CycleDecision.Reason,
		Triggers:   r.CycleDecision.Triggers,
		Stats:      r.Stats,
		Principles: len(r.Principles),
		Orphaned:   len(r.OrphanedSignals),
		Axioms:     axiomViews(r.Axioms, false),
		Tensions:   tensionViews(r.Axioms, r.Tensions),
		Warnings:   r.Warnings,
	}
}

func summarizeCorpus(c *domain.Corpus, promotableOnly bool) corpusView {
	return corpusView{
		CorpusID:   c.ID.String(),
		Cycle:      c.Cycle,
		CreatedAt:  c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Mode:       string(c.Decision.Mode),
		Principles: len(c.Principles),
		Axioms:     axiomViews(c.Axioms, promotableOnly),
		Tensions:   tensionViews(c.Axioms, c.Tensions),
	}
}

func axiomViews(axioms []domain.Axiom, promotableOnly bool) []axiomView {
	out := make([]axiomView, 0, len(axioms))
	for _, a := range axioms {
		if promotableOnly && !a.Promotable {
			continue
		}
		out = append(out, axiomView{
			Text:       a.Text,
			Tier:       string(a.Tier),
			Dimension:  a.Dimension,
			Weight:     a.EvidenceWeight,
			Signals:    a.SignalCount,
			Promotable: a.Promotable,
			Blocker:    a.PromotionBlocker,
			Tensions:   len(a.Tensions),
		})
	}
	return out
}

func tensionViews(axioms []domain.Axiom, tensions []domain.ValueTension) []tensionView {
	text := make(map[string]string, len(axioms))
	for _, a := range axioms {
		text[a.ID.String()] = a.Text
	}
	out := make([]tensionView, 0, len(tensions))
	for _, t := range tensions {
		out = append(out, tensionView{
			Severity:    string(t.Severity),
			A:           text[t.AxiomAID.String()],
			B:           text[t.AxiomBID.String()],
			Description: t.Description,
		})
	}
	return out
}
