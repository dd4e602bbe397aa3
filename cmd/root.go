package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/LavenderBridge/recall/internal/algorithm"
	"github.com/LavenderBridge/recall/internal/config"
	"github.com/LavenderBridge/recall/internal/db"
	"github.com/LavenderBridge/recall/internal/logging"
	"github.com/LavenderBridge/recall/internal/metrics"
	"github.com/LavenderBridge/recall/internal/pipeline"
)

var (
	configPath  string
	dbPath      string
	logLevel    string
	metricsFile string
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "A spaced repetition tool for knowledge bases",
	Long: `Recall is a CLI tool to review flashcards organised in knowledge
bases and areas, scheduled with a modified SM-2 algorithm.

Open items are self-graded (1: incorrect, 2: uncertain, 3: correct);
choice items are graded automatically.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default $RECALL_HOME/config.yaml)")
	pf.StringVar(&dbPath, "db", "", "Database path (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&metricsFile, "metrics-file", "", "Write review metrics to this Prometheus textfile")
}

// app bundles what every command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   *db.Store
	sched   *algorithm.Scheduler
	metrics *metrics.Metrics
}

// openApp loads configuration, applies the persistent flags and opens the
// store. Callers must Close the result.
func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if metricsFile != "" {
		cfg.MetricsFile = metricsFile
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	sched, err := algorithm.NewScheduler(cfg.Scheduling)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	store, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	log.Debug("store opened", "path", cfg.DatabasePath)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		sched:   sched,
		metrics: metrics.New(),
	}, nil
}

// generator builds a question list generator over the store.
func (a *app) generator() *pipeline.Generator {
	return pipeline.NewGenerator(pipeline.DefaultRegistry(), a.store, pipeline.Options{
		ShuffleChoices: a.cfg.Review.ShuffleChoices,
		Logger:         a.log,
	})
}

func (a *app) Close() {
	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.log.Warn("writing metrics failed", "path", a.cfg.MetricsFile, "err", err)
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store failed", "err", err)
	}
}

// startApp opens the app, printing the error when that fails.
func startApp() (*app, bool) {
	a, err := openApp()
	if err != nil {
		fmt.Println("❌ Startup error:", err)
		return nil, false
	}
	return a, true
}
