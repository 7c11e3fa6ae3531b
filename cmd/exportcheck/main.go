package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/exportcheck/internal/browser"
	"github.com/ternarybob/exportcheck/internal/common"
	"github.com/ternarybob/exportcheck/internal/notify"
	"github.com/ternarybob/exportcheck/internal/suite"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	targetURL    = flag.String("url", "", "Target application URL (overrides config)")
	workDir      = flag.String("workdir", "", "Working directory for artifacts and reports (overrides config)")
	schedule     = flag.String("schedule", "", "Cron expression for repeated runs (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Exportcheck version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	if len(configFiles) == 0 {
		if _, err := os.Stat("exportcheck.toml"); err == nil {
			configFiles = append(configFiles, "exportcheck.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *targetURL, *workDir, *schedule)

	if err := config.Validate(); err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config, config.Output.WorkDir)

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("target", config.Target.URL).
		Str("work_dir", config.Output.WorkDir).
		Msg("Configuration loaded")

	if config.Schedule.Cron != "" {
		runScheduled(config, logger)
		return
	}

	os.Exit(executeRun(config, logger))
}

// executeRun performs one complete suite run and returns the process exit
// code: 0 when every step passed, 1 on setup failure or any failed step.
func executeRun(cfg *common.Config, logger arbor.ILogger) int {
	runDir, err := resolveRunDir(cfg.Output.WorkDir)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create working directory")
		return 1
	}
	logger.Info().Str("dir", runDir).Msg("Run directory ready")

	runCfg := *cfg
	runCfg.Output.WorkDir = runDir

	controller := suite.NewController(&runCfg, logger, func(ctx context.Context) (browser.Session, error) {
		return browser.New(ctx, browser.Options{
			WorkDir:       runDir,
			Headless:      true,
			ActionTimeout: cfg.Timeouts.UIWaitDuration(),
		})
	})

	result, err := controller.Run(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("Suite run aborted")
	}

	sendNotification(cfg, logger, result)

	logger.Info().
		Int("passed", result.Summary.Passed).
		Int("failed", result.Summary.Failed).
		Str("report", result.ReportPath).
		Str("files", runDir).
		Msg("Suite finished")

	if err != nil || result.Summary.Failed > 0 {
		return 1
	}
	return 0
}

// runScheduled runs the suite on the configured cron schedule until
// interrupted, with one immediate run first.
func runScheduled(cfg *common.Config, logger arbor.ILogger) {
	logger.Info().Str("cron", cfg.Schedule.Cron).Msg("Starting scheduled mode")

	executeRun(cfg, logger)

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule.Cron, func() {
		executeRun(cfg, logger)
	}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to register schedule")
		os.Exit(1)
	}
	c.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, stopping schedule")
	<-c.Stop().Done()
}

// sendNotification delivers the run summary when a notify URL is
// configured, honoring the on-failure-only setting.
func sendNotification(cfg *common.Config, logger arbor.ILogger, result *suite.Result) {
	if cfg.Notify.URL == "" || result == nil {
		return
	}
	if cfg.Notify.OnFailureOnly && result.Summary.Failed == 0 && result.Summary.Total > 0 {
		return
	}

	msg := notify.Message(cfg.Target.URL, result.Summary)
	if err := notify.Send(cfg.Notify.URL, msg); err != nil {
		logger.Warn().Err(err).Msg("Failed to send notification")
		return
	}
	logger.Info().Msg("Notification sent")
}

// resolveRunDir returns a fresh directory for one run: a temp directory
// when no base is configured, otherwise a timestamped subdirectory.
func resolveRunDir(base string) (string, error) {
	if base == "" {
		return os.MkdirTemp("", "exportcheck_")
	}

	dir := filepath.Join(base, time.Now().Format("run-2006-01-02-15-04-05"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory %s: %w", dir, err)
	}
	return dir, nil
}
