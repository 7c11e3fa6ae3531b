// Package suite sequences the export workflow steps against a live
// browser session and records one outcome per executed step.
package suite

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/exportcheck/internal/browser"
	"github.com/ternarybob/exportcheck/internal/common"
	"github.com/ternarybob/exportcheck/internal/recorder"
	"github.com/ternarybob/exportcheck/internal/report"
)

// State tracks the controller through one run.
type State int

const (
	StateNotStarted State = iota
	StateSettingUp
	StateRunning
	StateTearingDown
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateSettingUp:
		return "setting_up"
	case StateRunning:
		return "running"
	case StateTearingDown:
		return "tearing_down"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// ReportFilename is the fixed name of the suite report in the work directory.
const ReportFilename = "export_test_report.md"

// SessionFactory acquires the browser session. Injected so tests can
// substitute a fake without a browser.
type SessionFactory func(ctx context.Context) (browser.Session, error)

// Result is the product of one suite run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	WorkDir    string
	Outcomes   []recorder.Outcome
	Summary    recorder.Summary
	ReportPath string
}

// Controller owns the run lifecycle: acquire session, run steps in fixed
// order with per-step isolation, release the session on every exit path,
// then generate the report.
type Controller struct {
	cfg     *common.Config
	logger  arbor.ILogger
	factory SessionFactory
	state   State
}

// NewController creates a Controller using the given session factory.
func NewController(cfg *common.Config, logger arbor.ILogger, factory SessionFactory) *Controller {
	return &Controller{
		cfg:     cfg,
		logger:  logger,
		factory: factory,
		state:   StateNotStarted,
	}
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// namedStep pairs an outcome name with a step body. Order here is the
// fixed execution order; each entry depends on UI state left by the
// previous one.
type namedStep struct {
	name string
	run  func(*Suite) (string, error)
}

// Run executes one complete suite run. Setup failure aborts before any
// step; step failures are recorded and never abort the run. The returned
// error covers only the two infrastructure cases: setup failure and
// report-write failure.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	rec := recorder.New(c.logger)
	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		WorkDir:   c.cfg.Output.WorkDir,
	}

	setupErr := c.runSteps(ctx, rec, result.WorkDir)

	result.Outcomes = rec.Outcomes()
	result.Summary = rec.Summarize()

	if setupErr != nil {
		return result, fmt.Errorf("setup failed: %w", setupErr)
	}

	gen := report.Generator{
		TargetURL: c.cfg.Target.URL,
		Mode:      "chromedp with headless Chrome",
	}
	result.ReportPath = filepath.Join(result.WorkDir, ReportFilename)
	if err := gen.Write(result.ReportPath, report.Run{
		RunID:     result.RunID,
		StartedAt: result.StartedAt,
		Outcomes:  result.Outcomes,
		Summary:   result.Summary,
	}); err != nil {
		return result, fmt.Errorf("report generation failed: %w", err)
	}

	c.logger.Info().
		Int("total", result.Summary.Total).
		Int("passed", result.Summary.Passed).
		Int("failed", result.Summary.Failed).
		Str("report", result.ReportPath).
		Msg("Suite run complete")

	return result, nil
}

// runSteps acquires the session, executes the steps, and guarantees the
// session is released exactly once regardless of how the run terminates.
// Only setup failures are returned.
func (c *Controller) runSteps(ctx context.Context, rec *recorder.Recorder, workDir string) error {
	c.state = StateSettingUp
	session, err := c.factory(ctx)
	if err != nil {
		c.state = StateDone
		return err
	}

	defer func() {
		c.state = StateTearingDown
		if closeErr := session.Close(); closeErr != nil {
			c.logger.Warn().Err(closeErr).Msg("Browser session release reported an error")
		}
		c.state = StateDone
	}()

	c.state = StateRunning
	s := newSuite(c.cfg, session, workDir, c.logger)

	detail, hasData, err := s.stepLoad()
	if err != nil {
		rec.Record("Application Loading", false, err.Error())
		return nil
	}
	rec.Record("Application Loading", true, detail)
	if !hasData {
		c.logger.Info().Msg("No testable data available, skipping remaining steps")
		return nil
	}

	steps := []namedStep{
		{"Export Button Visibility", (*Suite).stepButtonVisibility},
		{"Modal Functionality", (*Suite).stepModalOpen},
		{"Date Range Functionality", (*Suite).stepDateRange},
		{"Transaction Type Filtering", (*Suite).stepTypeFiltering},
		{"Format Selection", (*Suite).stepFormatSelection},
		{"CSV Export", (*Suite).stepPrimaryExport},
		{"German Format Export", (*Suite).stepAlternateExport},
		{"Performance", (*Suite).stepTiming},
	}

	for _, step := range steps {
		detail, err := step.run(s)
		if err != nil {
			rec.Record(step.name, false, err.Error())
			continue
		}
		rec.Record(step.name, true, detail)
	}

	return nil
}
