package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/exportcheck/internal/artifact"
	"github.com/ternarybob/exportcheck/internal/browser"
	"github.com/ternarybob/exportcheck/internal/common"
)

// Suite holds the state one run's steps share: the borrowed browser
// session, resolved timeouts, and the screenshot counter. Steps never
// record outcomes themselves; they return a detail string and an error,
// and the controller converts that pair into exactly one outcome.
type Suite struct {
	cfg       *common.Config
	session   browser.Session
	validator *artifact.Validator
	workDir   string
	logger    arbor.ILogger

	headingSelector string
	triggerSelector string

	screenshotNum int
	now           func() time.Time
}

func newSuite(cfg *common.Config, session browser.Session, workDir string, logger arbor.ILogger) *Suite {
	return &Suite{
		cfg:             cfg,
		session:         session,
		validator:       artifact.New(cfg.Artifact.RequiredColumns),
		workDir:         workDir,
		logger:          logger,
		headingSelector: browser.TextSelector("h1", cfg.Target.HeadingText),
		triggerSelector: browser.TextSelector("button", cfg.Target.ExportButton),
		now:             time.Now,
	}
}

// screenshot captures a numbered checkpoint image under the work directory.
// Best effort: a failed capture is logged, never fails a step.
func (s *Suite) screenshot(name string) {
	s.screenshotNum++
	path := filepath.Join(s.workDir, "screenshots", fmt.Sprintf("%02d_%s.png", s.screenshotNum, name))
	if err := s.session.Screenshot(path); err != nil {
		s.logger.Warn().Err(err).Str("name", name).Msg("Screenshot failed")
	}
}

// stepLoad navigates to the application root and determines whether there
// is testable data. hasData=false is still a passing outcome; it signals
// the controller to skip the remaining steps.
func (s *Suite) stepLoad() (detail string, hasData bool, err error) {
	if err := s.session.Navigate(s.cfg.Target.URL); err != nil {
		return "", false, fmt.Errorf("failed to load application: %w", err)
	}

	// First paint is slower than later in-page waits.
	if err := s.session.WaitVisible(s.headingSelector, 2*s.cfg.Timeouts.UIWaitDuration()); err != nil {
		return "", false, fmt.Errorf("failed to load application: %w", err)
	}

	hasData, err = s.session.IsVisible(s.triggerSelector)
	if err != nil {
		return "", false, fmt.Errorf("failed to check for export control: %w", err)
	}

	s.screenshot("application_loaded")

	if !hasData {
		return "Application loaded but no data available (expected for empty database)", false, nil
	}
	return "Application loaded with data available", true, nil
}

// stepButtonVisibility verifies the export trigger is visible and enabled
// within the bounded wait.
func (s *Suite) stepButtonVisibility() (string, error) {
	if err := s.session.WaitVisible(s.triggerSelector, s.cfg.Timeouts.UIWaitDuration()); err != nil {
		return "", fmt.Errorf("export button not found: %w", err)
	}

	enabled, err := s.session.IsEnabled(s.triggerSelector)
	if err != nil {
		return "", fmt.Errorf("export button state check failed: %w", err)
	}

	s.screenshot("export_button_visible")

	if !enabled {
		return "", fmt.Errorf("export button is visible but disabled")
	}
	return "Export button is visible and enabled", nil
}

// stepModalOpen clicks the trigger, waits for the modal, and verifies the
// title phrase plus the default-checked inclusion toggles.
func (s *Suite) stepModalOpen() (string, error) {
	if err := s.session.Click(s.triggerSelector); err != nil {
		return "", fmt.Errorf("failed to open export modal: %w", err)
	}
	if err := s.session.WaitVisible(selModal, s.cfg.Timeouts.UIWaitDuration()); err != nil {
		s.screenshot("modal_error")
		return "", fmt.Errorf("export modal did not appear: %w", err)
	}

	title, err := s.session.Text(selModalTitle)
	if err != nil {
		return "", fmt.Errorf("failed to read modal title: %w", err)
	}

	for _, sel := range []string{selStartDate, selEndDate, selIncludeRevenue, selIncludeExpenses} {
		if err := s.session.WaitVisible(sel, s.cfg.Timeouts.UIWaitDuration()); err != nil {
			s.screenshot("modal_error")
			return "", fmt.Errorf("modal element missing: %w", err)
		}
	}

	revenueChecked, err := s.session.IsChecked(selIncludeRevenue)
	if err != nil {
		return "", fmt.Errorf("failed to read revenue toggle: %w", err)
	}
	expenseChecked, err := s.session.IsChecked(selIncludeExpenses)
	if err != nil {
		return "", fmt.Errorf("failed to read expense toggle: %w", err)
	}

	s.screenshot("modal_opened")

	if !strings.Contains(title, s.cfg.Target.ModalTitle) || !revenueChecked || !expenseChecked {
		return "", fmt.Errorf("modal issues - Title: %s, Revenue: %t, Expense: %t", title, revenueChecked, expenseChecked)
	}
	return "Modal opened with all expected elements and correct defaults", nil
}

// stepDateRange fills a valid range, checks the estimated-count display
// against the accepted phrases, and exercises an inverted range as a
// smoke probe before restoring the valid one.
func (s *Suite) stepDateRange() (string, error) {
	if err := s.session.Fill(selStartDate, validStartDate); err != nil {
		return "", fmt.Errorf("failed to set start date: %w", err)
	}
	if err := s.session.Fill(selEndDate, validEndDate); err != nil {
		return "", fmt.Errorf("failed to set end date: %w", err)
	}

	s.session.Settle(s.cfg.Timeouts.SettleLongDuration())

	if err := s.session.WaitVisible(selEstimatedRecords, s.cfg.Timeouts.UIWaitDuration()); err != nil {
		return "", fmt.Errorf("estimated records display not visible: %w", err)
	}
	estimated, err := s.session.Text(selEstimatedRecords)
	if err != nil {
		return "", fmt.Errorf("failed to read estimated records: %w", err)
	}

	s.screenshot("date_range_selected")

	// Inverted-range smoke probe: asserts nothing, must not abort the run.
	// The target application defines no validation behavior for inverted
	// ranges, so errors here are deliberately ignored.
	_ = s.session.Fill(selStartDate, invertedStartDate)
	_ = s.session.Fill(selEndDate, invertedEndDate)

	if err := s.session.Fill(selStartDate, validStartDate); err != nil {
		return "", fmt.Errorf("failed to restore start date: %w", err)
	}
	if err := s.session.Fill(selEndDate, validEndDate); err != nil {
		return "", fmt.Errorf("failed to restore end date: %w", err)
	}

	if !s.matchesCountPhrase(estimated) {
		return "", fmt.Errorf("unexpected estimated records format: %s", estimated)
	}
	return fmt.Sprintf("Date range works, estimated records: %s", strings.TrimSpace(estimated)), nil
}

func (s *Suite) matchesCountPhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range s.cfg.Artifact.CountPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// stepTypeFiltering cycles revenue-only, expense-only, and both-enabled,
// reading the estimated count after each. Differing counts are informative,
// not a verdict criterion; the step passes when all three reads succeed.
func (s *Suite) stepTypeFiltering() (string, error) {
	settle := s.cfg.Timeouts.SettleShortDuration()

	if err := s.session.SetChecked(selIncludeExpenses, false); err != nil {
		return "", fmt.Errorf("failed to disable expenses: %w", err)
	}
	s.session.Settle(settle)
	revenueOnly, err := s.session.Text(selEstimatedRecords)
	if err != nil {
		return "", fmt.Errorf("failed to read estimate (revenue only): %w", err)
	}
	s.screenshot("revenue_only")

	if err := s.session.SetChecked(selIncludeRevenue, false); err != nil {
		return "", fmt.Errorf("failed to disable revenue: %w", err)
	}
	if err := s.session.SetChecked(selIncludeExpenses, true); err != nil {
		return "", fmt.Errorf("failed to enable expenses: %w", err)
	}
	s.session.Settle(settle)
	expensesOnly, err := s.session.Text(selEstimatedRecords)
	if err != nil {
		return "", fmt.Errorf("failed to read estimate (expenses only): %w", err)
	}
	s.screenshot("expenses_only")

	if err := s.session.SetChecked(selIncludeRevenue, true); err != nil {
		return "", fmt.Errorf("failed to enable revenue: %w", err)
	}
	if err := s.session.SetChecked(selIncludeExpenses, true); err != nil {
		return "", fmt.Errorf("failed to enable expenses: %w", err)
	}
	s.session.Settle(settle)
	both, err := s.session.Text(selEstimatedRecords)
	if err != nil {
		return "", fmt.Errorf("failed to read estimate (both types): %w", err)
	}
	s.screenshot("both_types")

	return fmt.Sprintf("Filtering works - Revenue: %s, Expenses: %s, Both: %s",
		strings.TrimSpace(revenueOnly), strings.TrimSpace(expensesOnly), strings.TrimSpace(both)), nil
}

// stepFormatSelection selects each format and verifies the description
// text reacts to the choice.
func (s *Suite) stepFormatSelection() (string, error) {
	settle := s.cfg.Timeouts.SettleShortDuration()

	if err := s.session.Click(selAlternateFormat); err != nil {
		return "", fmt.Errorf("failed to select alternate format: %w", err)
	}
	s.session.Settle(settle)
	alternateDesc, err := s.session.Text(selFormatDescription)
	if err != nil {
		return "", fmt.Errorf("failed to read format description: %w", err)
	}
	s.screenshot("german_format")

	if err := s.session.Click(selStandardFormat); err != nil {
		return "", fmt.Errorf("failed to select standard format: %w", err)
	}
	s.session.Settle(settle)
	standardDesc, err := s.session.Text(selFormatDescription)
	if err != nil {
		return "", fmt.Errorf("failed to read format description: %w", err)
	}
	s.screenshot("standard_format")

	if alternateDesc == standardDesc {
		return "", fmt.Errorf("format descriptions don't change between formats")
	}
	return fmt.Sprintf("Format descriptions differ correctly - Standard: %s, German: %s", standardDesc, alternateDesc), nil
}

// exportAndValidate clicks the export confirm control, awaits the download,
// saves it under the work directory with the given name prefix, and runs
// the artifact validator on the result.
func (s *Suite) exportAndValidate(namePrefix string) (path string, elapsed time.Duration, err error) {
	start := s.now()
	download, err := s.session.ExpectDownload(s.cfg.Timeouts.DownloadWaitDuration(), func() error {
		if err := s.session.Click(selExportConfirm); err != nil {
			return fmt.Errorf("failed to trigger export: %w", err)
		}
		// A transient progress indicator may flash by too fast to catch.
		if visible, err := s.session.IsVisible(selProgressOverlay); err == nil && visible {
			s.screenshot("export_progress")
		}
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	elapsed = s.now().Sub(start)

	name := download.SuggestedFilename
	if name == "" {
		name = "export.csv"
	}
	path = filepath.Join(s.workDir, namePrefix+name)
	if err := download.SaveAs(path); err != nil {
		return "", elapsed, err
	}

	if _, err := os.Stat(path); err != nil {
		return "", elapsed, fmt.Errorf("download file not found: %w", err)
	}

	if _, err := s.validator.Validate(path); err != nil {
		return path, elapsed, fmt.Errorf("artifact validation failed: %w", err)
	}
	return path, elapsed, nil
}

// stepPrimaryExport exports in the standard format and validates the file.
func (s *Suite) stepPrimaryExport() (string, error) {
	if err := s.session.Click(selStandardFormat); err != nil {
		return "", fmt.Errorf("failed to select standard format: %w", err)
	}

	path, elapsed, err := s.exportAndValidate("")
	if err != nil {
		s.screenshot("export_error")
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("download file not found: %w", err)
	}
	return fmt.Sprintf("CSV exported successfully - File: %s, Size: %d bytes, Time: %.2fs",
		filepath.Base(path), info.Size(), elapsed.Seconds()), nil
}

// stepAlternateExport reopens the modal if needed, selects the alternate
// format, and repeats the download-and-validate sequence against a
// distinctly named output.
func (s *Suite) stepAlternateExport() (string, error) {
	if err := s.reopenModalIfNeeded(); err != nil {
		return "", err
	}

	if err := s.session.Click(selAlternateFormat); err != nil {
		return "", fmt.Errorf("failed to select alternate format: %w", err)
	}
	s.session.Settle(s.cfg.Timeouts.SettleShortDuration())

	path, _, err := s.exportAndValidate("german_")
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("download file not found: %w", err)
	}
	return fmt.Sprintf("German CSV exported successfully - Size: %d bytes", info.Size()), nil
}

// stepTiming measures wall-clock time from export trigger to download
// completion against the export budget.
func (s *Suite) stepTiming() (string, error) {
	if err := s.reopenModalIfNeeded(); err != nil {
		return "", err
	}

	budget := s.cfg.Timeouts.ExportBudgetDuration()
	start := s.now()
	_, err := s.session.ExpectDownload(s.cfg.Timeouts.DownloadWaitDuration(), func() error {
		return s.session.Click(selExportConfirm)
	})
	if err != nil {
		return "", fmt.Errorf("timed export failed: %w", err)
	}
	elapsed := s.now().Sub(start)

	if elapsed > budget {
		return "", fmt.Errorf("export took %.2fs (too slow, max: %.0fs)", elapsed.Seconds(), budget.Seconds())
	}
	return fmt.Sprintf("Export completed in %.2fs (acceptable)", elapsed.Seconds()), nil
}

// reopenModalIfNeeded restores the export modal after a download closed it.
func (s *Suite) reopenModalIfNeeded() error {
	visible, err := s.session.IsVisible(selModal)
	if err != nil {
		return fmt.Errorf("failed to check modal state: %w", err)
	}
	if visible {
		return nil
	}

	if err := s.session.Click(s.triggerSelector); err != nil {
		return fmt.Errorf("failed to reopen export modal: %w", err)
	}
	if err := s.session.WaitVisible(selModal, s.cfg.Timeouts.UIWaitDuration()); err != nil {
		return fmt.Errorf("export modal did not reappear: %w", err)
	}
	return nil
}
