// Package report renders a suite run into a human-readable markdown
// document. It is a pure function of the recorded outcomes; write failures
// surface to the caller and are never recorded as test results.
package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/exportcheck/internal/recorder"
)

// Run is the final state of one suite execution.
type Run struct {
	RunID     string
	StartedAt time.Time
	Outcomes  []recorder.Outcome
	Summary   recorder.Summary
}

// Generator renders suite reports.
type Generator struct {
	TargetURL string
	Mode      string // execution-mode label, e.g. "chromedp with headless Chrome"
}

// Render produces the report document.
func (g Generator) Render(run Run) string {
	var b strings.Builder

	b.WriteString("# CSV Export Feature - End-to-End Test Report\n\n")
	b.WriteString("## Test Summary\n")
	fmt.Fprintf(&b, "- **Run ID**: %s\n", run.RunID)
	fmt.Fprintf(&b, "- **Date**: %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Total Tests**: %d\n", run.Summary.Total)
	fmt.Fprintf(&b, "- **Passed**: %d\n", run.Summary.Passed)
	fmt.Fprintf(&b, "- **Failed**: %d\n", run.Summary.Failed)
	fmt.Fprintf(&b, "- **Success Rate**: %.1f%%\n", run.Summary.SuccessRate)
	fmt.Fprintf(&b, "- **Application URL**: %s\n", g.TargetURL)
	fmt.Fprintf(&b, "- **Test Environment**: %s\n", g.Mode)
	b.WriteString("\n## Test Results Detail\n\n")

	for _, o := range run.Outcomes {
		status := "PASSED"
		if !o.Passed {
			status = "FAILED"
		}
		fmt.Fprintf(&b, "### %s - %s\n", o.Name, status)
		fmt.Fprintf(&b, "- **Details**: %s\n", o.Details)
		fmt.Fprintf(&b, "- **Timestamp**: %s\n\n", o.Timestamp.Format(time.RFC3339))
	}

	b.WriteString("## Files Generated\n")
	b.WriteString("- **Screenshots**: PNG files documenting UI interactions\n")
	b.WriteString("- **CSV Exports**: downloaded files from standard and German format tests\n")
	b.WriteString("- **Validation Reports**: .validation.txt files for each export\n")
	b.WriteString("- **Test Report**: this document\n\n")

	b.WriteString("## Conclusion\n")
	if run.Summary.Failed == 0 {
		b.WriteString("All tests passed. CSV export feature is working as expected.\n")
	} else {
		fmt.Fprintf(&b, "%d test(s) failed. Review the details above for issues.\n", run.Summary.Failed)
	}

	return b.String()
}

// Write renders the run and writes the document to path. No retries; the
// error is the caller's to handle.
func (g Generator) Write(path string, run Run) error {
	if err := os.WriteFile(path, []byte(g.Render(run)), 0644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	return nil
}
