// Package artifact validates downloaded export files without any browser
// dependency. The validator can be pointed at any file path standalone.
package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Validation failure taxonomy. Export steps fold these into their own
// failed outcomes; nothing here aborts a suite run.
var (
	ErrEmptyArtifact = errors.New("artifact is empty")
	ErrNonNumericKey = errors.New("year or month field is not numeric")
)

const (
	minimumColumnCount   = 6
	sidecarSuffix        = ".validation.txt"
	noDataSampleSentinel = "No data"
)

// MissingColumnError reports a required header column that was not found.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing expected column: %s", e.Column)
}

// InsufficientColumnsError reports a data row with too few fields.
type InsufficientColumnsError struct {
	Count int
}

func (e *InsufficientColumnsError) Error() string {
	return fmt.Sprintf("data row has insufficient columns: %d", e.Count)
}

// Report describes a validated artifact. Render output is deterministic
// for an unchanged file, so repeated validation produces identical sidecars.
type Report struct {
	SourcePath string
	TotalLines int
	DataRows   int
	Header     string
	SampleRow  string
	Passed     bool
}

// Validator checks the structure of a delimited export artifact.
type Validator struct {
	// RequiredColumns must each appear as a substring of the header line.
	// Labels are localized per target application, so they come from
	// configuration rather than constants.
	RequiredColumns []string
}

// New creates a Validator for the given required header columns.
func New(requiredColumns []string) *Validator {
	return &Validator{RequiredColumns: requiredColumns}
}

// Validate reads and checks the artifact at path. On success it returns a
// Report and writes the sidecar validation file next to the artifact.
func (v *Validator) Validate(path string) (*Report, error) {
	report, err := v.Inspect(path)
	if err != nil {
		return nil, err
	}

	if err := report.WriteSidecar(); err != nil {
		return nil, fmt.Errorf("failed to write validation sidecar: %w", err)
	}
	return report, nil
}

// Inspect checks the artifact without writing the sidecar file.
func (v *Validator) Inspect(path string) (*Report, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}

	content := strings.TrimPrefix(string(raw), "\ufeff") // optional BOM
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyArtifact
	}
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")

	header := lines[0]
	for _, col := range v.RequiredColumns {
		if !strings.Contains(header, col) {
			return nil, &MissingColumnError{Column: col}
		}
	}

	sample := noDataSampleSentinel
	if len(lines) > 1 {
		sample = lines[1]
		record, err := csv.NewReader(strings.NewReader(sample)).Read()
		if err != nil {
			return nil, fmt.Errorf("failed to parse data row: %w", err)
		}
		if len(record) < minimumColumnCount {
			return nil, &InsufficientColumnsError{Count: len(record)}
		}
		if !isDigits(record[0]) || !isDigits(record[1]) {
			return nil, ErrNonNumericKey
		}
	}

	return &Report{
		SourcePath: path,
		TotalLines: len(lines),
		DataRows:   len(lines) - 1,
		Header:     header,
		SampleRow:  sample,
		Passed:     true,
	}, nil
}

// Render produces the sidecar document body.
func (r *Report) Render() string {
	var b strings.Builder
	b.WriteString("CSV Validation Report\n")
	fmt.Fprintf(&b, "File: %s\n", filepath.Base(r.SourcePath))
	fmt.Fprintf(&b, "Total lines: %d\n", r.TotalLines)
	fmt.Fprintf(&b, "Data rows: %d\n", r.DataRows)
	fmt.Fprintf(&b, "Header: %s\n", r.Header)
	fmt.Fprintf(&b, "Sample row: %s\n", r.SampleRow)
	b.WriteString("Validation: PASSED\n")
	return b.String()
}

// WriteSidecar persists the report next to the artifact as
// <artifact>.validation.txt.
func (r *Report) WriteSidecar() error {
	return os.WriteFile(r.SourcePath+sidecarSuffix, []byte(r.Render()), 0644)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
