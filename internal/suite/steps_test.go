package suite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// fakeClock returns scripted instants, repeating the last one.
type fakeClock struct {
	times []time.Time
	idx   int
}

func (c *fakeClock) Now() time.Time {
	t := c.times[c.idx]
	if c.idx < len(c.times)-1 {
		c.idx++
	}
	return t
}

func newTestSuite(t *testing.T) (*Suite, *fakeSession) {
	t.Helper()
	cfg := testConfig(t)
	fake := newFakeSession(cfg.Output.WorkDir)
	return newSuite(cfg, fake, cfg.Output.WorkDir, arbor.NewLogger()), fake
}

func TestStepTimingWithinBudgetPasses(t *testing.T) {
	s, _ := newTestSuite(t)
	start := time.Now()
	s.now = (&fakeClock{times: []time.Time{start, start.Add(14900 * time.Millisecond)}}).Now

	detail, err := s.stepTiming()
	require.NoError(t, err)
	assert.Contains(t, detail, "14.90s")
	assert.Contains(t, detail, "acceptable")
}

func TestStepTimingOverBudgetFails(t *testing.T) {
	s, _ := newTestSuite(t)
	start := time.Now()
	s.now = (&fakeClock{times: []time.Time{start, start.Add(15100 * time.Millisecond)}}).Now

	_, err := s.stepTiming()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "15.10")
	assert.Contains(t, err.Error(), "too slow")
}

func TestStepButtonVisibilityDisabledFails(t *testing.T) {
	s, fake := newTestSuite(t)
	fake.enabled[s.triggerSelector] = false

	_, err := s.stepButtonVisibility()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestStepModalOpenUncheckedToggleFails(t *testing.T) {
	s, fake := newTestSuite(t)
	fake.checked[selIncludeExpenses] = false

	_, err := s.stepModalOpen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Expense: false")
}

func TestStepModalOpenWrongTitleFails(t *testing.T) {
	s, fake := newTestSuite(t)
	fake.texts[selModalTitle] = []string{"Einstellungen"}

	_, err := s.stepModalOpen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Einstellungen")
}

func TestStepDateRangeRestoresValidRangeAfterInvertedProbe(t *testing.T) {
	s, fake := newTestSuite(t)

	detail, err := s.stepDateRange()
	require.NoError(t, err)
	assert.Contains(t, detail, "Datensätze")

	// Valid range, inverted probe, valid range again.
	assert.Equal(t, []string{validStartDate, invertedStartDate, validStartDate}, fake.fills[selStartDate])
	assert.Equal(t, []string{validEndDate, invertedEndDate, validEndDate}, fake.fills[selEndDate])
}

func TestStepDateRangeUnexpectedEstimateFails(t *testing.T) {
	s, fake := newTestSuite(t)
	fake.texts[selEstimatedRecords] = []string{"???"}

	_, err := s.stepDateRange()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected estimated records format")
}

func TestStepDateRangeAcceptsCalculatingPhrase(t *testing.T) {
	s, fake := newTestSuite(t)
	fake.texts[selEstimatedRecords] = []string{"Wird berechnet..."}

	detail, err := s.stepDateRange()
	require.NoError(t, err)
	assert.Contains(t, detail, "berechnet")
}

func TestStepTypeFilteringReportsAllThreeReads(t *testing.T) {
	s, fake := newTestSuite(t)
	fake.texts[selEstimatedRecords] = []string{
		"120 Datensätze",
		"80 Datensätze",
		"200 Datensätze",
	}

	detail, err := s.stepTypeFiltering()
	require.NoError(t, err)
	assert.Contains(t, detail, "Revenue: 120 Datensätze")
	assert.Contains(t, detail, "Expenses: 80 Datensätze")
	assert.Contains(t, detail, "Both: 200 Datensätze")

	// Both toggles end enabled.
	assert.True(t, fake.checked[selIncludeRevenue])
	assert.True(t, fake.checked[selIncludeExpenses])
}

func TestStepFormatSelectionIdenticalDescriptionsFail(t *testing.T) {
	s, fake := newTestSuite(t)
	fake.texts[selFormatDescription] = []string{"same text", "same text"}

	_, err := s.stepFormatSelection()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "don't change")
}

func TestStepPrimaryExportValidatorFailureFailsStep(t *testing.T) {
	s, fake := newTestSuite(t)
	fake.downloadContent = "Jahr,Monat,Kategorie\n" // missing required columns

	_, err := s.stepPrimaryExport()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "artifact validation failed")
	assert.Contains(t, err.Error(), "missing expected column")
}

func TestStepAlternateExportReopensModal(t *testing.T) {
	s, fake := newTestSuite(t)
	fake.visible[selModal] = false

	detail, err := s.stepAlternateExport()
	require.NoError(t, err)
	assert.Contains(t, detail, "German CSV exported successfully")
	assert.Contains(t, fake.clicks, s.triggerSelector)
}
