package recorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPreservesInsertionOrder(t *testing.T) {
	r := New(nil)
	r.Record("first", true, "a")
	r.Record("second", false, "b")
	r.Record("third", true, "c")

	outcomes := r.Outcomes()
	require.Len(t, outcomes, 3)
	assert.Equal(t, "first", outcomes[0].Name)
	assert.Equal(t, "second", outcomes[1].Name)
	assert.Equal(t, "third", outcomes[2].Name)
	assert.False(t, outcomes[1].Passed)
	assert.Equal(t, "b", outcomes[1].Details)
}

func TestRecordStampsTime(t *testing.T) {
	r := New(nil)
	fixed := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	r.Record("step", true, "detail")
	assert.Equal(t, fixed, r.Outcomes()[0].Timestamp)
}

func TestSummarizeEmptyRecorder(t *testing.T) {
	r := New(nil)
	s := r.Summarize()
	assert.Equal(t, 0, s.Total)
	assert.Equal(t, 0.0, s.SuccessRate, "rate is zero with no outcomes, not NaN")
}

func TestSummarizeCounts(t *testing.T) {
	r := New(nil)
	r.Record("a", true, "")
	r.Record("b", true, "")
	r.Record("c", false, "")
	r.Record("d", true, "")

	s := r.Summarize()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 75.0, s.SuccessRate, 0.001)
}

func TestSummarizeRateWithinBounds(t *testing.T) {
	r := New(nil)
	for i := 0; i < 9; i++ {
		r.Record("step", i%2 == 0, "")
	}

	s := r.Summarize()
	assert.GreaterOrEqual(t, s.SuccessRate, 0.0)
	assert.LessOrEqual(t, s.SuccessRate, 100.0)
	assert.Equal(t, s.Total, s.Passed+s.Failed)
}

func TestSummarizeIsIdempotent(t *testing.T) {
	r := New(nil)
	r.Record("a", true, "")
	r.Record("b", false, "")

	first := r.Summarize()
	second := r.Summarize()
	assert.Equal(t, first, second)
}

func TestOutcomesReturnsCopy(t *testing.T) {
	r := New(nil)
	r.Record("a", true, "original")

	outcomes := r.Outcomes()
	outcomes[0].Details = "mutated"

	assert.Equal(t, "original", r.Outcomes()[0].Details)
}
