package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/exportcheck/internal/recorder"
)

func TestMessageAllPassed(t *testing.T) {
	msg := Message("http://localhost:5001", recorder.Summary{
		Total: 9, Passed: 9, Failed: 0, SuccessRate: 100,
	})

	assert.Contains(t, msg, "PASSED")
	assert.Contains(t, msg, "9/9 passed")
	assert.Contains(t, msg, "100.0%")
	assert.Contains(t, msg, "http://localhost:5001")
}

func TestMessageWithFailures(t *testing.T) {
	msg := Message("http://localhost:5001", recorder.Summary{
		Total: 9, Passed: 7, Failed: 2, SuccessRate: 77.8,
	})

	assert.Contains(t, msg, "FAILED")
	assert.Contains(t, msg, "7/9 passed")
}

func TestSendRejectsUnknownService(t *testing.T) {
	err := Send("bogus://nowhere", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating notification sender")
}
