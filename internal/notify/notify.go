// Package notify delivers run summaries to a shoutrrr-compatible endpoint
// (Slack, Telegram, email, ...). Entirely optional: an empty URL disables it.
package notify

import (
	"fmt"

	"github.com/nicholas-fedor/shoutrrr"

	"github.com/ternarybob/exportcheck/internal/recorder"
)

// Message builds the one-line run summary delivered to the endpoint.
func Message(target string, s recorder.Summary) string {
	status := "PASSED"
	if s.Failed > 0 {
		status = "FAILED"
	}
	return fmt.Sprintf("Export check %s against %s: %d/%d passed (%.1f%%)",
		status, target, s.Passed, s.Total, s.SuccessRate)
}

// Send delivers a message to the given shoutrrr URL.
func Send(url, message string) error {
	sender, err := shoutrrr.CreateSender(url)
	if err != nil {
		return fmt.Errorf("creating notification sender: %w", err)
	}

	for _, e := range sender.Send(message, nil) {
		if e != nil {
			return fmt.Errorf("sending notification: %w", e)
		}
	}
	return nil
}
