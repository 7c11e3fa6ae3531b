package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
)

// Download is a completed browser download. SuggestedFilename is the name
// the target application proposed; Path is where the browser parked the
// bytes (named by CDP GUID under the work directory).
type Download struct {
	SuggestedFilename string
	Path              string
}

// SaveAs moves the downloaded file to dest. Rename first, copy as fallback
// for cross-device moves.
func (d *Download) SaveAs(dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}
	if err := os.Rename(d.Path, dest); err == nil {
		return nil
	}

	src, err := os.Open(d.Path)
	if err != nil {
		return fmt.Errorf("failed to open downloaded file %s: %w", d.Path, err)
	}
	defer src.Close()

	dst, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy download to %s: %w", dest, err)
	}
	return nil
}

// downloadTracker correlates CDP download events. DownloadWillBegin carries
// the suggested filename, DownloadProgress the terminal state; both arrive
// keyed by GUID.
type downloadTracker struct {
	workDir string

	mu        sync.Mutex
	suggested map[string]string
	waiter    chan *Download
}

func newDownloadTracker(workDir string) *downloadTracker {
	return &downloadTracker{
		workDir:   workDir,
		suggested: make(map[string]string),
	}
}

// attach enables allow-and-name download behavior and subscribes to
// download lifecycle events on the browser context.
func (t *downloadTracker) attach(ctx context.Context) error {
	if err := chromedp.Run(ctx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(t.workDir).
			WithEventsEnabled(true),
	); err != nil {
		return err
	}

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *cdpbrowser.EventDownloadWillBegin:
			t.begin(e.GUID, e.SuggestedFilename)
		case *cdpbrowser.EventDownloadProgress:
			if e.State == cdpbrowser.DownloadProgressStateCompleted {
				t.complete(e.GUID)
			}
		}
	})

	return nil
}

// begin records the suggested filename announced for a download GUID.
func (t *downloadTracker) begin(guid, suggestedFilename string) {
	t.mu.Lock()
	t.suggested[guid] = suggestedFilename
	t.mu.Unlock()
}

// complete resolves the pending waiter, if any, with the finished download.
func (t *downloadTracker) complete(guid string) {
	t.mu.Lock()
	name := t.suggested[guid]
	delete(t.suggested, guid)
	waiter := t.waiter
	t.waiter = nil
	t.mu.Unlock()

	if waiter != nil {
		waiter <- &Download{
			SuggestedFilename: name,
			Path:              filepath.Join(t.workDir, guid),
		}
	}
}

// expect registers a waiter, runs the trigger, and waits for the next
// completed download within the bounded timeout.
func (t *downloadTracker) expect(ctx context.Context, timeout time.Duration, trigger func() error) (*Download, error) {
	waiter := make(chan *Download, 1)

	t.mu.Lock()
	if t.waiter != nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("a download is already awaited")
	}
	t.waiter = waiter
	t.mu.Unlock()

	clear := func() {
		t.mu.Lock()
		if t.waiter == waiter {
			t.waiter = nil
		}
		t.mu.Unlock()
	}

	if trigger != nil {
		if err := trigger(); err != nil {
			clear()
			return nil, err
		}
	}

	select {
	case d := <-waiter:
		return d, nil
	case <-time.After(timeout):
		clear()
		return nil, fmt.Errorf("no download completed within %v", timeout)
	case <-ctx.Done():
		clear()
		return nil, fmt.Errorf("context cancelled while waiting for download: %w", ctx.Err())
	}
}

// writeScreenshot persists captured screenshot bytes, creating parents.
func writeScreenshot(path string, buf []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}
	return nil
}
