// Package browser wraps chromedp behind the Session interface the suite
// borrows for the duration of each step. The suite only drives this
// interface; unit tests substitute a scripted fake.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// Session is the handle the suite controller acquires in setup, lends to
// each step, and releases in teardown. Selectors are CSS queries unless
// they start with "//", in which case they are treated as XPath.
//
// Every method resolves within a bounded time: WaitVisible and
// ExpectDownload take their bound per call, all other interactions are
// capped by the session's action timeout. A wait that exceeds its bound
// returns an error; no method blocks until Close.
type Session interface {
	Navigate(url string) error
	WaitVisible(selector string, timeout time.Duration) error
	IsVisible(selector string) (bool, error)
	IsEnabled(selector string) (bool, error)
	IsChecked(selector string) (bool, error)
	SetChecked(selector string, checked bool) error
	Click(selector string) error
	Fill(selector, value string) error
	Text(selector string) (string, error)
	Settle(d time.Duration)
	ExpectDownload(timeout time.Duration, trigger func() error) (*Download, error)
	Screenshot(path string) error
	Close() error
}

// queryOption picks the chromedp selector strategy for a selector string.
func queryOption(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "//") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// findExpr returns a JavaScript expression that resolves the selector to an
// element (or null). Used by the state probes, which must not block on
// element appearance the way WaitVisible does.
func findExpr(selector string) string {
	if strings.HasPrefix(selector, "//") {
		return fmt.Sprintf(
			`document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
			selector,
		)
	}
	return fmt.Sprintf("document.querySelector(%q)", selector)
}

// TextSelector builds an XPath selector matching an element by tag and
// contained text, the equivalent of locating a button by its label.
func TextSelector(tag, text string) string {
	return fmt.Sprintf(`//%s[contains(., %q)]`, tag, text)
}

// ensure the chromedp implementation satisfies the interface
var _ Session = (*chromeSession)(nil)

// Options configures a Chrome-backed session.
type Options struct {
	WorkDir       string // download directory, must exist
	Headless      bool
	WindowW       int
	WindowH       int
	ActionTimeout time.Duration // per-interaction bound, default 10s
}

// chromeSession drives a headless Chrome instance via chromedp.
type chromeSession struct {
	ctx           context.Context
	cancels       []context.CancelFunc
	downloads     *downloadTracker
	actionTimeout time.Duration
	closed        bool
}

// runBounded executes run against a child context that expires after
// timeout, so a query that never matches resolves to an error instead of
// blocking until the session context is cancelled in Close.
func runBounded(parent context.Context, timeout time.Duration, run func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	return run(ctx)
}

// New launches a browser and returns a live Session. The caller owns the
// handle and must call Close on every exit path.
func New(parent context.Context, opts Options) (Session, error) {
	if opts.WindowW == 0 {
		opts.WindowW = 1920
	}
	if opts.WindowH == 0 {
		opts.WindowH = 1080
	}
	if opts.ActionTimeout == 0 {
		opts.ActionTimeout = 10 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(opts.WindowW, opts.WindowH),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		ctx:           browserCtx,
		cancels:       []context.CancelFunc{cancelBrowser, cancelAlloc},
		downloads:     newDownloadTracker(opts.WorkDir),
		actionTimeout: opts.ActionTimeout,
	}

	// Start the browser eagerly so acquisition failures surface here, in
	// setup, rather than inside the first step.
	if err := chromedp.Run(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	if err := s.downloads.attach(browserCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to enable download capture: %w", err)
	}

	return s, nil
}

// Close releases the browser. Safe to call more than once.
func (s *chromeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	err := chromedp.Cancel(s.ctx)
	for _, cancel := range s.cancels {
		cancel()
	}
	if err != nil && err != context.Canceled {
		return fmt.Errorf("browser shutdown: %w", err)
	}
	return nil
}

// run executes chromedp actions under the session's action timeout.
func (s *chromeSession) run(actions ...chromedp.Action) error {
	return runBounded(s.ctx, s.actionTimeout, func(ctx context.Context) error {
		return chromedp.Run(ctx, actions...)
	})
}

func (s *chromeSession) Navigate(url string) error {
	if err := s.run(chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s within %v: %w", url, s.actionTimeout, err)
	}
	return nil
}

func (s *chromeSession) WaitVisible(selector string, timeout time.Duration) error {
	err := runBounded(s.ctx, timeout, func(ctx context.Context) error {
		return chromedp.Run(ctx, chromedp.WaitVisible(selector, queryOption(selector)))
	})
	if err != nil {
		return fmt.Errorf("element %s not visible within %v: %w", selector, timeout, err)
	}
	return nil
}

func (s *chromeSession) IsVisible(selector string) (bool, error) {
	var visible bool
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		const style = window.getComputedStyle(el);
		return style.display !== 'none' && style.visibility !== 'hidden' && el.offsetWidth > 0 && el.offsetHeight > 0;
	})()`, findExpr(selector))
	if err := s.run(chromedp.Evaluate(expr, &visible)); err != nil {
		return false, fmt.Errorf("visibility check for %s: %w", selector, err)
	}
	return visible, nil
}

func (s *chromeSession) IsEnabled(selector string) (bool, error) {
	var enabled bool
	expr := fmt.Sprintf(`(() => { const el = %s; return !!el && !el.disabled; })()`, findExpr(selector))
	if err := s.run(chromedp.Evaluate(expr, &enabled)); err != nil {
		return false, fmt.Errorf("enabled check for %s: %w", selector, err)
	}
	return enabled, nil
}

func (s *chromeSession) IsChecked(selector string) (bool, error) {
	var checked bool
	expr := fmt.Sprintf(`(() => { const el = %s; return !!el && !!el.checked; })()`, findExpr(selector))
	if err := s.run(chromedp.Evaluate(expr, &checked)); err != nil {
		return false, fmt.Errorf("checked check for %s: %w", selector, err)
	}
	return checked, nil
}

func (s *chromeSession) SetChecked(selector string, checked bool) error {
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return false;
		if (el.checked !== %t) {
			el.click();
		}
		return el.checked === %t;
	})()`, findExpr(selector), checked, checked)
	var ok bool
	if err := s.run(chromedp.Evaluate(expr, &ok)); err != nil {
		return fmt.Errorf("failed to set %s checked=%t: %w", selector, checked, err)
	}
	if !ok {
		return fmt.Errorf("toggle %s did not reach checked=%t", selector, checked)
	}
	return nil
}

func (s *chromeSession) Click(selector string) error {
	opt := queryOption(selector)
	if err := s.run(
		chromedp.WaitVisible(selector, opt),
		chromedp.Click(selector, opt),
	); err != nil {
		return fmt.Errorf("failed to click %s within %v: %w", selector, s.actionTimeout, err)
	}
	return nil
}

func (s *chromeSession) Fill(selector, value string) error {
	opt := queryOption(selector)
	if err := s.run(
		chromedp.WaitVisible(selector, opt),
		chromedp.SetValue(selector, value, opt),
	); err != nil {
		return fmt.Errorf("failed to fill %s within %v: %w", selector, s.actionTimeout, err)
	}
	// Date inputs drive their estimated-count display off input events,
	// which SetValue does not fire on its own.
	expr := fmt.Sprintf(`(() => {
		const el = %s;
		if (!el) return;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	})()`, findExpr(selector))
	if err := s.run(chromedp.Evaluate(expr, nil)); err != nil {
		return fmt.Errorf("failed to dispatch input events for %s: %w", selector, err)
	}
	return nil
}

func (s *chromeSession) Text(selector string) (string, error) {
	var text string
	opt := queryOption(selector)
	if err := s.run(
		chromedp.WaitVisible(selector, opt),
		chromedp.Text(selector, &text, opt),
	); err != nil {
		return "", fmt.Errorf("failed to read text of %s within %v: %w", selector, s.actionTimeout, err)
	}
	return text, nil
}

func (s *chromeSession) Settle(d time.Duration) {
	chromedp.Run(s.ctx, chromedp.Sleep(d))
}

func (s *chromeSession) ExpectDownload(timeout time.Duration, trigger func() error) (*Download, error) {
	return s.downloads.expect(s.ctx, timeout, trigger)
}

func (s *chromeSession) Screenshot(path string) error {
	var buf []byte
	if err := s.run(chromedp.FullScreenshot(&buf, 90)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return writeScreenshot(path, buf)
}
