package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/exportcheck/internal/browser"
)

// fakeSession is a scripted browser.Session. Defaults describe a healthy
// target application with exportable data; tests override individual maps
// to script failures.
type fakeSession struct {
	dir string // where fake downloads are materialized

	visible map[string]bool  // IsVisible overrides, default true
	enabled map[string]bool  // IsEnabled overrides, default true
	checked map[string]bool  // IsChecked overrides, default true
	texts   map[string][]string
	waitErr map[string]error // WaitVisible overrides, default nil

	downloadErr     error
	downloadContent string
	downloadName    string

	clicks      []string
	fills       map[string][]string
	settles     []time.Duration
	screenshots []string
	closeCount  int

	downloadSeq int
}

var _ browser.Session = (*fakeSession)(nil)

func newFakeSession(dir string) *fakeSession {
	return &fakeSession{
		dir:     dir,
		visible: map[string]bool{selProgressOverlay: false},
		enabled: map[string]bool{},
		checked: map[string]bool{},
		texts: map[string][]string{
			selModalTitle:       {"BWA-Daten exportieren"},
			selEstimatedRecords: {"1.234 Datensätze"},
			selFormatDescription: {
				"German Excel (Windows-1252, semicolon)",
				"Standard CSV (UTF-8, comma)",
			},
		},
		waitErr: map[string]error{},
		fills:   map[string][]string{},
		downloadContent: "Jahr,Monat,Kategorie,Typ,Betrag,Gruppenkategorie\n" +
			"2024,01,Rent,Expense,1200.00,Fixed\n",
		downloadName: "bwa_export.csv",
	}
}

func (f *fakeSession) Navigate(url string) error { return nil }

func (f *fakeSession) WaitVisible(selector string, timeout time.Duration) error {
	return f.waitErr[selector]
}

func (f *fakeSession) IsVisible(selector string) (bool, error) {
	if v, ok := f.visible[selector]; ok {
		return v, nil
	}
	return true, nil
}

func (f *fakeSession) IsEnabled(selector string) (bool, error) {
	if v, ok := f.enabled[selector]; ok {
		return v, nil
	}
	return true, nil
}

func (f *fakeSession) IsChecked(selector string) (bool, error) {
	if v, ok := f.checked[selector]; ok {
		return v, nil
	}
	return true, nil
}

func (f *fakeSession) SetChecked(selector string, checked bool) error {
	f.checked[selector] = checked
	return nil
}

func (f *fakeSession) Click(selector string) error {
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakeSession) Fill(selector, value string) error {
	f.fills[selector] = append(f.fills[selector], value)
	return nil
}

// Text pops queued reads per selector; the last value repeats once the
// queue is down to one entry.
func (f *fakeSession) Text(selector string) (string, error) {
	queue, ok := f.texts[selector]
	if !ok || len(queue) == 0 {
		return "", fmt.Errorf("no text scripted for %s", selector)
	}
	value := queue[0]
	if len(queue) > 1 {
		f.texts[selector] = queue[1:]
	}
	return value, nil
}

func (f *fakeSession) Settle(d time.Duration) {
	f.settles = append(f.settles, d)
}

func (f *fakeSession) ExpectDownload(timeout time.Duration, trigger func() error) (*browser.Download, error) {
	if trigger != nil {
		if err := trigger(); err != nil {
			return nil, err
		}
	}
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}

	f.downloadSeq++
	path := filepath.Join(f.dir, fmt.Sprintf("download-%d.tmp", f.downloadSeq))
	if err := os.WriteFile(path, []byte(f.downloadContent), 0644); err != nil {
		return nil, err
	}
	return &browser.Download{SuggestedFilename: f.downloadName, Path: path}, nil
}

func (f *fakeSession) Screenshot(path string) error {
	f.screenshots = append(f.screenshots, path)
	return nil
}

func (f *fakeSession) Close() error {
	f.closeCount++
	return nil
}
