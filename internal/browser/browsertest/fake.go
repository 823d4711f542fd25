// Package browsertest provides an in-memory browser surface for tests.
package browsertest

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Fake records every call and answers from its maps keyed by selector
type Fake struct {
	mu sync.Mutex

	Texts    map[string]string
	Visibles map[string]bool
	Counts   map[string]int
	Values   map[string]string

	// Errs fails the named operation, e.g. "click" or "screenshot"
	Errs map[string]error

	Calls       []string
	URL         string
	Screenshots []string
}

// New returns an empty fake
func New() *Fake {
	return &Fake{
		Texts:    map[string]string{},
		Visibles: map[string]bool{},
		Counts:   map[string]int{},
		Values:   map[string]string{},
		Errs:     map[string]error{},
	}
}

func (f *Fake) record(op, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op+" "+detail)
	return f.Errs[op]
}

func (f *Fake) Goto(url string, timeout time.Duration) error {
	if err := f.record("goto", url); err != nil {
		return err
	}
	f.mu.Lock()
	f.URL = url
	f.mu.Unlock()
	return nil
}

func (f *Fake) WaitIdle(timeout time.Duration) error {
	return f.record("wait", "")
}

func (f *Fake) Click(selector string, timeout time.Duration) error {
	return f.record("click", selector)
}

func (f *Fake) Fill(selector, value string, timeout time.Duration) error {
	if err := f.record("fill", selector+"="+value); err != nil {
		return err
	}
	f.mu.Lock()
	f.Values[selector] = value
	f.mu.Unlock()
	return nil
}

func (f *Fake) Text(selector string, timeout time.Duration) (string, error) {
	if err := f.record("text", selector); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Texts[selector], nil
}

func (f *Fake) Visible(selector string, timeout time.Duration) (bool, error) {
	if err := f.record("visible", selector); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Visibles[selector], nil
}

func (f *Fake) Count(selector string) (int, error) {
	if err := f.record("count", selector); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Counts[selector], nil
}

// Screenshot writes a small placeholder file so callers can check it exists
func (f *Fake) Screenshot(path string) error {
	if err := f.record("screenshot", path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("png:%s", path)), 0644); err != nil {
		return err
	}
	f.mu.Lock()
	f.Screenshots = append(f.Screenshots, path)
	f.mu.Unlock()
	return nil
}

// CallsOf returns the recorded calls for op
func (f *Fake) CallsOf(op string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.Calls {
		if len(c) > len(op) && c[:len(op)+1] == op+" " {
			out = append(out, c[len(op)+1:])
		}
	}
	return out
}
