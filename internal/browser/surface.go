package browser

import (
	"time"
)

// Surface is the slice of page automation the harness needs. Page objects and
// screenshot capture depend on it instead of the browser library.
type Surface interface {
	// Goto navigates to url and waits for the load event
	Goto(url string, timeout time.Duration) error
	// WaitIdle waits until the network has been idle
	WaitIdle(timeout time.Duration) error
	Click(selector string, timeout time.Duration) error
	Fill(selector, value string, timeout time.Duration) error
	// Text returns the trimmed text content of the first match
	Text(selector string, timeout time.Duration) (string, error)
	Visible(selector string, timeout time.Duration) (bool, error)
	Count(selector string) (int, error)
	// Screenshot writes a full page PNG to path
	Screenshot(path string) error
}
