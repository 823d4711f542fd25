package screenshot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
)

// Shooter writes a PNG of the current page to path
type Shooter interface {
	Screenshot(path string) error
}

// Capturer writes failure screenshots into Dir
type Capturer struct {
	Dir     string
	Shooter Shooter

	// now is replaced in tests
	now func() time.Time
}

// New creates a capturer writing into dir
func New(dir string, shooter Shooter) *Capturer {
	return &Capturer{Dir: dir, Shooter: shooter}
}

// Take captures the page and returns the file path. The file name carries a
// millisecond timestamp and the sanitized description.
func (c *Capturer) Take(description string) (string, error) {
	if c.Shooter == nil {
		return "", fmt.Errorf("no page to capture")
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	path := filepath.Join(c.Dir, Filename(c.clock(), description))
	if err := c.Shooter.Screenshot(path); err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}

	log.Debug().Str("path", path).Msg("screenshot saved")
	return path, nil
}

func (c *Capturer) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

// Filename builds screenshot_<YYYYMMDD_HHMMSS_mmm>_<description>.png
func Filename(at time.Time, description string) string {
	stamp := at.Format("20060102_150405") + fmt.Sprintf("_%03d", at.Nanosecond()/int(time.Millisecond))
	return fmt.Sprintf("screenshot_%s_%s.png", stamp, Sanitize(description))
}

// Sanitize keeps letters, digits, spaces, underscores and dashes, then trims
func Sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
