package browser

import (
	"strings"
	"testing"
	"time"
)

func TestDriver_StopWithoutStart(t *testing.T) {
	d := NewDriver(Options{Browser: "chromium"})
	if err := d.Stop(); err != nil {
		t.Errorf("Stop on an unstarted driver should be a no-op, got %v", err)
	}
}

func TestDriver_UnsupportedBrowser(t *testing.T) {
	d := NewDriver(Options{Browser: "opera"})
	_, err := d.browserType()
	if err == nil || !strings.Contains(err.Error(), "unsupported browser type: opera") {
		t.Errorf("expected unsupported browser error, got %v", err)
	}
}

func TestMillis(t *testing.T) {
	if got := millis(1500 * time.Millisecond); got != 1500 {
		t.Errorf("millis(1.5s) = %v", got)
	}
}
