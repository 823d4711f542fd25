package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tomatool/tomato-ui/internal/step"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Status
	}{
		{name: "nil", err: nil, want: StatusPassed},
		{name: "assertion", err: step.Equal(2, 3).Err(), want: StatusFailed},
		{name: "wrapped assertion", err: fmt.Errorf("step 3: %w", step.Equal(2, 3).Err()), want: StatusFailed},
		{name: "other", err: step.ErrMethodNotFound, want: StatusBroken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusFor(tt.err); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func readResult(t *testing.T, dir, id string) CaseResult {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, id+"-result.json"))
	if err != nil {
		t.Fatalf("failed to read result: %v", err)
	}
	var out CaseResult
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return out
}

func TestCase_Lifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "allure-results")
	results, err := Open(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	shot := filepath.Join(t.TempDir(), "shot.png")
	if err := os.WriteFile(shot, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}

	c := results.StartCase("valid login", "login.yaml#valid login", Label{Name: "tag", Value: "smoke"})
	c.StartStep("open page")
	c.FinishStep(nil)
	c.StartStep("check result")
	if err := c.Attach("check result", shot, "image/png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failure := step.Equal(2, 3).Err()
	c.FinishStep(failure)
	if err := c.Finish(failure); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := readResult(t, dir, c.UUID())
	if got.Status != StatusFailed || got.Stage != "finished" {
		t.Errorf("unexpected status %s stage %s", got.Status, got.Stage)
	}
	if got.StatusDetails == nil || !strings.Contains(got.StatusDetails.Message, "assertion failed") {
		t.Errorf("unexpected details: %+v", got.StatusDetails)
	}
	if len(got.Steps) != 2 || got.Steps[0].Status != StatusPassed || got.Steps[1].Status != StatusFailed {
		t.Fatalf("unexpected steps: %+v", got.Steps)
	}
	if len(got.Labels) != 1 || got.Labels[0].Value != "smoke" {
		t.Errorf("unexpected labels: %+v", got.Labels)
	}

	attachments := got.Steps[1].Attachments
	if len(attachments) != 1 || !strings.HasSuffix(attachments[0].Source, "-attachment.png") {
		t.Fatalf("unexpected attachments: %+v", attachments)
	}
	if _, err := os.Stat(filepath.Join(dir, attachments[0].Source)); err != nil {
		t.Errorf("expected attachment copy: %v", err)
	}
}

func TestCase_FinishClosesOpenStep(t *testing.T) {
	results, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := results.StartCase("broken", "broken")
	c.StartStep("click")
	boom := errors.New("timeout")
	if err := c.Finish(boom); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := readResult(t, results.Dir(), c.UUID())
	if got.Status != StatusBroken || got.Steps[0].Status != StatusBroken || got.Steps[0].Stage != "finished" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestCase_AttachWithoutStep(t *testing.T) {
	results, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := results.StartCase("x", "x")
	if err := c.Attach("missing", filepath.Join(t.TempDir(), "none.png"), "image/png"); err == nil {
		t.Error("expected error for missing file")
	}

	src := filepath.Join(t.TempDir(), "log.txt")
	os.WriteFile(src, []byte("hello"), 0644)
	if err := c.Attach("log", src, "text/plain"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.Result().Attachments; len(got) != 1 || got[0].Type != "text/plain" {
		t.Errorf("unexpected case attachments: %+v", got)
	}
}

func TestResults_WriteEnvironment(t *testing.T) {
	results, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := results.WriteEnvironment(map[string]string{"browser": "firefox", "base_url": "http://localhost"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, _ := os.ReadFile(filepath.Join(results.Dir(), "environment.properties"))
	if string(data) != "base_url=http://localhost\nbrowser=firefox\n" {
		t.Errorf("unexpected content %q", string(data))
	}
}

func TestNewRun(t *testing.T) {
	root := t.TempDir()
	run, err := NewRun(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(run.ID) != 8 {
		t.Errorf("expected short id, got %q", run.ID)
	}
	if !strings.HasPrefix(run.Dir, root) || !strings.HasSuffix(run.Dir, run.ID) {
		t.Errorf("unexpected dir %s", run.Dir)
	}

	f, err := run.CreateLog("app")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.Close()
	if _, err := os.Stat(run.LogPath("app")); err != nil {
		t.Errorf("expected log file: %v", err)
	}
}
