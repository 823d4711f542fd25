package step

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tomatool/tomato-ui/internal/browser/browsertest"
	"github.com/tomatool/tomato-ui/internal/locator"
	"github.com/tomatool/tomato-ui/internal/page"
	"github.com/tomatool/tomato-ui/internal/screenshot"
)

type recordingReporter struct {
	started  []string
	finished []error
	attached []string
}

func (r *recordingReporter) StartStep(name string) { r.started = append(r.started, name) }
func (r *recordingReporter) FinishStep(err error)   { r.finished = append(r.finished, err) }
func (r *recordingReporter) Attach(name, path, mediaType string) error {
	r.attached = append(r.attached, path)
	return nil
}

type fixture struct {
	runner   *Runner
	fake     *browsertest.Fake
	reporter *recordingReporter
	shots    string
	count    any
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l, err := locator.FromMap(map[string]any{
		"results_page": map[string]any{
			"url":    "/results",
			"button": "#go",
		},
	})
	if err != nil {
		t.Fatalf("failed to build locators: %v", err)
	}

	f := &fixture{fake: browsertest.New(), reporter: &recordingReporter{}, shots: t.TempDir(), count: 3}
	p := page.NewBase("results_page", page.Deps{
		Surface:  f.fake,
		Locators: l,
		Settings: page.Settings{BaseURL: "https://example.com", PageLoadTimeout: time.Second, ElementTimeout: time.Second},
	})
	p.RegisterQuery("get_result_count", "", func(ctx context.Context) (any, error) { return f.count, nil })
	p.RegisterQuery("is_ready", "", func(ctx context.Context) (any, error) { return true, nil })

	f.runner = NewRunner(p, NewResolver(testConfig(t), nil, false), screenshot.New(f.shots, f.fake), f.reporter)
	return f
}

func (f *fixture) screenshots(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(f.shots)
	if err != nil {
		t.Fatalf("failed to read screenshot dir: %v", err)
	}
	return entries
}

func TestRunStep_Success(t *testing.T) {
	tests := []struct {
		name string
		step Step
	}{
		{name: "load", step: Step{Action: ActionLoad}},
		{name: "call action", step: Step{Action: ActionCallMethod, Args: []any{"click", "button"}}},
		{name: "call query", step: Step{Action: ActionCallMethod, Args: []any{"is_ready"}}},
		{name: "assert equal", step: Step{Action: ActionAssertEqual, Method: "get_result_count", Expected: 3}},
		{name: "assert greater", step: Step{Action: ActionAssertGreaterThan, Method: "get_result_count", Expected: 0}},
		{name: "assert true", step: Step{Action: ActionAssertTrue, Method: "is_ready"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := f.runner.RunStep(context.Background(), tt.step); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(f.screenshots(t)) != 0 {
				t.Error("expected no screenshot on success")
			}
			if len(f.reporter.started) != 1 || len(f.reporter.finished) != 1 || f.reporter.finished[0] != nil {
				t.Errorf("unexpected report events: %+v", f.reporter)
			}
		})
	}
}

func TestRunStep_Load(t *testing.T) {
	f := newFixture(t)
	if err := f.runner.RunStep(context.Background(), Step{Action: ActionLoad, Args: []any{"${BASE_URL}"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.fake.URL != "https://example.com" {
		t.Errorf("expected configured base url, got %q", f.fake.URL)
	}
}

func TestRunStep_Errors(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr error
	}{
		{name: "unknown method", step: Step{Action: ActionCallMethod, Args: []any{"random_method_not_on_page"}}, wantErr: ErrMethodNotFound},
		{name: "missing method name", step: Step{Action: ActionCallMethod}, wantErr: ErrMalformedArgument},
		{name: "non string method name", step: Step{Action: ActionCallMethod, Args: []any{7}}, wantErr: ErrMalformedArgument},
		{name: "query with args", step: Step{Action: ActionCallMethod, Args: []any{"is_ready", 1}}, wantErr: ErrMalformedArgument},
		{name: "unsupported action", step: Step{Action: "hover"}, wantErr: ErrUnsupportedAction},
		{name: "unknown assertion method", step: Step{Action: ActionAssertTrue, Method: "nope"}, wantErr: ErrMethodNotFound},
		{name: "assertion without method", step: Step{Action: ActionAssertEqual, Expected: 1}, wantErr: ErrMalformedArgument},
		{name: "unknown data type", step: Step{Action: ActionLoad, Args: []any{"${RANDOM_UUID}"}}, wantErr: ErrUnknownDataType},
		{name: "unknown element", step: Step{Action: ActionCallMethod, Args: []any{"click", "missing"}}, wantErr: locator.ErrLocator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.runner.RunStep(context.Background(), tt.step)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if n := len(f.screenshots(t)); n != 1 {
				t.Errorf("expected exactly one screenshot, got %d", n)
			}
			if len(f.reporter.attached) != 1 {
				t.Errorf("expected screenshot to be attached, got %v", f.reporter.attached)
			}
			if f.reporter.finished[0] != err {
				t.Errorf("expected reporter to receive the step error")
			}
		})
	}
}

func TestRunStep_AssertEqualFails(t *testing.T) {
	f := newFixture(t)
	f.count = 2

	err := f.runner.RunStep(context.Background(), Step{Action: ActionAssertEqual, Method: "get_result_count", Expected: 3})
	var ae *AssertionError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AssertionError, got %v", err)
	}
	if ae.Actual != 2 || ae.Expected != 3 {
		t.Errorf("unexpected values: %+v", ae)
	}
	if !strings.Contains(err.Error(), "2") || !strings.Contains(err.Error(), "3") {
		t.Errorf("expected both values in %q", err.Error())
	}
}

func TestRunStep_OriginalErrorReturned(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("element detached")
	f.fake.Errs["click"] = boom

	err := f.runner.RunStep(context.Background(), Step{Action: ActionCallMethod, Args: []any{"click", "button"}, Description: "press go"})
	if err != boom {
		t.Fatalf("expected the original error, got %v", err)
	}

	entries := f.screenshots(t)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one screenshot, got %d", len(entries))
	}
	if !strings.HasSuffix(entries[0].Name(), "_press go.png") {
		t.Errorf("expected description in file name, got %s", entries[0].Name())
	}
}

func TestRunStep_ScreenshotFailureKeepsError(t *testing.T) {
	f := newFixture(t)
	f.fake.Errs["screenshot"] = errors.New("browser closed")

	err := f.runner.RunStep(context.Background(), Step{Action: "hover"})
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}
	if len(f.reporter.attached) != 0 {
		t.Error("expected nothing attached")
	}
}

func TestStep_Title(t *testing.T) {
	if got := (Step{Action: "load"}).Title(); got != "execute action: load" {
		t.Errorf("unexpected default title %q", got)
	}
	if got := (Step{Action: "load", Description: "open"}).Title(); got != "open" {
		t.Errorf("unexpected title %q", got)
	}
}

func TestCheck(t *testing.T) {
	f := newFixture(t)
	p := f.runner.page

	tests := []struct {
		name    string
		step    Step
		wantErr error
	}{
		{name: "load", step: Step{Action: ActionLoad}},
		{name: "known method", step: Step{Action: ActionCallMethod, Args: []any{"click", "button"}}},
		{name: "placeholder method", step: Step{Action: ActionCallMethod, Args: []any{"${METHOD}"}}},
		{name: "unknown method", step: Step{Action: ActionCallMethod, Args: []any{"nope"}}, wantErr: ErrMethodNotFound},
		{name: "assert action not query", step: Step{Action: ActionAssertTrue, Method: "click"}, wantErr: ErrMethodNotFound},
		{name: "unsupported", step: Step{Action: "drag"}, wantErr: ErrUnsupportedAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(p, tt.step)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
