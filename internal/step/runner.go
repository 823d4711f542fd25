package step

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tomatool/tomato-ui/internal/page"
)

// Reporter receives step lifecycle events
type Reporter interface {
	StartStep(name string)
	FinishStep(err error)
	Attach(name, path, mediaType string) error
}

// Capturer takes a screenshot tagged with a description and returns its path
type Capturer interface {
	Take(description string) (string, error)
}

// Runner executes steps against one page object
type Runner struct {
	page     page.Object
	resolver *Resolver
	capturer Capturer
	reporter Reporter
}

// NewRunner creates a runner. capturer and reporter may be nil.
func NewRunner(p page.Object, resolver *Resolver, capturer Capturer, reporter Reporter) *Runner {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Runner{page: p, resolver: resolver, capturer: capturer, reporter: reporter}
}

// RunStep resolves and dispatches a step. On failure a screenshot is attached
// to the report and the original error is returned.
func (r *Runner) RunStep(ctx context.Context, s Step) error {
	title := s.Title()
	log.Debug().Str("action", s.Action).Str("step", title).Msg("running step")

	r.reporter.StartStep(title)
	err := r.execute(ctx, s)
	if err != nil {
		r.capture(title)
	}
	r.reporter.FinishStep(err)
	return err
}

func (r *Runner) capture(title string) {
	if r.capturer == nil {
		return
	}
	path, err := r.capturer.Take(title)
	if err != nil {
		log.Error().Err(err).Str("step", title).Msg("failed to capture screenshot")
		return
	}
	if err := r.reporter.Attach(title, path, "image/png"); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to attach screenshot")
	}
}

func (r *Runner) execute(ctx context.Context, s Step) error {
	args, err := r.resolver.ResolveAll(s.Args)
	if err != nil {
		return err
	}

	switch s.Action {
	case ActionLoad:
		return r.page.Load(ctx, args...)

	case ActionCallMethod:
		return r.callMethod(ctx, args)

	case ActionAssertEqual, ActionAssertGreaterThan, ActionAssertTrue:
		return r.assert(ctx, s)

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAction, s.Action)
	}
}

func (r *Runner) callMethod(ctx context.Context, args []any) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: call_method needs a method name as its first argument", ErrMalformedArgument)
	}
	name, ok := args[0].(string)
	if !ok || name == "" {
		return fmt.Errorf("%w: call_method name must be a string, got %v", ErrMalformedArgument, args[0])
	}

	if action, ok := r.page.Action(name); ok {
		return action(ctx, args[1:]...)
	}
	if query, ok := r.page.Query(name); ok {
		if len(args) > 1 {
			return fmt.Errorf("%w: %s takes no arguments", ErrMalformedArgument, name)
		}
		_, err := query(ctx)
		return err
	}
	return fmt.Errorf("%w: %s on %s", ErrMethodNotFound, name, r.page.Name())
}

func (r *Runner) assert(ctx context.Context, s Step) error {
	if s.Method == "" {
		return fmt.Errorf("%w: %s needs a method", ErrMalformedArgument, s.Action)
	}
	query, ok := r.page.Query(s.Method)
	if !ok {
		return fmt.Errorf("%w: %s on %s", ErrMethodNotFound, s.Method, r.page.Name())
	}

	expected, err := r.resolver.Resolve(s.Expected)
	if err != nil {
		return err
	}
	actual, err := query(ctx)
	if err != nil {
		return err
	}

	var result Result
	switch s.Action {
	case ActionAssertEqual:
		result = Equal(actual, expected)
	case ActionAssertGreaterThan:
		result = GreaterThan(actual, expected)
	default:
		result = True(actual)
	}

	log.Debug().Str("method", s.Method).Interface("actual", actual).Interface("expected", result.Expected).
		Bool("passed", result.Passed).Msg("assertion evaluated")
	return result.Err()
}

// Check reports problems that can be found without a browser: unknown
// actions, missing fields, and method names absent from the page object.
func Check(p page.Object, s Step) error {
	switch s.Action {
	case ActionLoad:
		return nil
	case ActionCallMethod:
		if len(s.Args) == 0 {
			return fmt.Errorf("%w: call_method needs a method name as its first argument", ErrMalformedArgument)
		}
		name, ok := s.Args[0].(string)
		if !ok {
			return fmt.Errorf("%w: call_method name must be a string, got %v", ErrMalformedArgument, s.Args[0])
		}
		if isPlaceholder(name) {
			return nil
		}
		if _, ok := p.Action(name); ok {
			return nil
		}
		if _, ok := p.Query(name); ok {
			return nil
		}
		return fmt.Errorf("%w: %s on %s", ErrMethodNotFound, name, p.Name())
	case ActionAssertEqual, ActionAssertGreaterThan, ActionAssertTrue:
		if s.Method == "" {
			return fmt.Errorf("%w: %s needs a method", ErrMalformedArgument, s.Action)
		}
		if _, ok := p.Query(s.Method); !ok {
			return fmt.Errorf("%w: %s on %s", ErrMethodNotFound, s.Method, p.Name())
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedAction, s.Action)
	}
}

func isPlaceholder(s string) bool {
	return len(s) > 2 && s[:2] == "${" && s[len(s)-1] == '}'
}

type nopReporter struct{}

func (nopReporter) StartStep(string)                    {}
func (nopReporter) FinishStep(error)                    {}
func (nopReporter) Attach(string, string, string) error { return nil }
