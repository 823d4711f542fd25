package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog/log"
	"github.com/tomatool/tomato-ui/internal/browser"
	"github.com/tomatool/tomato-ui/internal/config"
	"github.com/tomatool/tomato-ui/internal/datagen"
	"github.com/tomatool/tomato-ui/internal/formatter"
	"github.com/tomatool/tomato-ui/internal/locator"
	"github.com/tomatool/tomato-ui/internal/page"
	"github.com/tomatool/tomato-ui/internal/report"
	"github.com/tomatool/tomato-ui/internal/screenshot"
	"github.com/tomatool/tomato-ui/internal/step"
	"github.com/tomatool/tomato-ui/internal/testcase"
)

// ErrFailed is returned when at least one case did not pass
var ErrFailed = errors.New("test cases failed")

// Options configures suite behavior
type Options struct {
	// Format is a godog formatter name, cases by default
	Format string
	// Tags is a godog tag expression, e.g. "@smoke && ~@slow"
	Tags string
	// Scenario only runs cases whose name matches this regular expression
	Scenario string
	// FailFast stops at the first failing case
	FailFast bool
	Output   io.Writer
}

// Suite runs test case files as godog scenarios, one browser session per case
type Suite struct {
	config        *config.Config
	locators      *locator.Locators
	pages         *page.Registry
	results       *report.Results
	resolver      *step.Resolver
	sessions      SessionFactory
	opts          Options
	scenarioRegex *regexp.Regexp

	cases []entry
}

type entry struct {
	file *testcase.File
	c    *testcase.Case
}

func (e entry) fullName() string {
	return e.file.Path + "#" + e.c.Name
}

type stateKey struct{}

type scenarioState struct {
	entry   entry
	session Session
	runner  *step.Runner
	report  *report.Case
}

// New creates a suite. results may be nil to skip report files.
func New(cfg *config.Config, locators *locator.Locators, pages *page.Registry, results *report.Results, opts Options) (*Suite, error) {
	s := &Suite{
		config:   cfg,
		locators: locators,
		pages:    pages,
		results:  results,
		resolver: step.NewResolver(cfg, datagen.New(0), cfg.Bool("variables.strict", false)),
		opts:     opts,
	}
	s.sessions = s.newDriver

	if opts.Scenario != "" {
		log.Debug().Str("pattern", opts.Scenario).Msg("compiling scenario filter regex")
		regex, err := regexp.Compile(opts.Scenario)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario filter regex: %w", err)
		}
		s.scenarioRegex = regex
		log.Info().Str("pattern", opts.Scenario).Msg("scenario filter active")
	}
	return s, nil
}

func (s *Suite) newDriver() Session {
	return browser.NewDriver(browser.Options{
		Browser:  s.config.String("browser", "chromium"),
		Headless: s.config.Bool("headless", true),
		Timeout:  s.config.Millis("timeout.element", 5*time.Second),
		SlowMo:   s.config.Millis("slow_mo", 0),
	})
}

func (s *Suite) settings() page.Settings {
	return page.Settings{
		BaseURL:         s.config.String("base_url", ""),
		PageLoadTimeout: s.config.Millis("timeout.page_load", 30*time.Second),
		ElementTimeout:  s.config.Millis("timeout.element", 5*time.Second),
	}
}

// Check reports unknown page objects before any browser is started
func (s *Suite) Check(files []*testcase.File) error {
	var errs []error
	for _, f := range files {
		for _, c := range f.Cases {
			if !s.pages.Has(c.PageObject) {
				errs = append(errs, fmt.Errorf("%s: case %q uses unknown page object %q", f.Path, c.Name, c.PageObject))
			}
		}
	}
	return errors.Join(errs...)
}

// Features compiles files into godog features and indexes their cases
func (s *Suite) Features(files []*testcase.File) ([]godog.Feature, error) {
	s.cases = s.cases[:0]
	features := make([]godog.Feature, 0, len(files))
	for _, f := range files {
		feature, err := Compile(f, len(s.cases))
		if err != nil {
			return nil, err
		}
		for i := range f.Cases {
			s.cases = append(s.cases, entry{file: f, c: &f.Cases[i]})
		}
		features = append(features, feature)
	}
	return features, nil
}

// Run executes every case and returns ErrFailed if godog reports failures
func (s *Suite) Run(ctx context.Context, files []*testcase.File) error {
	if err := s.Check(files); err != nil {
		return err
	}
	features, err := s.Features(files)
	if err != nil {
		return err
	}

	format := s.opts.Format
	if format == "" {
		format = formatter.FormatCases
	}

	opts := &godog.Options{
		Format:          format,
		Output:          s.opts.Output,
		FeatureContents: features,
		Tags:            s.opts.Tags,
		StopOnFailure:   s.opts.FailFast,
		Strict:          true,
		Concurrency:     1,
		DefaultContext:  ctx,
	}

	suite := godog.TestSuite{
		Name:                "tomato-ui",
		ScenarioInitializer: s.initializeScenario,
		Options:             opts,
	}

	log.Debug().Int("files", len(files)).Int("cases", len(s.cases)).Msg("running test cases")
	if status := suite.Run(); status != 0 {
		return fmt.Errorf("%w with status %d", ErrFailed, status)
	}
	return nil
}

func (s *Suite) initializeScenario(ctx *godog.ScenarioContext) {
	s.setupScenario(ctx)
}

// setupScenario registers hooks and the step definition. It accepts an
// interface so tests can drive the hooks directly.
func (s *Suite) setupScenario(ctx ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		e, err := s.lookup(sc)
		if err != nil {
			return ctx, err
		}

		if s.scenarioRegex != nil && !s.scenarioRegex.MatchString(e.c.Name) {
			log.Info().Str("case", e.c.Name).Msg("skipping case (doesn't match filter)")
			return ctx, godog.ErrSkip
		}

		st, err := s.begin(e)
		if err != nil {
			return ctx, err
		}
		return context.WithValue(ctx, stateKey{}, st), nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if st, ok := ctx.Value(stateKey{}).(*scenarioState); ok {
			s.end(st, err)
		}
		return ctx, nil
	})

	ctx.Step(stepPattern, s.runStep)
}

func (s *Suite) lookup(sc *godog.Scenario) (entry, error) {
	n := caseIndex(sc.Tags)
	if n < 1 || n > len(s.cases) {
		return entry{}, fmt.Errorf("no test case for scenario %q", sc.Name)
	}
	return s.cases[n-1], nil
}

func (s *Suite) begin(e entry) (*scenarioState, error) {
	log.Debug().Str("case", e.c.Name).Str("page", e.c.PageObject).Msg("starting case")

	session := s.sessions()
	surface, err := session.Start()
	if err != nil {
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	p, err := s.pages.Create(e.c.PageObject, page.Deps{
		Surface:  surface,
		Locators: s.locators,
		Settings: s.settings(),
	})
	if err != nil {
		s.stop(session)
		return nil, err
	}

	st := &scenarioState{entry: e, session: session}

	var reporter step.Reporter
	if s.results != nil {
		labels := []report.Label{
			{Name: "suite", Value: e.file.Title()},
			{Name: "framework", Value: "tomato-ui"},
			{Name: "browser", Value: s.config.String("browser", "")},
		}
		for _, t := range e.c.Tags {
			labels = append(labels, report.Label{Name: "tag", Value: t})
		}
		st.report = s.results.StartCase(e.c.Name, e.fullName(), labels...)
		st.report.SetDescription(e.c.Description)
		reporter = st.report
	}

	capturer := screenshot.New(s.config.String("report.screenshots", "screenshots"), surface)
	st.runner = step.NewRunner(p, s.resolver, capturer, reporter)
	return st, nil
}

func (s *Suite) end(st *scenarioState, err error) {
	if st.report != nil {
		if ferr := st.report.Finish(err); ferr != nil {
			log.Warn().Err(ferr).Str("case", st.entry.c.Name).Msg("failed to write report")
		}
	}
	s.stop(st.session)
}

func (s *Suite) stop(session Session) {
	if err := session.Stop(); err != nil {
		log.Warn().Err(err).Msg("failed to stop browser")
	}
}

func (s *Suite) runStep(ctx context.Context, index int) error {
	st, ok := ctx.Value(stateKey{}).(*scenarioState)
	if !ok {
		return fmt.Errorf("no active test case")
	}
	steps := st.entry.c.Steps
	if index < 1 || index > len(steps) {
		return fmt.Errorf("case %q has no step %d", st.entry.c.Name, index)
	}
	return st.runner.RunStep(ctx, steps[index-1])
}
