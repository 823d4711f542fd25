package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tomatool/tomato-ui/internal/apprunner"
	"github.com/tomatool/tomato-ui/internal/config"
	"github.com/tomatool/tomato-ui/internal/formatter"
	"github.com/tomatool/tomato-ui/internal/page"
	"github.com/tomatool/tomato-ui/internal/report"
	"github.com/tomatool/tomato-ui/internal/services"
	"github.com/tomatool/tomato-ui/internal/suite"
	"github.com/tomatool/tomato-ui/internal/version"
	"github.com/urfave/cli/v2"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run YAML test cases in the browser",
	ArgsUsage: "[files or directories...]",
	Description: `Run loads the configuration, locators and test cases, optionally starts the
application under test, then runs every case in its own browser session.

Paths default to ./tests. Results are written in Allure format to
report.allure_results and failure screenshots to report.screenshots.`,
	Flags: append(projectFlags(),
		&cli.StringFlag{
			Name:    "tags",
			Aliases: []string{"t"},
			Usage:   "only run cases matching a tag expression, e.g. \"@smoke && ~@slow\"",
		},
		&cli.StringFlag{
			Name:    "scenario",
			Aliases: []string{"s"},
			Usage:   "only run cases whose name matches this regular expression",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Value:   formatter.FormatCases,
			Usage:   "output format: cases, events, pretty, progress, junit, cucumber",
		},
		&cli.BoolFlag{
			Name:  "fail-fast",
			Usage: "stop at the first failing case",
		},
		&cli.BoolFlag{
			Name:  "no-app",
			Usage: "do not start the application configured under app",
		},
		&cli.BoolFlag{
			Name:  "app-logs",
			Usage: "stream application output to the terminal",
		},
		&cli.BoolFlag{
			Name:    "watch",
			Aliases: []string{"w"},
			Usage:   "re-run when test cases, locators or configuration change",
		},
	),
	Action: runRun,
}

func runRun(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !c.Bool("watch") {
		return runOnce(ctx, c)
	}

	w, err := newWatcher(watchTargets(c))
	if err != nil {
		return err
	}
	defer w.Close()

	return w.Loop(ctx, func() {
		if err := runOnce(ctx, c); err != nil {
			fmt.Fprintln(c.App.Writer, errorStyle.Render(err.Error()))
		}
		fmt.Fprintln(c.App.Writer, helpStyle.Render("Watching for changes, press Ctrl+C to stop"))
	})
}

func runOnce(ctx context.Context, c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}
	cfg := p.config

	if !c.Bool("no-app") {
		run, err := report.NewRun(cfg.String("run.logs", report.DefaultRunRoot))
		if err != nil {
			log.Warn().Err(err).Msg("failed to create run directory, process output is not saved")
		}

		svc, err := startServices(ctx, c, cfg, run)
		if err != nil {
			return err
		}
		if svc != nil {
			defer svc.Cleanup()
		}

		app, err := startApp(ctx, c, cfg, run, svc)
		if err != nil {
			return err
		}
		if app != nil {
			defer func() {
				if err := app.Stop(); err != nil {
					log.Warn().Err(err).Msg("failed to stop app")
				}
			}()
		}
	}

	results, err := report.Open(cfg.String("report.allure_results", "reports/allure-results"))
	if err != nil {
		return err
	}
	env := version.Info()
	env["browser"] = cfg.String("browser", "")
	env["base_url"] = cfg.String("base_url", "")
	env["environment"] = cfg.Env()
	if err := results.WriteEnvironment(env); err != nil {
		log.Warn().Err(err).Msg("failed to write report environment")
	}

	s, err := suite.New(cfg, p.locators, page.NewRegistry(), results, suite.Options{
		Format:   c.String("format"),
		Tags:     c.String("tags"),
		Scenario: c.String("scenario"),
		FailFast: c.Bool("fail-fast") || cfg.Bool("run.fail_fast", false),
		Output:   c.App.Writer,
	})
	if err != nil {
		return err
	}

	started := time.Now()
	err = s.Run(ctx, p.files)
	printRunFooter(c.App.Writer, results.Dir(), time.Since(started), err)
	return err
}

// startServices starts the containers the app depends on.
// It returns nil when no services are configured.
func startServices(ctx context.Context, c *cli.Context, cfg *config.Config, run *report.Run) (*services.Manager, error) {
	configs, err := services.FromConfig(cfg)
	if err != nil || len(configs) == 0 {
		return nil, err
	}
	if err := services.CheckDockerAvailable(); err != nil {
		return nil, err
	}

	m, err := services.NewManager(configs)
	if err != nil {
		return nil, err
	}
	m.SetRun(run)

	fmt.Fprintf(c.App.Writer, "Starting services: %s\n", strings.Join(m.Order(), ", "))
	if err := m.StartAll(ctx); err != nil {
		m.Cleanup()
		return nil, err
	}

	endpoints, err := m.Endpoints(ctx)
	if err != nil {
		m.Cleanup()
		return nil, err
	}
	for _, e := range endpoints {
		fmt.Fprintln(c.App.Writer, helpStyle.Render(fmt.Sprintf("  %s:%s → %s:%s", e.Service, e.Port, e.Host, e.Mapped)))
	}
	return m, nil
}

// startApp starts the configured application and points base_url at it.
// It returns nil when no app is configured.
func startApp(ctx context.Context, c *cli.Context, cfg *config.Config, run *report.Run, svc *services.Manager) (*apprunner.Runner, error) {
	app, ok, err := apprunner.FromConfig(cfg)
	if err != nil || !ok {
		return nil, err
	}
	if app.UseContainer() && svc == nil {
		if err := services.CheckDockerAvailable(); err != nil {
			return nil, err
		}
	}

	runner := apprunner.NewRunner(app)
	runner.SetShowLogs(c.Bool("app-logs"))
	if run != nil {
		runner.SetRun(run)
		fmt.Fprintln(c.App.Writer, helpStyle.Render("App logs: "+run.LogPath("app")))
	}
	if svc != nil {
		if app.UseContainer() {
			runner.SetNetwork(svc.NetworkName())
			runner.SetServiceEnv(svc.InternalEnv())
		} else {
			env, err := svc.Env(ctx)
			if err != nil {
				return nil, err
			}
			runner.SetServiceEnv(env)
		}
	}

	fmt.Fprintf(c.App.Writer, "Starting %s (%s)...\n", app.GetName(), runner.Mode())
	if err := runner.Start(ctx); err != nil {
		if stopErr := runner.Stop(); stopErr != nil {
			log.Warn().Err(stopErr).Msg("failed to stop app after start failure")
		}
		for _, line := range runner.RecentLogs(20) {
			fmt.Fprintln(c.App.ErrWriter, helpStyle.Render(line))
		}
		return nil, fmt.Errorf("starting %s: %w", app.GetName(), err)
	}

	if app.Port > 0 && c.String("base-url") == "" {
		if err := cfg.Override("base_url", runner.BaseURL()); err != nil {
			_ = runner.Stop()
			return nil, err
		}
		log.Info().Str("base_url", runner.BaseURL()).Msg("base_url points at the started app")
	}
	return runner, nil
}

func printRunFooter(w io.Writer, resultsDir string, elapsed time.Duration, err error) {
	fmt.Fprintln(w)
	switch {
	case err == nil:
		fmt.Fprintln(w, successStyle.Render("All cases passed"))
	case errors.Is(err, suite.ErrFailed):
		fmt.Fprintln(w, errorStyle.Render("Some cases failed"))
	default:
		fmt.Fprintln(w, warnStyle.Render("Run aborted"))
	}
	fmt.Fprintln(w, helpStyle.Render(fmt.Sprintf("Finished in %s, results in %s", elapsed.Round(time.Millisecond), resultsDir)))
}
