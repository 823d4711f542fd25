package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tomatool/tomato-ui/internal/version"
	"github.com/urfave/cli/v2"
)

func Run(args []string) error {
	app := &cli.App{
		Name:    "tomato-ui",
		Usage:   "Data-driven browser testing from YAML test cases",
		Version: version.Version,
		Description: `tomato-ui runs YAML test cases against page objects in a real browser.

Configuration is layered: built-in defaults, config/config.yaml, the selected
environment block, then UI_AUTOMATION_* variables and command line flags.
Failed steps capture a screenshot and every case is written as an Allure result.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "warn",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"UI_AUTOMATION_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "environment variable file path",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogging(c.String("log-level")); err != nil {
				return err
			}
			if envFile := c.String("env-file"); envFile != "" {
				if err := envFiles.load(envFile); err != nil {
					return err
				}
			}
			return nil
		},
		Commands: []*cli.Command{
			initCommand,
			newCommand,
			runCommand,
			validateCommand,
			actionsCommand,
			docsCommand,
			versionCommand,
		},
	}

	return app.Run(args)
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	return nil
}
