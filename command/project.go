package command

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tomatool/tomato-ui/internal/config"
	"github.com/tomatool/tomato-ui/internal/locator"
	"github.com/tomatool/tomato-ui/internal/testcase"
	"github.com/urfave/cli/v2"
)

// projectFlags are shared by commands that read the project configuration
func projectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   config.DefaultFile,
			Usage:   "config file path",
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "environment block to apply (defaults to $UI_AUTOMATION_ENV or test)",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "environment variable file loaded before the configuration",
		},
		&cli.StringFlag{
			Name:  "browser",
			Usage: "override browser (chromium, firefox, webkit)",
		},
		&cli.BoolFlag{
			Name:  "headless",
			Usage: "override headless mode, --headless=false shows the browser",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "override base_url",
		},
		&cli.StringFlag{
			Name:  "locators",
			Usage: "locators file path (defaults to the locators setting or " + locator.DefaultFile + ")",
		},
	}
}

// project is everything a run needs before a browser starts
type project struct {
	config   *config.Config
	locators *locator.Locators
	files    []*testcase.File
	paths    []string
}

// loadConfig loads the configuration and applies command line overrides
func loadConfig(c *cli.Context) (*config.Config, error) {
	if envFile := c.String("env-file"); envFile != "" {
		if err := envFiles.load(envFile); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(config.Options{
		File: c.String("config"),
		Env:  c.String("env"),
	})
	if err != nil {
		return nil, err
	}

	overrides := map[string]any{}
	if v := c.String("browser"); v != "" {
		overrides["browser"] = v
	}
	if c.IsSet("headless") {
		overrides["headless"] = c.Bool("headless")
	}
	if v := c.String("base-url"); v != "" {
		overrides["base_url"] = v
	}
	for path, value := range overrides {
		if err := cfg.Override(path, value); err != nil {
			return nil, fmt.Errorf("applying --%s: %w", flagName(path), err)
		}
		log.Debug().Str("path", path).Interface("value", value).Msg("configuration overridden from flag")
	}
	return cfg, nil
}

func flagName(path string) string {
	switch path {
	case "base_url":
		return "base-url"
	default:
		return path
	}
}

func locatorsPath(c *cli.Context, cfg *config.Config) string {
	if v := c.String("locators"); v != "" {
		return v
	}
	return cfg.String("locators", locator.DefaultFile)
}

func testPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{testcase.DefaultDir}
}

func loadProject(c *cli.Context) (*project, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	locators, err := locator.Load(locatorsPath(c, cfg))
	if err != nil {
		return nil, err
	}

	paths := testPaths(c)
	files, err := testcase.LoadPaths(paths)
	if err != nil {
		return nil, err
	}

	return &project{
		config:   cfg,
		locators: locators,
		files:    files,
		paths:    paths,
	}, nil
}
