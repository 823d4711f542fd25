package apprunner

import (
	"fmt"
	"time"

	"github.com/tomatool/tomato-ui/internal/config"
)

// AppConfig defines how to run the application under test
type AppConfig struct {
	// Name is used in logs and as the container name prefix
	Name string `yaml:"name,omitempty"`
	// Command runs the app as a local process
	Command string `yaml:"command,omitempty"`
	// WorkDir is the command's working directory
	WorkDir string `yaml:"workdir,omitempty"`
	// Image runs the app from a prebuilt container image
	Image string `yaml:"image,omitempty"`
	// Build runs the app from a Dockerfile
	Build *AppBuild `yaml:"build,omitempty"`
	// Port the app listens on
	Port int `yaml:"port,omitempty"`
	// Ready verifies the app accepts traffic
	Ready *ReadyCheck `yaml:"ready,omitempty"`
	// Wait is extra time after the ready check passes
	Wait time.Duration `yaml:"wait,omitempty"`
	// Env is added to the app environment; values expand ${VAR} references
	Env map[string]string `yaml:"env,omitempty"`
}

type AppBuild struct {
	Dockerfile string `yaml:"dockerfile"`
	Context    string `yaml:"context,omitempty"`
}

type ReadyCheck struct {
	// Type: http, tcp, exec
	Type string `yaml:"type"`
	// For HTTP: endpoint path
	Path string `yaml:"path,omitempty"`
	// For HTTP: expected status (default 200)
	Status int `yaml:"status,omitempty"`
	// Timeout for ready check
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// For exec: command run inside the container
	Command string `yaml:"command,omitempty"`
}

// IsConfigured returns true if the app can be started
func (a AppConfig) IsConfigured() bool {
	return a.Command != "" || a.UseContainer()
}

// UseContainer returns true if the app runs in a container
func (a AppConfig) UseContainer() bool {
	return a.Image != "" || a.Build != nil
}

// GetName returns the app name, "app" when unset
func (a AppConfig) GetName() string {
	if a.Name != "" {
		return a.Name
	}
	return "app"
}

// FromConfig decodes the app block. ok is false when no app is configured.
func FromConfig(cfg *config.Config) (app AppConfig, ok bool, err error) {
	if err := cfg.Decode("app", &app); err != nil {
		return AppConfig{}, false, err
	}
	if app.Ready != nil {
		switch app.Ready.Type {
		case "", "http", "tcp", "exec":
		default:
			return AppConfig{}, false, fmt.Errorf("%w: unknown app ready type %q", config.ErrConfig, app.Ready.Type)
		}
	}
	return app, app.IsConfigured(), nil
}
