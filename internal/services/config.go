package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomatool/tomato-ui/internal/config"
)

// Service is a container the application under test depends on, such as a database
type Service struct {
	Image     string            `yaml:"image"`
	Env       map[string]string `yaml:"env,omitempty"`
	Ports     []string          `yaml:"ports,omitempty"`
	DependsOn []string          `yaml:"depends_on,omitempty"`
	WaitFor   WaitStrategy      `yaml:"wait_for,omitempty"`
}

// WaitStrategy decides when a service container is ready
type WaitStrategy struct {
	// Type: port, log, http, exec
	Type    string        `yaml:"type,omitempty"`
	Target  string        `yaml:"target,omitempty"`
	Path    string        `yaml:"path,omitempty"`
	Method  string        `yaml:"method,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// FromConfig decodes the services block and checks every reference in it
func FromConfig(cfg *config.Config) (map[string]Service, error) {
	services := map[string]Service{}
	if err := cfg.Decode("services", &services); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		svc := services[name]
		if svc.Image == "" {
			return nil, fmt.Errorf("%w: service %s has no image", config.ErrConfig, name)
		}
		for _, dep := range svc.DependsOn {
			if _, ok := services[dep]; !ok {
				return nil, fmt.Errorf("%w: service %s depends on unknown service %s", config.ErrConfig, name, dep)
			}
		}
		switch svc.WaitFor.Type {
		case "", "port", "log", "http", "exec":
		default:
			return nil, fmt.Errorf("%w: service %s has unknown wait type %q", config.ErrConfig, name, svc.WaitFor.Type)
		}
	}
	return services, nil
}

// normalizePort turns "5432" into "5432/tcp"
func normalizePort(port string) string {
	if strings.Contains(port, "/") {
		return port
	}
	return port + "/tcp"
}

// bare strips the protocol from "5432/tcp"
func bare(port string) string {
	if i := strings.Index(port, "/"); i > 0 {
		return port[:i]
	}
	return port
}

// envPrefix turns a service name into the prefix of its exported variables
func envPrefix(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name)
}
