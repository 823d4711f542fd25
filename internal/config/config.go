package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix marks environment variables that override configuration paths
	EnvPrefix = "UI_AUTOMATION_"

	// EnvSelector names the environment variable that selects the environment block
	EnvSelector = EnvPrefix + "ENV"

	// DefaultEnv is used when no environment is supplied
	DefaultEnv = "test"

	// DefaultFile is the configuration file read when none is given
	DefaultFile = "config/config.yaml"
)

// ErrConfig is returned for any configuration that cannot be used
var ErrConfig = errors.New("config error")

// Browsers lists the supported browser engines
var Browsers = []string{"chromium", "firefox", "webkit"}

// Required lists the paths that must resolve to a non-null value
var Required = []string{"base_url", "browser", "timeout.page_load", "timeout.element"}

// Options controls where configuration is read from
type Options struct {
	// File is the YAML configuration file; a missing file contributes nothing
	File string
	// Env selects the environments.<name> block, falling back to UI_AUTOMATION_ENV
	Env string
	// Environ overrides os.Environ, mostly for tests
	Environ []string
}

// Config is the merged, validated configuration tree.
// It is built once at startup and handed to every consumer.
type Config struct {
	env  string
	file string
	tree map[string]any
}

// Defaults returns the built-in configuration
func Defaults() map[string]any {
	return map[string]any{
		"base_url": "https://example.com",
		"browser":  "chromium",
		"headless": true,
		"timeout": map[string]any{
			"page_load": 30000,
			"element":   5000,
		},
		"report": map[string]any{
			"allure_results": "reports/allure-results",
			"screenshots":    "screenshots",
		},
	}
}

// Load merges defaults, the configuration file, its environment block and
// UI_AUTOMATION_* variables, then validates the result.
func Load(opts Options) (*Config, error) {
	if opts.File == "" {
		opts.File = DefaultFile
	}
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}

	user, err := readFile(opts.File)
	if err != nil {
		return nil, err
	}

	env := opts.Env
	if env == "" {
		env = lookupEnv(environ, EnvSelector)
	}
	if env == "" {
		env = DefaultEnv
	}

	envBlock := map[string]any{}
	if envs, ok := user["environments"].(map[string]any); ok {
		if block, ok := envs[env].(map[string]any); ok {
			envBlock = block
		}
	}

	tree := Merge(Merge(Merge(Defaults(), user), envBlock), FromEnviron(environ, EnvPrefix))

	cfg := &Config{env: env, file: opts.File, tree: tree}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debug().Str("file", opts.File).Str("env", env).Msg("configuration loaded")
	return cfg, nil
}

// New builds a Config from an already merged tree and validates it
func New(tree map[string]any) (*Config, error) {
	cfg := &Config{env: DefaultEnv, tree: Merge(map[string]any{}, tree)}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("file", path).Msg("configuration file not found, using defaults")
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrConfig, path, err)
	}

	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfig, path, err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Validate checks required paths and the browser value
func (c *Config) Validate() error {
	for _, path := range Required {
		if c.Get(path, nil) == nil {
			return fmt.Errorf("%w: missing required setting %q", ErrConfig, path)
		}
	}

	browser, ok := c.Get("browser", nil).(string)
	if !ok || !isBrowser(browser) {
		return fmt.Errorf("%w: unsupported browser %v, supported: %s",
			ErrConfig, c.Get("browser", nil), strings.Join(Browsers, ", "))
	}
	return nil
}

func isBrowser(name string) bool {
	for _, b := range Browsers {
		if b == name {
			return true
		}
	}
	return false
}

// Env returns the selected environment name
func (c *Config) Env() string { return c.env }

// File returns the configuration file path that was read
func (c *Config) File() string { return c.file }

// Get returns the value at a dotted path, or def when any segment is missing
// or a non-mapping is indexed into.
func (c *Config) Get(path string, def any) any {
	var current any = c.tree
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return def
		}
		current, ok = m[part]
		if !ok {
			return def
		}
	}
	return current
}

// All returns a deep copy of the whole tree
func (c *Config) All() map[string]any {
	return Merge(map[string]any{}, c.tree)
}

// Override sets a value at a dotted path and revalidates. It is meant for
// command line flags applied right after Load. A rejected value leaves the
// configuration unchanged.
func (c *Config) Override(path string, value any) error {
	tree := Merge(map[string]any{}, c.tree)
	setPath(tree, path, value)

	candidate := &Config{env: c.env, file: c.file, tree: tree}
	if err := candidate.Validate(); err != nil {
		return err
	}
	c.tree = tree
	return nil
}

// String returns the value at path formatted as a string
func (c *Config) String(path, def string) string {
	v := c.Get(path, nil)
	if v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns the value at path as a bool, parsing strings set from the environment
func (c *Config) Bool(path string, def bool) bool {
	switch v := c.Get(path, nil).(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			log.Warn().Str("path", path).Str("value", v).Msg("not a boolean, using default")
			return def
		}
		return b
	default:
		return def
	}
}

// Int returns the value at path as an int, parsing strings set from the environment
func (c *Config) Int(path string, def int) int {
	switch v := c.Get(path, nil).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			log.Warn().Str("path", path).Str("value", v).Msg("not an integer, using default")
			return def
		}
		return n
	default:
		return def
	}
}

// Millis reads an integer number of milliseconds as a duration
func (c *Config) Millis(path string, def time.Duration) time.Duration {
	n := c.Int(path, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Millisecond
}

// Decode decodes the subtree at path into out. A missing path leaves out untouched.
func (c *Config) Decode(path string, out any) error {
	v := c.Get(path, nil)
	if v == nil {
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encoding %s: %v", ErrConfig, path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrConfig, path, err)
	}
	return nil
}

// Keys returns every leaf path in sorted order
func (c *Config) Keys() []string {
	var keys []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			if child, ok := v.(map[string]any); ok && len(child) > 0 {
				walk(path, child)
				continue
			}
			keys = append(keys, path)
		}
	}
	walk("", c.tree)
	sort.Strings(keys)
	return keys
}
