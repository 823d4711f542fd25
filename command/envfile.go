package command

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// envFiles loads --env-file once at startup and again before every watch rerun
var envFiles = &envFileLoader{}

// envFileLoader applies an env file to the process environment. Variables that
// were set before the first load win over the file, everything else is
// refreshed from the file on each load.
type envFileLoader struct {
	mu     sync.Mutex
	preset map[string]bool
}

func (l *envFileLoader) load(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.preset == nil {
		l.preset = make(map[string]bool)
		for _, kv := range os.Environ() {
			key, _, _ := strings.Cut(kv, "=")
			l.preset[key] = true
		}
	}

	for key, value := range values {
		if l.preset[key] {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setting %s from %s: %w", key, path, err)
		}
	}
	log.Debug().Str("file", path).Int("variables", len(values)).Msg("environment file loaded")
	return nil
}
