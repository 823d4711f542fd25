package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DefaultRunRoot holds one directory per run for process logs
const DefaultRunRoot = ".tomato-ui/runs"

// Run is the log directory of a single invocation
type Run struct {
	ID      string
	Started time.Time
	Dir     string
}

// NewRun creates <root>/<YYYY-MM-DD_HHMMSS>_<id>
func NewRun(root string) (*Run, error) {
	if root == "" {
		root = DefaultRunRoot
	}
	now := time.Now()
	id := uuid.New().String()[:8]

	dir := filepath.Join(root, fmt.Sprintf("%s_%s", now.Format("2006-01-02_150405"), id))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	return &Run{ID: id, Started: now, Dir: dir}, nil
}

// LogPath returns the path of the named log
func (r *Run) LogPath(name string) string {
	return filepath.Join(r.Dir, name+".log")
}

// CreateLog creates the named log file, truncating an existing one
func (r *Run) CreateLog(name string) (*os.File, error) {
	return os.Create(r.LogPath(name))
}
