package version

import "runtime"

var (
	// Set via ldflags at build time
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// Info returns version information, also written to the report environment
func Info() map[string]string {
	return map[string]string{
		"tomato_ui.version": Version,
		"tomato_ui.commit":  Commit,
		"tomato_ui.built":   BuildDate,
		"go.version":        runtime.Version(),
		"os.arch":           runtime.GOOS + "/" + runtime.GOARCH,
	}
}
