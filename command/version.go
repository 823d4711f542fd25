package command

import (
	"fmt"
	"runtime"

	"github.com/tomatool/tomato-ui/internal/version"
	"github.com/urfave/cli/v2"
)

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "Print version information",
	Action: func(c *cli.Context) error {
		fmt.Fprintf(c.App.Writer, "tomato-ui version %s\n", version.Version)
		fmt.Fprintf(c.App.Writer, "  Commit:     %s\n", version.Commit)
		fmt.Fprintf(c.App.Writer, "  Built:      %s\n", version.BuildDate)
		fmt.Fprintf(c.App.Writer, "  Go version: %s\n", runtime.Version())
		fmt.Fprintf(c.App.Writer, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}
