package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/matzehuels/livegraph/pkg/buildinfo"
)

// SetVersion sets the version information displayed by --version and the
// version command. main calls it with values injected via ldflags.
func SetVersion(v, c, d string) {
	buildinfo.Set(v, c, d)
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, StyleTitle.Render(appName)+" "+StyleValue.Render(buildinfo.Version))
			fmt.Fprintln(out, keyValue("commit", buildinfo.Commit))
			fmt.Fprintln(out, keyValue("built", buildinfo.Date))
			fmt.Fprintln(out, keyValue("go", runtime.Version()))
			return nil
		},
	}
}
