package version

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, build time, and runtime information for linotpadm`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			Print(cmd.OutOrStdout())
		},
	}
}

// Print writes the build information to w
func Print(w io.Writer) {
	fmt.Fprintf(w, "linotpadm version %s\n", GetVersion())
	fmt.Fprintf(w, "Build time: %s\n", GetBuildTime())
	fmt.Fprintf(w, "Git commit: %s\n", GetGitCommit())
	fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// GetBuildTime returns the build time
func GetBuildTime() string {
	return buildTime
}

// GetGitCommit returns the git commit hash
func GetGitCommit() string {
	return gitCommit
}
