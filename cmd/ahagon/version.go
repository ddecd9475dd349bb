package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.gitCommit=... -X main.buildDate=..."
var (
	gitCommit = ""
	buildDate = ""
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Print the ahagon version together with the commit and toolchain it was built from.`,
	Args:  cobra.NoArgs,
	Run:   runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}

// buildInfo fills in commit and date from the embedded VCS stamp when the
// linker flags were not set.
func buildInfo() (commit, date string) {
	commit, date = gitCommit, buildDate
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "":
				commit = s.Value
			case s.Key == "vcs.time" && date == "":
				date = s.Value
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	if date == "" {
		date = "unknown"
	}
	return commit, date
}

func runVersion(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	if versionShort {
		fmt.Fprintln(out, version)
		return
	}

	commit, date := buildInfo()
	fmt.Fprintf(out, "ahagon %s\n", version)
	fmt.Fprintf(out, "  commit:     %s\n", commit)
	fmt.Fprintf(out, "  built:      %s\n", date)
	fmt.Fprintf(out, "  toolchain:  %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
