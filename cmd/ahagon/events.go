package main

import (
	"fmt"

	"ahagon/internal/config"
	"ahagon/internal/events"
	"ahagon/pkg/fileutil"

	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the recognized event kinds",
	Long: `List every event kind an action can be bound to.

When a configuration file is found, kinds with configured actions are marked
with the number of actions bound to them.`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = fileutil.FindFile(fileutil.ConfigCandidates(fileutil.DefaultConfigName))
	}

	bound := map[string]int{}
	if path != "" {
		cfg, _, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		for _, ac := range cfg.Actions {
			bound[ac.Event]++
		}
	}

	out := cmd.OutOrStdout()
	for _, kind := range events.All() {
		if n := bound[kind.String()]; n > 0 {
			fmt.Fprintf(out, "%-28s %d action(s)\n", kind, n)
			continue
		}
		fmt.Fprintln(out, kind)
	}
	return nil
}
