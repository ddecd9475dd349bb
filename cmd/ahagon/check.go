package main

import (
	"fmt"
	"strings"

	"ahagon/internal/config"
	"ahagon/pkg/fileutil"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file",
	Long: `Load and validate the configuration, then print the configured repos and actions.

Exits non-zero when the configuration is malformed or invalid.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, repos, err := config.LoadConfig(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration %s is valid\n", path)
	fmt.Fprintf(out, "  Listen:    %s\n", cfg.Addr())
	fmt.Fprintf(out, "  Body cap:  %d bytes\n", cfg.Web.MaxBodyBytes())
	fmt.Fprintf(out, "  Timeout:   %s\n", cfg.Web.Timeout())
	if cfg.DB.File != "" {
		fmt.Fprintf(out, "  History:   %s\n", cfg.DB.File)
	} else {
		fmt.Fprintf(out, "  History:   disabled\n")
	}
	if err := config.CheckPermissions(path); err != nil {
		fmt.Fprintf(out, "  Warning: %v\n", err)
	}
	if err := fileutil.CheckAssets(cfg.Web.Assets); err != nil {
		fmt.Fprintf(out, "  Warning: %v\n", err)
	}

	fmt.Fprintf(out, "\nRepos (%d):\n", repos.Count())
	for _, repo := range repos.All() {
		notes := []string{}
		if repo.CIToken != "" {
			notes = append(notes, "travis")
		}
		if config.IsWeakSecret(repo.Secret) {
			notes = append(notes, "weak secret")
		}
		fmt.Fprintf(out, "  - %s", repo.Slug())
		if len(notes) > 0 {
			fmt.Fprintf(out, " (%s)", strings.Join(notes, ", "))
		}
		fmt.Fprintln(out)
	}

	if len(cfg.Actions) > 0 {
		fmt.Fprintf(out, "\nActions (%d):\n", len(cfg.Actions))
		for _, ac := range cfg.Actions {
			fmt.Fprintf(out, "  - %s: %s (timeout %s)\n", ac.Event, ac.Command, ac.TimeoutDuration())
		}
	}

	return nil
}
