package main

import (
	"fmt"
	"log/slog"

	"ahagon/internal/config"
	"ahagon/internal/hooks"

	"github.com/spf13/cobra"
)

var (
	hooksURL  string
	hooksRepo string
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Register the GitHub webhook on configured repos",
	Long: `Create a webhook on every configured repo that posts all events to <url>/github,
signed with the repo secret. Repos that already have a hook for that URL are skipped.

Requires github.access_token in the configuration or AHAGON_GITHUB_TOKEN.`,
	RunE: runHooks,
}

func init() {
	hooksCmd.Flags().StringVar(&hooksURL, "url", getEnvOrDefault("AHAGON_PUBLIC_URL", ""), "Public base URL of the gateway, e.g. https://ci.example.com")
	hooksCmd.Flags().StringVar(&hooksRepo, "repo", "", "Only register the hook on this owner/name")
}

func runHooks(cmd *cobra.Command, args []string) error {
	if hooksURL == "" {
		return fmt.Errorf("--url is required")
	}
	hookURL, err := hooks.HookURL(hooksURL)
	if err != nil {
		return err
	}

	path, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, repos, err := config.LoadConfig(path)
	if err != nil {
		return err
	}

	token := getEnvOrDefault("AHAGON_GITHUB_TOKEN", cfg.GitHub.AccessToken)
	client := hooks.NewClient(token)
	if client == nil {
		return fmt.Errorf("no GitHub token; set github.access_token or AHAGON_GITHUB_TOKEN")
	}

	targets := repos.All()
	if hooksRepo != "" {
		repo, err := repos.Get(hooksRepo)
		if err != nil {
			return err
		}
		targets = []*config.Repo{repo}
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	registrar := hooks.NewRegistrar(client, logger)

	out := cmd.OutOrStdout()
	var failed int
	for _, repo := range targets {
		created, err := registrar.Ensure(cmd.Context(), repo, hookURL)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(out, "  %-40s [FAILED] %v\n", repo.Slug(), err)
		case created:
			fmt.Fprintf(out, "  %-40s [CREATED]\n", repo.Slug())
		default:
			fmt.Fprintf(out, "  %-40s [EXISTS]\n", repo.Slug())
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d repos failed", failed, len(targets))
	}
	return nil
}
