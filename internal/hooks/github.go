// Package hooks registers the gateway's webhook on configured GitHub repositories.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"ahagon/internal/config"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// GitHubPath is the gateway route GitHub deliveries are posted to
const GitHubPath = "/github"

// NewClient creates an authenticated GitHub client. An empty token yields nil.
func NewClient(token string) *github.Client {
	if token == "" {
		return nil
	}

	ctx := context.Background()
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	return github.NewClient(tc)
}

// Registrar creates repository webhooks pointing at the gateway
type Registrar struct {
	client *github.Client
	logger *slog.Logger
}

// NewRegistrar creates a registrar using client
func NewRegistrar(client *github.Client, logger *slog.Logger) *Registrar {
	return &Registrar{client: client, logger: logger}
}

// HookURL joins the public gateway URL with the GitHub route
func HookURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid gateway URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("gateway URL must be http or https, got %q", base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("gateway URL has no host: %q", base)
	}
	return u.String() + GitHubPath, nil
}

// Ensure creates a webhook for repo delivering every event to hookURL, signed
// with the repo secret. It reports whether a hook was created; an existing
// hook with the same URL is left alone.
func (r *Registrar) Ensure(ctx context.Context, repo *config.Repo, hookURL string) (bool, error) {
	hooks, _, err := r.client.Repositories.ListHooks(ctx, repo.Owner, repo.Name, nil)
	if err != nil {
		return false, fmt.Errorf("listing webhooks for %s: %w", repo.Slug(), err)
	}

	for _, hook := range hooks {
		if hook.Config == nil {
			continue
		}
		if u, ok := hook.Config["url"].(string); ok && u == hookURL {
			r.logger.Info("Webhook already exists", "repo", repo.Slug(), "hook_id", hook.GetID())
			return false, nil
		}
	}

	active := true
	hookReq := &github.Hook{
		Events: []string{"*"},
		Active: &active,
		Config: map[string]interface{}{
			"url":          hookURL,
			"content_type": "json",
			"secret":       repo.Secret,
			"insecure_ssl": "0",
		},
	}

	created, _, err := r.client.Repositories.CreateHook(ctx, repo.Owner, repo.Name, hookReq)
	if err != nil {
		return false, fmt.Errorf("creating webhook for %s: %w", repo.Slug(), err)
	}

	r.logger.Info("Webhook created", "repo", repo.Slug(), "hook_id", created.GetID(), "url", hookURL)
	return true, nil
}
