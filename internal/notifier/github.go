package notifier

import (
	"fmt"
	"net/http"
	"strings"

	"ahagon/internal/config"

	"github.com/google/go-github/v57/github"
)

const (
	EventHeader           = "X-GitHub-Event"
	DeliveryHeader        = "X-GitHub-Delivery"
	SignatureHeader       = "X-Hub-Signature-256"
	LegacySignatureHeader = "X-Hub-Signature"

	// HookshotPrefix is the User-Agent prefix of GitHub's webhook sender.
	HookshotPrefix = "GitHub-Hookshot"
)

// GitHub authenticates GitHub webhook deliveries against the configured repositories.
type GitHub struct {
	repos *config.Registry
}

// NewGitHub creates a GitHub authenticator.
func NewGitHub(repos *config.Registry) *GitHub {
	return &GitHub{repos: repos}
}

// CheckHeaders validates the identification headers of a delivery.
func (g *GitHub) CheckHeaders(h http.Header) error {
	if h.Get(EventHeader) == "" {
		return fmt.Errorf("%w: missing %s header", ErrAuthentication, EventHeader)
	}

	agent := h.Get("User-Agent")
	if agent == "" {
		return fmt.Errorf("%w: missing User-Agent header", ErrAuthentication)
	}
	if !strings.HasPrefix(agent, HookshotPrefix) {
		return fmt.Errorf("%w: unexpected User-Agent %q", ErrAuthentication, agent)
	}

	return nil
}

// Verify returns every repository whose secret produced the delivery's
// signature, in configuration order. body must be the raw request bytes.
func (g *GitHub) Verify(h http.Header, body []byte) ([]*config.Repo, error) {
	signature := h.Get(SignatureHeader)
	if signature == "" {
		signature = h.Get(LegacySignatureHeader)
	}
	if signature == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrSignature)
	}

	var matched []*config.Repo
	for _, repo := range g.repos.All() {
		if repo.Secret == "" {
			continue
		}
		if err := github.ValidateSignature(signature, body, []byte(repo.Secret)); err == nil {
			matched = append(matched, repo)
		}
	}

	if len(matched) == 0 {
		return nil, fmt.Errorf("%w: no configured repository secret matches", ErrSignature)
	}
	return matched, nil
}

// Attribute picks the delivery's repository among the verified candidates.
// When the payload names its repository (repository.full_name) that
// repository must be one of the candidates. Without a name the candidates
// must be unambiguous.
func (g *GitHub) Attribute(candidates []*config.Repo, payload *Payload) (*config.Repo, error) {
	name := payload.String("repository", "full_name")
	if name == "" {
		if len(candidates) != 1 {
			return nil, fmt.Errorf("%w: secret is shared by %d repositories and the payload names none",
				ErrSignature, len(candidates))
		}
		return candidates[0], nil
	}

	for _, repo := range candidates {
		if strings.EqualFold(repo.Slug(), name) {
			return repo, nil
		}
	}
	return nil, fmt.Errorf("%w: payload repository %q is not signed by its configured secret", ErrSignature, name)
}
