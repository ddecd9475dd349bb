package notifier

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"

	"ahagon/internal/config"
)

const (
	RepoSlugHeader      = "Travis-Repo-Slug"
	AuthorizationHeader = "Authorization"

	// TravisSignatureHeader carries the hex HMAC-SHA256 of the raw body keyed
	// by the repository's CI token.
	TravisSignatureHeader = "Signature"
)

// Travis authenticates Travis CI webhook notifications.
type Travis struct {
	repos *config.Registry
}

// NewTravis creates a Travis CI authenticator.
func NewTravis(repos *config.Registry) *Travis {
	return &Travis{repos: repos}
}

// Authenticate resolves the repository named by Travis-Repo-Slug and checks
// the Authorization digest derived from its CI token.
func (t *Travis) Authenticate(h http.Header) (*config.Repo, error) {
	slug := h.Get(RepoSlugHeader)
	if slug == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrAuthentication, RepoSlugHeader)
	}

	authorization := h.Get(AuthorizationHeader)
	if authorization == "" {
		return nil, fmt.Errorf("%w: missing %s header", ErrAuthentication, AuthorizationHeader)
	}

	repo, err := t.repos.Get(slug)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if repo.CIToken == "" {
		return nil, fmt.Errorf("%w: repo '%s' has no ci_token", ErrSignature, slug)
	}

	expected := TravisDigest(repo.Slug(), repo.CIToken)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(authorization)) != 1 {
		return nil, fmt.Errorf("%w: authorization digest mismatch for '%s'", ErrSignature, slug)
	}

	return repo, nil
}

// TravisDigest returns the hex SHA-256 of slug+token, the value Travis CI
// sends in the Authorization header.
func TravisDigest(slug, token string) string {
	sum := sha256.Sum256([]byte(slug + token))
	return hex.EncodeToString(sum[:])
}

// Verify checks the body signature of a notification for repo, which must
// come from Authenticate. body must be the raw request bytes.
func (t *Travis) Verify(h http.Header, repo *config.Repo, body []byte) error {
	signature := h.Get(TravisSignatureHeader)
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", ErrSignature, TravisSignatureHeader)
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: malformed %s header", ErrSignature, TravisSignatureHeader)
	}

	if !hmac.Equal(got, travisMAC(body, repo.CIToken)) {
		return fmt.Errorf("%w: body signature mismatch for '%s'", ErrSignature, repo.Slug())
	}

	return nil
}

// TravisSignature returns the Signature header value for body under token.
func TravisSignature(body []byte, token string) string {
	return hex.EncodeToString(travisMAC(body, token))
}

func travisMAC(body []byte, token string) []byte {
	mac := hmac.New(sha256.New, []byte(token))
	mac.Write(body)
	return mac.Sum(nil)
}
