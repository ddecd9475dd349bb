package notifier

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"

	"ahagon/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rustSecret  = "rust-webhook-secret-with-enough-entropy-x81"
	servoSecret = "servo-webhook-secret-with-enough-entropy-q27"
	servoToken  = "servo-ci-token"
)

func testRegistry() *config.Registry {
	return config.NewRegistry([]*config.Repo{
		{Owner: "rust-lang", Name: "rust", Secret: rustSecret},
		{Owner: "servo", Name: "servo", Secret: servoSecret, CIToken: servoToken},
	})
}

func sign256(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func sign1(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

func githubHeaders() http.Header {
	h := http.Header{}
	h.Set(EventHeader, "push")
	h.Set("User-Agent", "GitHub-Hookshot/044aadd")
	return h
}

func TestGitHub_CheckHeaders(t *testing.T) {
	g := NewGitHub(testRegistry())

	tests := []struct {
		name    string
		mutate  func(h http.Header)
		wantErr bool
	}{
		{"valid", func(h http.Header) {}, false},
		{"missing event", func(h http.Header) { h.Del(EventHeader) }, true},
		{"missing user agent", func(h http.Header) { h.Del("User-Agent") }, true},
		{"wrong user agent", func(h http.Header) { h.Set("User-Agent", "curl/8.0") }, true},
		{"prefix not at start", func(h http.Header) { h.Set("User-Agent", "x GitHub-Hookshot/1") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := githubHeaders()
			tt.mutate(h)
			err := g.CheckHeaders(h)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrAuthentication)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGitHub_Verify(t *testing.T) {
	g := NewGitHub(testRegistry())
	body := []byte(`{"ref":"refs/heads/main"}`)

	t.Run("sha256 picks matching repo", func(t *testing.T) {
		h := githubHeaders()
		h.Set(SignatureHeader, sign256(body, servoSecret))
		repos, err := g.Verify(h, body)
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "servo/servo", repos[0].Slug())
	})

	t.Run("legacy sha1 header", func(t *testing.T) {
		h := githubHeaders()
		h.Set(LegacySignatureHeader, sign1(body, rustSecret))
		repos, err := g.Verify(h, body)
		require.NoError(t, err)
		require.Len(t, repos, 1)
		assert.Equal(t, "rust-lang/rust", repos[0].Slug())
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err := g.Verify(githubHeaders(), body)
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("unknown secret", func(t *testing.T) {
		h := githubHeaders()
		h.Set(SignatureHeader, sign256(body, "some-other-secret"))
		_, err := g.Verify(h, body)
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("tampered body", func(t *testing.T) {
		h := githubHeaders()
		h.Set(SignatureHeader, sign256(body, rustSecret))
		_, err := g.Verify(h, []byte(`{"ref":"refs/heads/evil"}`))
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("reserialized body does not verify", func(t *testing.T) {
		spaced := []byte(`{ "ref" : "refs/heads/main" }`)
		h := githubHeaders()
		h.Set(SignatureHeader, sign256(spaced, rustSecret))
		_, err := g.Verify(h, body)
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("malformed signature", func(t *testing.T) {
		h := githubHeaders()
		h.Set(SignatureHeader, "sha256=not-hex")
		_, err := g.Verify(h, body)
		assert.ErrorIs(t, err, ErrSignature)
	})
}

func TestGitHub_Verify_SharedSecret(t *testing.T) {
	g := NewGitHub(config.NewRegistry([]*config.Repo{
		{Owner: "rust-lang", Name: "rust", Secret: rustSecret},
		{Owner: "rust-lang", Name: "cargo", Secret: rustSecret},
		{Owner: "servo", Name: "servo", Secret: servoSecret},
	}))
	body := []byte(`{}`)
	h := githubHeaders()
	h.Set(SignatureHeader, sign256(body, rustSecret))

	repos, err := g.Verify(h, body)
	require.NoError(t, err)
	require.Len(t, repos, 2)
	assert.Equal(t, "rust-lang/rust", repos[0].Slug())
	assert.Equal(t, "rust-lang/cargo", repos[1].Slug())
}

func TestGitHub_Attribute(t *testing.T) {
	g := NewGitHub(testRegistry())
	rust := &config.Repo{Owner: "rust-lang", Name: "rust", Secret: rustSecret}
	cargo := &config.Repo{Owner: "rust-lang", Name: "cargo", Secret: rustSecret}

	decode := func(t *testing.T, raw string) *Payload {
		t.Helper()
		p, err := DecodeJSON([]byte(raw))
		require.NoError(t, err)
		return p
	}

	t.Run("shared secret resolved by full_name", func(t *testing.T) {
		p := decode(t, `{"repository":{"full_name":"rust-lang/cargo"}}`)
		repo, err := g.Attribute([]*config.Repo{rust, cargo}, p)
		require.NoError(t, err)
		assert.Same(t, cargo, repo)
	})

	t.Run("full_name compared case-insensitively", func(t *testing.T) {
		p := decode(t, `{"repository":{"full_name":"Rust-Lang/Rust"}}`)
		repo, err := g.Attribute([]*config.Repo{rust, cargo}, p)
		require.NoError(t, err)
		assert.Same(t, rust, repo)
	})

	t.Run("unconfigured full_name rejected", func(t *testing.T) {
		p := decode(t, `{"repository":{"full_name":"evil/unconfigured"}}`)
		_, err := g.Attribute([]*config.Repo{rust}, p)
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("full_name of a repo with another secret rejected", func(t *testing.T) {
		p := decode(t, `{"repository":{"full_name":"servo/servo"}}`)
		_, err := g.Attribute([]*config.Repo{rust}, p)
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("no full_name with a single candidate", func(t *testing.T) {
		p := decode(t, `{"zen":"Keep it logically awesome."}`)
		repo, err := g.Attribute([]*config.Repo{rust}, p)
		require.NoError(t, err)
		assert.Same(t, rust, repo)
	})

	t.Run("no full_name with shared secret is ambiguous", func(t *testing.T) {
		p := decode(t, `{"zen":"Keep it logically awesome."}`)
		_, err := g.Attribute([]*config.Repo{rust, cargo}, p)
		assert.ErrorIs(t, err, ErrSignature)
	})
}

func travisHeaders(slug, token string) http.Header {
	h := http.Header{}
	h.Set(RepoSlugHeader, slug)
	h.Set(AuthorizationHeader, TravisDigest(slug, token))
	return h
}

func TestTravis_Authenticate(t *testing.T) {
	tr := NewTravis(testRegistry())

	t.Run("valid", func(t *testing.T) {
		repo, err := tr.Authenticate(travisHeaders("servo/servo", servoToken))
		require.NoError(t, err)
		assert.Equal(t, "servo/servo", repo.Slug())
	})

	t.Run("missing slug", func(t *testing.T) {
		h := travisHeaders("servo/servo", servoToken)
		h.Del(RepoSlugHeader)
		_, err := tr.Authenticate(h)
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("missing authorization", func(t *testing.T) {
		h := travisHeaders("servo/servo", servoToken)
		h.Del(AuthorizationHeader)
		_, err := tr.Authenticate(h)
		assert.ErrorIs(t, err, ErrAuthentication)
	})

	t.Run("unknown repo", func(t *testing.T) {
		_, err := tr.Authenticate(travisHeaders("evil/repo", servoToken))
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("repo without token", func(t *testing.T) {
		_, err := tr.Authenticate(travisHeaders("rust-lang/rust", ""))
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("wrong token", func(t *testing.T) {
		_, err := tr.Authenticate(travisHeaders("servo/servo", "guess"))
		assert.ErrorIs(t, err, ErrSignature)
	})
}

func TestTravisDigest(t *testing.T) {
	sum := sha256.Sum256([]byte("servo/servo" + servoToken))
	assert.Equal(t, hex.EncodeToString(sum[:]), TravisDigest("servo/servo", servoToken))
	assert.Len(t, TravisDigest("a/b", "c"), 64)
}

func TestTravis_Verify(t *testing.T) {
	tr := NewTravis(testRegistry())
	repo := &config.Repo{Owner: "servo", Name: "servo", CIToken: servoToken}
	body := []byte(`payload=%7B%22state%22%3A%22passed%22%7D`)

	signed := func(b []byte) http.Header {
		h := travisHeaders("servo/servo", servoToken)
		h.Set(TravisSignatureHeader, TravisSignature(b, servoToken))
		return h
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, tr.Verify(signed(body), repo, body))
	})

	t.Run("payload altered after signing", func(t *testing.T) {
		altered := []byte(`payload=%7B%22state%22%3A%22failed%22%7D`)
		err := tr.Verify(signed(body), repo, altered)
		assert.ErrorIs(t, err, ErrSignature)
	})

	t.Run("signed with another token", func(t *testing.T) {
		h := travisHeaders("servo/servo", servoToken)
		h.Set(TravisSignatureHeader, TravisSignature(body, "guess"))
		assert.ErrorIs(t, tr.Verify(h, repo, body), ErrSignature)
	})

	t.Run("missing signature", func(t *testing.T) {
		h := travisHeaders("servo/servo", servoToken)
		assert.ErrorIs(t, tr.Verify(h, repo, body), ErrSignature)
	})

	t.Run("malformed signature", func(t *testing.T) {
		h := travisHeaders("servo/servo", servoToken)
		h.Set(TravisSignatureHeader, "zz-not-hex")
		assert.ErrorIs(t, tr.Verify(h, repo, body), ErrSignature)
	})
}

func TestTravisSignature(t *testing.T) {
	mac := hmac.New(sha256.New, []byte(servoToken))
	mac.Write([]byte("payload=x"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), TravisSignature([]byte("payload=x"), servoToken))
}
