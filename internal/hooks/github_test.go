package hooks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"ahagon/internal/config"

	"github.com/google/go-github/v57/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGitHub struct {
	mu      sync.Mutex
	hooks   []map[string]any
	created []map[string]any
	auth    []string
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/hooks", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(f.hooks)
		case http.MethodPost:
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.created = append(f.created, body)
			hook := map[string]any{"id": 99, "config": body["config"], "events": body["events"]}
			f.hooks = append(f.hooks, hook)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(hook)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func newTestRegistrar(t *testing.T, fake *fakeGitHub) *Registrar {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client := NewClient("gh-token")
	require.NotNil(t, client)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	client.BaseURL = base

	return NewRegistrar(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testRepo() *config.Repo {
	return &config.Repo{Owner: "octo", Name: "hello", Secret: "hook-secret-value"}
}

func TestEnsure_CreatesHook(t *testing.T) {
	fake := &fakeGitHub{}
	r := newTestRegistrar(t, fake)

	created, err := r.Ensure(context.Background(), testRepo(), "https://ci.example.com/github")
	require.NoError(t, err)
	assert.True(t, created)

	require.Len(t, fake.created, 1)
	body := fake.created[0]
	assert.Equal(t, []any{"*"}, body["events"])
	assert.Equal(t, true, body["active"])

	cfg, ok := body["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://ci.example.com/github", cfg["url"])
	assert.Equal(t, "json", cfg["content_type"])
	assert.Equal(t, "hook-secret-value", cfg["secret"])

	for _, a := range fake.auth {
		assert.Equal(t, "Bearer gh-token", a)
	}
}

func TestEnsure_Idempotent(t *testing.T) {
	fake := &fakeGitHub{}
	r := newTestRegistrar(t, fake)
	ctx := context.Background()

	created, err := r.Ensure(ctx, testRepo(), "https://ci.example.com/github")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.Ensure(ctx, testRepo(), "https://ci.example.com/github")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, fake.created, 1)
}

func TestEnsure_APIError(t *testing.T) {
	fake := &fakeGitHub{}
	r := newTestRegistrar(t, fake)

	repo := &config.Repo{Owner: "octo", Name: "missing", Secret: "s"}
	_, err := r.Ensure(context.Background(), repo, "https://ci.example.com/github")
	require.Error(t, err)

	var ghErr *github.ErrorResponse
	assert.ErrorAs(t, err, &ghErr)
	assert.Contains(t, err.Error(), "octo/missing")
}

func TestNewClient_EmptyToken(t *testing.T) {
	assert.Nil(t, NewClient(""))
}

func TestHookURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{"https://ci.example.com", "https://ci.example.com/github", false},
		{"https://ci.example.com/", "https://ci.example.com/github", false},
		{"http://10.0.0.5:8080/hooks", "http://10.0.0.5:8080/hooks/github", false},
		{"ci.example.com", "", true},
		{"ftp://ci.example.com", "", true},
		{"https://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := HookURL(tt.base)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
