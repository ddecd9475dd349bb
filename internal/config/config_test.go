package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validTOML = `
name = "ahagon"

[github]
access_token = "gh-token"
app_client_id = "client-id"
app_client_secret = "client-secret"

[web]
host = "0.0.0.0"
port = "3000"
max_body_size = "2MB"

[db]
file = "deliveries.db"

[[repos]]
owner = "rust-lang"
name = "rust"
reviewers = ["alice", "bob"]
try_users = ["carol"]
secret = "a-real-webhook-secret-with-enough-entropy-9f3k"
travis_token = "travis-token-value"

[[repos]]
owner = "servo"
name = "servo"
secret = "another-webhook-secret-with-entropy-2hd8"
ci_token = "ci-token-value"

[[actions]]
event = "push"
command = "echo 'pushed'"
timeout = 10
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeConfig(t, "cfg.toml", validTOML)

	cfg, registry, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected valid config to load, got: %v", err)
	}

	if cfg.Name != "ahagon" {
		t.Errorf("Expected name 'ahagon', got %q", cfg.Name)
	}
	if cfg.GitHub.AccessToken != "gh-token" {
		t.Errorf("Expected access token to be loaded, got %q", cfg.GitHub.AccessToken)
	}
	if cfg.Addr() != "0.0.0.0:3000" {
		t.Errorf("Expected addr 0.0.0.0:3000, got %s", cfg.Addr())
	}
	if cfg.Web.MaxBodyBytes() != 2*1024*1024 {
		t.Errorf("Expected 2MB body cap, got %d", cfg.Web.MaxBodyBytes())
	}
	if cfg.Web.Assets != DefaultAssets {
		t.Errorf("Expected default assets dir, got %q", cfg.Web.Assets)
	}
	if cfg.DB.File != "deliveries.db" {
		t.Errorf("Expected db file, got %q", cfg.DB.File)
	}

	if registry.Count() != 2 {
		t.Fatalf("Expected 2 repos, got %d", registry.Count())
	}
	if got := registry.List(); got[0] != "rust-lang/rust" || got[1] != "servo/servo" {
		t.Errorf("Expected repos in config order, got %v", got)
	}

	rust, err := registry.Get("rust-lang/rust")
	if err != nil {
		t.Fatalf("Expected rust-lang/rust to be registered: %v", err)
	}
	if rust.CIToken != "travis-token-value" {
		t.Errorf("Expected travis_token to populate CIToken, got %q", rust.CIToken)
	}
	if !rust.IsReviewer("alice") || rust.IsReviewer("carol") {
		t.Error("Reviewer set not loaded correctly")
	}
	if !rust.CanTry("carol") || !rust.CanTry("bob") || rust.CanTry("mallory") {
		t.Error("Try user set not loaded correctly")
	}

	if len(cfg.Actions) != 1 || cfg.Actions[0].TimeoutDuration() != 10*time.Second {
		t.Errorf("Expected one action with 10s timeout, got %+v", cfg.Actions)
	}
}

func TestLoadConfig_YAML(t *testing.T) {
	content := `
name: ahagon
web:
  port: "9000"
repos:
  - owner: octo
    name: hello
    secret: yaml-webhook-secret-with-enough-entropy-77
`
	path := writeConfig(t, "cfg.yaml", content)

	cfg, registry, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Expected valid YAML config to load, got: %v", err)
	}
	if cfg.Addr() != DefaultHost+":9000" {
		t.Errorf("Expected default host with port 9000, got %s", cfg.Addr())
	}
	if cfg.Web.MaxBodyBytes() != DefaultMaxBodyBytes {
		t.Errorf("Expected default body cap, got %d", cfg.Web.MaxBodyBytes())
	}
	if cfg.Web.Timeout() != DefaultRequestTimeout*time.Second {
		t.Errorf("Expected default request timeout, got %s", cfg.Web.Timeout())
	}
	if _, err := registry.Get("octo/hello"); err != nil {
		t.Errorf("Expected octo/hello to be registered: %v", err)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			"malformed toml",
			"cfg.toml",
			"name = ",
			"failed to parse TOML config",
		},
		{
			"unknown toml key",
			"cfg.toml",
			"nmae = \"typo\"\n",
			"unknown keys",
		},
		{
			"unknown yaml key",
			"cfg.yml",
			"nmae: typo\n",
			"failed to parse YAML config",
		},
		{
			"missing secret",
			"cfg.toml",
			"[[repos]]\nowner = \"a\"\nname = \"b\"\n",
			"missing required 'secret' field",
		},
		{
			"placeholder secret",
			"cfg.toml",
			"[[repos]]\nowner = \"a\"\nname = \"b\"\nsecret = \"changeme\"\n",
			"placeholder value",
		},
		{
			"duplicate repo",
			"cfg.toml",
			"[[repos]]\nowner = \"a\"\nname = \"b\"\nsecret = \"s1-long-enough-secret-value-xx\"\n" +
				"[[repos]]\nowner = \"a\"\nname = \"b\"\nsecret = \"s2-long-enough-secret-value-yy\"\n",
			"configured more than once",
		},
		{
			"bad port",
			"cfg.toml",
			"[web]\nport = \"http\"\n",
			"port must be a number",
		},
		{
			"bad body size",
			"cfg.toml",
			"[web]\nmax_body_size = \"lots\"\n",
			"invalid max_body_size",
		},
		{
			"unknown action event",
			"cfg.toml",
			"[[actions]]\nevent = \"Push\"\ncommand = \"true\"\n",
			"unknown event kind",
		},
		{
			"empty action command",
			"cfg.toml",
			"[[actions]]\nevent = \"push\"\ncommand = \"\"\n",
			"invalid command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.file, tt.content)
			_, _, err := LoadConfig(path)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected read error, got %v", err)
	}
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"", DefaultMaxBodyBytes, false},
		{"1048576", 1048576, false},
		{"512KB", 512 * 1024, false},
		{"10MB", 10 * 1024 * 1024, false},
		{"10mb", 10 * 1024 * 1024, false},
		{"1GB", 1024 * 1024 * 1024, false},
		{"0", 0, true},
		{"-5MB", 0, true},
		{"ten", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseByteSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseByteSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseByteSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsWeakSecret(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"short", true},
		{strings.Repeat("a", 40), true},
		{"abcdefghijklmnopqrstuvwxyzabcdefghij", true},
		{"kQ9v-Zr2pLx7_mN4tB8cWy1eHj6uFs3oDa5g", false},
	}

	for _, tt := range tests {
		if got := IsWeakSecret(tt.secret); got != tt.want {
			t.Errorf("IsWeakSecret(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
