package config

import "time"

// Config represents the root configuration structure
type Config struct {
	Name    string         `toml:"name" yaml:"name"`
	GitHub  GitHubConfig   `toml:"github" yaml:"github"`
	Web     WebConfig      `toml:"web" yaml:"web"`
	DB      DBConfig       `toml:"db" yaml:"db"`
	Repos   []RepoConfig   `toml:"repos" yaml:"repos"`
	Actions []ActionConfig `toml:"actions" yaml:"actions"`
}

// GitHubConfig holds the credentials used to talk to the GitHub API
type GitHubConfig struct {
	AccessToken     string `toml:"access_token" yaml:"access_token"`
	AppClientID     string `toml:"app_client_id" yaml:"app_client_id"`
	AppClientSecret string `toml:"app_client_secret" yaml:"app_client_secret"`
}

// WebConfig controls the HTTP listener
type WebConfig struct {
	Host           string `toml:"host" yaml:"host"`
	Port           string `toml:"port" yaml:"port"`
	Assets         string `toml:"assets" yaml:"assets"`
	MaxBodySize    string `toml:"max_body_size" yaml:"max_body_size"`
	RequestTimeout int    `toml:"request_timeout" yaml:"request_timeout"` // seconds
	RateLimit      int    `toml:"rate_limit" yaml:"rate_limit"`           // requests per minute per IP, 0 disables

	maxBodyBytes int64
}

// DBConfig points at the delivery history database
type DBConfig struct {
	File string `toml:"file" yaml:"file"`
}

// RepoConfig represents the configuration of a single repository
type RepoConfig struct {
	Owner       string   `toml:"owner" yaml:"owner"`
	Name        string   `toml:"name" yaml:"name"`
	Reviewers   []string `toml:"reviewers" yaml:"reviewers"`
	TryUsers    []string `toml:"try_users" yaml:"try_users"`
	Secret      string   `toml:"secret" yaml:"secret"`
	CIToken     string   `toml:"ci_token" yaml:"ci_token"`
	TravisToken string   `toml:"travis_token" yaml:"travis_token"` // legacy name for ci_token
}

// ActionConfig binds a command to an event kind
type ActionConfig struct {
	Event   string `toml:"event" yaml:"event"`
	Command string `toml:"command" yaml:"command"`
	Timeout int    `toml:"timeout" yaml:"timeout"` // seconds
	Dir     string `toml:"dir" yaml:"dir"`
}

// Repo is a validated repository policy
type Repo struct {
	Owner     string
	Name      string
	Reviewers map[string]bool
	TryUsers  map[string]bool
	Secret    string
	CIToken   string
}

// Slug returns "owner/name".
func (r *Repo) Slug() string {
	return r.Owner + "/" + r.Name
}

// IsReviewer reports whether login may review pull requests for the repository.
func (r *Repo) IsReviewer(login string) bool {
	return r.Reviewers[login]
}

// CanTry reports whether login may request try builds for the repository.
func (r *Repo) CanTry(login string) bool {
	return r.TryUsers[login] || r.Reviewers[login]
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return c.Web.Host + ":" + c.Web.Port
}

// MaxBodyBytes returns the resolved request body cap.
func (w WebConfig) MaxBodyBytes() int64 {
	if w.maxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return w.maxBodyBytes
}

// Timeout returns the per-request deadline.
func (w WebConfig) Timeout() time.Duration {
	if w.RequestTimeout <= 0 {
		return DefaultRequestTimeout * time.Second
	}
	return time.Duration(w.RequestTimeout) * time.Second
}

// TimeoutDuration returns the action timeout.
func (a ActionConfig) TimeoutDuration() time.Duration {
	if a.Timeout <= 0 {
		return DefaultActionTimeout * time.Second
	}
	return time.Duration(a.Timeout) * time.Second
}
