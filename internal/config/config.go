package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ahagon/internal/events"
	"ahagon/pkg/cmdutil"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = "8080"
	DefaultAssets         = "html"
	DefaultMaxBodyBytes   = 10 * 1024 * 1024
	DefaultRequestTimeout = 30
	DefaultActionTimeout  = 300
)

// LoadConfig loads and validates the configuration from a TOML or YAML file.
// The format is chosen by extension; anything other than .yaml/.yml is TOML.
func LoadConfig(configPath string) (*Config, *Registry, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		if err := decodeYAML(data, &config); err != nil {
			return nil, nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		if err := decodeTOML(data, &config); err != nil {
			return nil, nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	registry, err := config.resolve()
	if err != nil {
		return nil, nil, err
	}
	return &config, registry, nil
}

func decodeTOML(data []byte, config *Config) error {
	md, err := toml.Decode(string(data), config)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(data []byte, config *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// resolve applies defaults, validates every section and builds the repository registry.
func (c *Config) resolve() (*Registry, error) {
	if c.Web.Host == "" {
		c.Web.Host = DefaultHost
	}
	if c.Web.Port == "" {
		c.Web.Port = DefaultPort
	}
	if c.Web.Assets == "" {
		c.Web.Assets = DefaultAssets
	}

	var errs []string
	errs = append(errs, ValidateWebConfig(&c.Web)...)

	seen := make(map[string]bool)
	repos := make([]*Repo, 0, len(c.Repos))
	for i, rc := range c.Repos {
		if rc.CIToken == "" {
			rc.CIToken = rc.TravisToken
		}
		repoErrs := ValidateRepoConfig(i, rc)
		if len(repoErrs) > 0 {
			errs = append(errs, repoErrs...)
			continue
		}

		repo := &Repo{
			Owner:     rc.Owner,
			Name:      rc.Name,
			Reviewers: toSet(rc.Reviewers),
			TryUsers:  toSet(rc.TryUsers),
			Secret:    rc.Secret,
			CIToken:   rc.CIToken,
		}
		if seen[repo.Slug()] {
			errs = append(errs, fmt.Sprintf("  - Repo '%s': configured more than once", repo.Slug()))
			continue
		}
		seen[repo.Slug()] = true
		repos = append(repos, repo)
	}

	for i, ac := range c.Actions {
		errs = append(errs, ValidateActionConfig(i, ac)...)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n%s", strings.Join(errs, "\n"))
	}

	return NewRegistry(repos), nil
}

// ValidateWebConfig validates the listener section and resolves the body cap
func ValidateWebConfig(w *WebConfig) []string {
	var errors []string

	if port, err := strconv.Atoi(w.Port); err != nil || port < 0 || port > 65535 {
		errors = append(errors, fmt.Sprintf("  - Web: port must be a number between 0 and 65535, got '%s'", w.Port))
	}

	if w.RequestTimeout < 0 {
		errors = append(errors, fmt.Sprintf("  - Web: request_timeout must be a positive integer, got %d", w.RequestTimeout))
	}

	if w.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("  - Web: rate_limit must not be negative, got %d", w.RateLimit))
	}

	size, err := ParseByteSize(w.MaxBodySize)
	if err != nil {
		errors = append(errors, fmt.Sprintf("  - Web: invalid max_body_size '%s': %v", w.MaxBodySize, err))
	} else {
		w.maxBodyBytes = size
	}

	return errors
}

// ValidateRepoConfig validates a single repository configuration
func ValidateRepoConfig(index int, config RepoConfig) []string {
	var errors []string

	label := fmt.Sprintf("repos[%d]", index)
	if config.Owner != "" && config.Name != "" {
		label = config.Owner + "/" + config.Name
	}

	if config.Owner == "" {
		errors = append(errors, fmt.Sprintf("  - Repo '%s': missing required 'owner' field", label))
	}
	if config.Name == "" {
		errors = append(errors, fmt.Sprintf("  - Repo '%s': missing required 'name' field", label))
	}
	if strings.Contains(config.Owner, "/") || strings.Contains(config.Name, "/") {
		errors = append(errors, fmt.Sprintf("  - Repo '%s': owner and name must not contain '/'", label))
	}

	if config.Secret == "" {
		errors = append(errors, fmt.Sprintf("  - Repo '%s': missing required 'secret' field", label))
	} else if IsPlaceholderSecret(config.Secret) {
		errors = append(errors, fmt.Sprintf("  - Repo '%s': secret appears to be a placeholder value, replace with real secret", label))
	}

	if config.CIToken != "" && IsPlaceholderSecret(config.CIToken) {
		errors = append(errors, fmt.Sprintf("  - Repo '%s': ci_token appears to be a placeholder value", label))
	}

	for i, login := range append(append([]string{}, config.Reviewers...), config.TryUsers...) {
		if strings.TrimSpace(login) == "" {
			errors = append(errors, fmt.Sprintf("  - Repo '%s': user entry %d is empty", label, i))
		}
	}

	return errors
}

// ValidateActionConfig validates a single action binding
func ValidateActionConfig(index int, config ActionConfig) []string {
	var errors []string

	if _, err := events.Parse(config.Event); err != nil {
		errors = append(errors, fmt.Sprintf("  - Action %d: %v", index, err))
	}

	if _, err := cmdutil.ParseCommandString(config.Command); err != nil {
		errors = append(errors, fmt.Sprintf("  - Action %d: invalid command: %v", index, err))
	}

	if config.Timeout < 0 {
		errors = append(errors, fmt.Sprintf("  - Action %d: timeout must be a positive integer, got %d", index, config.Timeout))
	}

	return errors
}

// ParseByteSize parses size strings like "10MB", "512KB" or "1048576" to bytes.
// Returns DefaultMaxBodyBytes if empty.
func ParseByteSize(size string) (int64, error) {
	if size == "" {
		return DefaultMaxBodyBytes, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)

	switch {
	case strings.HasSuffix(upper, "KB"):
		multiplier = 1024
		upper = strings.TrimSuffix(upper, "KB")
	case strings.HasSuffix(upper, "MB"):
		multiplier = 1024 * 1024
		upper = strings.TrimSuffix(upper, "MB")
	case strings.HasSuffix(upper, "GB"):
		multiplier = 1024 * 1024 * 1024
		upper = strings.TrimSuffix(upper, "GB")
	}

	value, err := strconv.ParseInt(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value: %w", err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive")
	}

	result := value * multiplier
	if result/multiplier != value {
		return 0, fmt.Errorf("size too large")
	}

	return result, nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
