package config

import "fmt"

// Registry holds the configured repositories. It is built once at startup and
// only read afterwards.
type Registry struct {
	repos  []*Repo
	bySlug map[string]*Repo
}

// NewRegistry creates a new repository registry, preserving configuration order
func NewRegistry(repos []*Repo) *Registry {
	bySlug := make(map[string]*Repo, len(repos))
	for _, repo := range repos {
		bySlug[repo.Slug()] = repo
	}
	return &Registry{
		repos:  repos,
		bySlug: bySlug,
	}
}

// Get retrieves a repository by its "owner/name" slug
func (r *Registry) Get(slug string) (*Repo, error) {
	repo, exists := r.bySlug[slug]
	if !exists {
		return nil, fmt.Errorf("repo '%s' not found", slug)
	}
	return repo, nil
}

// All returns the repositories in configuration order
func (r *Registry) All() []*Repo {
	return r.repos
}

// List returns all repository slugs
func (r *Registry) List() []string {
	slugs := make([]string, 0, len(r.repos))
	for _, repo := range r.repos {
		slugs = append(slugs, repo.Slug())
	}
	return slugs
}

// Count returns the number of repositories
func (r *Registry) Count() int {
	return len(r.repos)
}
