package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds a loaded prompt set keyed by slug.
type Registry struct {
	bySlug map[string]*Prompt
}

// NewRegistry builds a registry, rejecting empty or duplicate slugs.
func NewRegistry(prompts []*Prompt) (*Registry, error) {
	bySlug := make(map[string]*Prompt, len(prompts))
	for _, p := range prompts {
		if p == nil {
			continue
		}
		slug := strings.TrimSpace(p.Config.Slug)
		if slug == "" {
			return nil, fmt.Errorf("prompt missing slug")
		}
		if _, ok := bySlug[slug]; ok {
			return nil, fmt.Errorf("duplicate prompt slug: %s", slug)
		}
		bySlug[slug] = p
	}
	return &Registry{bySlug: bySlug}, nil
}

// Get returns the prompt for the slug.
func (r *Registry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("prompt slug is required")
	}
	p, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("prompt %q not found", slug)
	}
	return p, nil
}

// Slugs returns the registered slugs in sorted order.
func (r *Registry) Slugs() []string {
	if r == nil {
		return nil
	}
	slugs := make([]string, 0, len(r.bySlug))
	for slug := range r.bySlug {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
