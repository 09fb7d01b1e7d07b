package prompt

import (
	"embed"
	"fmt"
)

//go:embed prompts/*.md
var defaultPromptsFS embed.FS

// LoadDefaults loads the embedded prompt set.
func LoadDefaults() ([]*Prompt, error) {
	entries, err := defaultPromptsFS.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	results := make([]*Prompt, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		data, err := defaultPromptsFS.ReadFile("prompts/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", entry.Name(), err)
		}
		prompt, err := Load(entry.Name(), data)
		if err != nil {
			return nil, err
		}
		results = append(results, prompt)
	}
	return results, nil
}

// DefaultRegistry builds a registry from embedded prompts. When overrideDir
// is non-empty, prompts loaded from it replace embedded ones slug by slug.
func DefaultRegistry(overrideDir string) (*Registry, error) {
	prompts, err := LoadDefaults()
	if err != nil {
		return nil, err
	}

	if overrideDir != "" {
		overrides, err := LoadFromDir(overrideDir)
		if err != nil {
			return nil, err
		}
		bySlug := make(map[string]*Prompt, len(prompts))
		for _, p := range prompts {
			bySlug[p.Config.Slug] = p
		}
		for _, p := range overrides {
			bySlug[p.Config.Slug] = p
		}
		merged := make([]*Prompt, 0, len(bySlug))
		for _, p := range bySlug {
			merged = append(merged, p)
		}
		prompts = merged
	}

	return NewRegistry(prompts)
}
