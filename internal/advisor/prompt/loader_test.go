package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsIncludesAllCategories(t *testing.T) {
	prompts, err := LoadDefaults()
	require.NoError(t, err)
	require.Len(t, prompts, 3)

	reg, err := NewRegistry(prompts)
	require.NoError(t, err)
	require.Equal(t, []string{"domain", "generic", "portfolio"}, reg.Slugs())

	for _, slug := range []string{"generic", "portfolio", "domain"} {
		p, err := reg.Get(slug)
		require.NoError(t, err)
		require.NotEmpty(t, p.Config.SystemTemplate)
		require.NotEmpty(t, p.Config.UserTemplate)
	}
}

func TestLoadParsesFrontmatterAndBody(t *testing.T) {
	data := []byte(`---
slug: custom
system_template: You are a test advisor.
input:
  required_variables:
    - UserInput
---
Query: {{.UserInput}}
`)
	p, err := Load("custom.md", data)
	require.NoError(t, err)
	require.Equal(t, "custom", p.Config.Slug)
	require.Equal(t, "You are a test advisor.", p.Config.SystemTemplate)
	require.Contains(t, p.Config.UserTemplate, "{{.UserInput}}")
}

func TestLoadRejectsMissingSlug(t *testing.T) {
	_, err := Load("bad.md", []byte("---\nname: no slug\n---\nbody {{.UserInput}}"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing slug")
}

func TestLoadRejectsUnreferencedRequiredVariable(t *testing.T) {
	data := []byte(`---
slug: bad
input:
  required_variables:
    - PortfolioDetails
---
Query only: {{.UserInput}}
`)
	_, err := Load("bad.md", data)
	require.Error(t, err)
	require.Contains(t, err.Error(), "PortfolioDetails")
}

func TestRenderSubstitutesVariables(t *testing.T) {
	reg, err := DefaultRegistry("")
	require.NoError(t, err)

	p, err := reg.Get("portfolio")
	require.NoError(t, err)

	system, user, err := p.Render(Variables{
		Context:          "markets are calm",
		UserInput:        "rebalance?",
		PortfolioDetails: "60/40 stocks/bonds",
	})
	require.NoError(t, err)
	require.Contains(t, system, "portfolio analysis expert")
	require.Contains(t, user, "60/40 stocks/bonds")
	require.Contains(t, user, "markets are calm")
	require.Contains(t, user, "rebalance?")
}

func TestDefaultRegistryOverrideDir(t *testing.T) {
	dir := t.TempDir()
	override := `---
slug: generic
system_template: Overridden system prompt.
---
Q: {{.UserInput}}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generic.md"), []byte(override), 0o644))

	reg, err := DefaultRegistry(dir)
	require.NoError(t, err)

	p, err := reg.Get("generic")
	require.NoError(t, err)
	require.Equal(t, "Overridden system prompt.", p.Config.SystemTemplate)

	// Non-overridden slugs are still served from the embedded set.
	_, err = reg.Get("domain")
	require.NoError(t, err)
}
