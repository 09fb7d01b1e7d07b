package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// Variables carries the values substituted into prompt templates.
type Variables struct {
	Context          string
	UserInput        string
	PortfolioDetails string
	DomainDetails    string
}

// Render executes the system and user templates against vars and returns the
// resulting prompt pair.
func (p *Prompt) Render(vars Variables) (system, user string, err error) {
	system, err = renderTemplate(p.Config.Slug+"/system", p.Config.SystemTemplate, vars)
	if err != nil {
		return "", "", err
	}
	user, err = renderTemplate(p.Config.Slug+"/user", p.Config.UserTemplate, vars)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func renderTemplate(name, text string, vars Variables) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, vars); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return strings.TrimSpace(out.String()), nil
}
