// Package output renders CLI results in table, JSON, or markdown form.
package output

import (
	"fmt"
	"strings"

	"github.com/finsight/finsight/internal/stocks"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown):
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// FormatSeries renders a daily stock series in the requested format.
func FormatSeries(format Format, series *stocks.Series) (string, error) {
	if series == nil {
		return "", nil
	}
	switch format {
	case FormatJSON:
		return seriesJSON(series)
	case FormatMarkdown:
		return seriesMarkdown(series), nil
	default:
		return seriesTable(series), nil
	}
}

// Advice is one rendered advice exchange for CLI output.
type Advice struct {
	Category string `json:"category"`
	Query    string `json:"query"`
	Response string `json:"response"`
}

// FormatAdvice renders an advice exchange in the requested format. The table
// format prints the raw response; advice text is prose, not tabular.
func FormatAdvice(format Format, advice Advice) (string, error) {
	switch format {
	case FormatJSON:
		return adviceJSON(advice)
	case FormatMarkdown:
		return adviceMarkdown(advice), nil
	default:
		return advice.Response, nil
	}
}
