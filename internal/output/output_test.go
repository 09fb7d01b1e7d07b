package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/stocks"
)

func sampleSeries() *stocks.Series {
	return &stocks.Series{
		Symbol:        "IBM",
		LastRefreshed: "2024-03-15",
		TimeZone:      "US/Eastern",
		Bars: []stocks.Bar{
			{Date: "2024-03-15", Open: 191.25, High: 193.4, Low: 190.1, Close: 192.8, Volume: 4100200},
			{Date: "2024-03-14", Open: 189.9, High: 191.6, Low: 189.2, Close: 191.1, Volume: 3800500},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{
		"":           FormatTable,
		"table":      FormatTable,
		"JSON":       FormatJSON,
		" markdown ": FormatMarkdown,
	} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseFormat("yaml")
	require.Error(t, err)
}

func TestFormatSeriesTable(t *testing.T) {
	rendered, err := FormatSeries(FormatTable, sampleSeries())
	require.NoError(t, err)
	require.Contains(t, rendered, "IBM daily")
	require.Contains(t, rendered, "2024-03-15")
	require.Contains(t, rendered, "192.80")
	// go-pretty renders footers upper-cased.
	require.Contains(t, rendered, "LATEST")
}

func TestFormatSeriesJSON(t *testing.T) {
	rendered, err := FormatSeries(FormatJSON, sampleSeries())
	require.NoError(t, err)

	var decoded stocks.Series
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "IBM", decoded.Symbol)
	require.Len(t, decoded.Bars, 2)
}

func TestFormatSeriesMarkdown(t *testing.T) {
	rendered, err := FormatSeries(FormatMarkdown, sampleSeries())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(rendered, "## IBM daily"))
	require.Contains(t, rendered, "| 2024-03-14 | 189.90 |")
}

func TestFormatSeriesNil(t *testing.T) {
	rendered, err := FormatSeries(FormatTable, nil)
	require.NoError(t, err)
	require.Empty(t, rendered)
}

func TestFormatAdvice(t *testing.T) {
	advice := Advice{Category: "generic", Query: "Should I diversify?", Response: "Spread risk across assets."}

	plain, err := FormatAdvice(FormatTable, advice)
	require.NoError(t, err)
	require.Equal(t, advice.Response, plain)

	md, err := FormatAdvice(FormatMarkdown, advice)
	require.NoError(t, err)
	require.Contains(t, md, "## generic advice")
	require.Contains(t, md, "**Query**: Should I diversify?")

	encoded, err := FormatAdvice(FormatJSON, advice)
	require.NoError(t, err)
	var decoded Advice
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	require.Equal(t, advice, decoded)
}
