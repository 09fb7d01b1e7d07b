package output

import (
	"fmt"
	"strings"

	"github.com/finsight/finsight/internal/stocks"
)

func seriesMarkdown(series *stocks.Series) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s daily\n\n", series.Symbol))
	sb.WriteString(fmt.Sprintf("Last refreshed: %s (%s)\n\n", series.LastRefreshed, series.TimeZone))
	sb.WriteString("| Date | Open | High | Low | Close | Volume |\n")
	sb.WriteString("|------|------|------|-----|-------|--------|\n")

	bars := series.Bars
	if len(bars) > maxTableBars {
		bars = bars[:maxTableBars]
	}
	for _, bar := range bars {
		sb.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %.2f | %d |\n",
			bar.Date, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume))
	}

	return sb.String()
}

func adviceMarkdown(advice Advice) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s advice\n\n", advice.Category))
	if advice.Query != "" {
		sb.WriteString(fmt.Sprintf("**Query**: %s\n\n", escapeMarkdownCell(advice.Query)))
	}
	sb.WriteString(advice.Response)
	sb.WriteString("\n")
	return sb.String()
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
