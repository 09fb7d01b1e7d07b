package output

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/finsight/finsight/internal/stocks"
)

// maxTableBars caps the table output; full history stays available via JSON.
const maxTableBars = 30

func seriesTable(series *stocks.Series) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s daily (as of %s)", series.Symbol, series.LastRefreshed))
	t.AppendHeader(table.Row{"Date", "Open", "High", "Low", "Close", "Volume"})

	bars := series.Bars
	if len(bars) > maxTableBars {
		bars = bars[:maxTableBars]
	}
	for _, bar := range bars {
		t.AppendRow(table.Row{
			bar.Date,
			formatPrice(bar.Open),
			formatPrice(bar.High),
			formatPrice(bar.Low),
			formatPrice(bar.Close),
			bar.Volume,
		})
	}

	if latest, ok := series.Latest(); ok {
		t.AppendFooter(table.Row{"Latest", "", "", "", formatPrice(latest.Close), latest.Volume})
	}

	return t.Render()
}

func formatPrice(value float64) string {
	return fmt.Sprintf("%.2f", value)
}
