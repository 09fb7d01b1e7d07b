package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/finsight/finsight/internal/observability"
	"github.com/finsight/finsight/internal/output"
	"github.com/finsight/finsight/internal/stocks"
)

var stockFormat string

var stockCmd = &cobra.Command{
	Use:   "stock <symbol>",
	Short: "Fetch daily stock data",
	Long:  "Fetch the daily OHLCV series for a symbol from the configured quote provider.",
	Example: `  finsight stock IBM
  finsight stock --format json AAPL
  finsight stock --format markdown BRK.B`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(stockFormat)
		if err != nil {
			return err
		}

		cfg := loadConfig()

		client, err := stocks.New(cfg.Stocks)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Stocks client configuration invalid", err)
		}

		series, err := client.Daily(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		rendered, err := output.FormatSeries(format, series)
		if err != nil {
			return err
		}

		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stockCmd)

	stockCmd.Flags().StringVarP(&stockFormat, "format", "f", "table", "output format (table, json, markdown)")
}
