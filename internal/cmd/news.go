package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/finsight/finsight/internal/news"
	"github.com/finsight/finsight/internal/observability"
)

var (
	newsArticles    int
	newsMaxAgeHours int
)

var newsCmd = &cobra.Command{
	Use:   "news [query...]",
	Short: "Fetch recent financial news",
	Long: `Fetch recent financial news from the configured provider and print
the formatted digest. Without a query the latest market update is fetched.`,
	Example: `  finsight news
  finsight news federal reserve rate decision
  finsight news --articles 3 --max-age-hours 48 tech earnings`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		client, err := news.New(cfg.News)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "News client configuration invalid", err)
		}

		digest, err := client.Fetch(cmd.Context(), strings.Join(args, " "), newsArticles, newsMaxAgeHours)
		if err != nil {
			return err
		}

		fmt.Println(digest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newsCmd)

	newsCmd.Flags().IntVarP(&newsArticles, "articles", "n", 5, "number of articles to fetch (1-10)")
	newsCmd.Flags().IntVar(&newsMaxAgeHours, "max-age-hours", 24, "maximum article age in hours")
}
