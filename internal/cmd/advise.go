package cmd

import (
	"fmt"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/finsight/finsight/internal/advisor"
	"github.com/finsight/finsight/internal/ailink"
	"github.com/finsight/finsight/internal/news"
	"github.com/finsight/finsight/internal/observability"
	"github.com/finsight/finsight/internal/output"
	"github.com/finsight/finsight/internal/vector"
)

var (
	adviseCategory      string
	advisePortfolio     string
	adviseDomainDetails string
	adviseContext       string
	adviseFormat        string
)

var adviseCmd = &cobra.Command{
	Use:   "advise <question...>",
	Short: "Generate investment advice from the command line",
	Long: `Generate investment advice without running the HTTP server.

The question is enriched with recent financial news and, when the vector
store is enabled, related finance-literature passages before being sent
to the LLM. Portfolio and domain categories require their detail flags.`,
	Example: `  finsight advise "Should I rebalance into bonds this quarter?"
  finsight advise --category portfolio --portfolio "60% VTI, 40% BND" "Is my allocation too conservative?"
  finsight advise --category domain --domain-details "semiconductor sector" "What are the current risks?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(adviseFormat)
		if err != nil {
			return err
		}

		category, err := advisor.ParseCategory(adviseCategory)
		if err != nil {
			return err
		}

		cfg := loadConfig()

		newsClient, err := news.New(cfg.News)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "News client configuration invalid", err)
		}
		llmClient, err := ailink.New(cfg.LLM)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "LLM client configuration invalid", err)
		}
		vectorClient := vector.New(cfg.Vector)

		// No history recorder: CLI invocations are not persisted.
		engine, err := advisor.NewEngine(cfg.Advisor, newsClient, vectorClient, llmClient, nil)
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Advisor initialization failed", err)
		}

		question := strings.Join(args, " ")
		response, err := engine.Advise(cmd.Context(), advisor.Request{
			Category:         category,
			UserInput:        question,
			Context:          adviseContext,
			PortfolioDetails: advisePortfolio,
			DomainDetails:    adviseDomainDetails,
		})
		if err != nil {
			return err
		}

		rendered, err := output.FormatAdvice(format, output.Advice{
			Category: string(category),
			Query:    question,
			Response: response,
		})
		if err != nil {
			return err
		}

		fmt.Println(rendered)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adviseCmd)

	adviseCmd.Flags().StringVarP(&adviseCategory, "category", "c", "generic", "advice category (generic, portfolio, domain)")
	adviseCmd.Flags().StringVar(&advisePortfolio, "portfolio", "", "portfolio details (required for the portfolio category)")
	adviseCmd.Flags().StringVar(&adviseDomainDetails, "domain-details", "", "domain details (required for the domain category)")
	adviseCmd.Flags().StringVar(&adviseContext, "context", "", "extra context prepended to the prompt")
	adviseCmd.Flags().StringVarP(&adviseFormat, "format", "f", "table", "output format (table, json, markdown)")
}
