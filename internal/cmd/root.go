package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "Financial advisory service",
	Long: `FinSight combines market news, stock data, and curated finance
literature into LLM-generated investment advice.

Use the subcommands to run the HTTP server or query the outbound
providers directly.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initRuntime)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., $HOME/.config/finsight, /etc/finsight)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

// initRuntime loads .env values and prepares the CLI logger before any
// command body runs. Config itself is loaded per command via loadConfig so
// commands that never touch config (version) skip validation.
func initRuntime() {
	// Provider API keys commonly live in a .env file during development.
	// A missing file is not an error; the environment still applies.
	_ = godotenv.Load()

	observability.InitCLILogger("finsight", verbose)
}

// loadConfig resolves configuration for commands that need it, exiting with
// a semantic code when the config is unusable.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to load configuration", err)
	}
	return cfg
}
