package cli

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Global flags.
var (
	configPath string
	logLevel   string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "eemetrics",
	Version: Version,
	Short:   "Engineering metrics for GitHub and SonarCloud repositories",
	Long: `eemetrics collects repository health metrics from GitHub and SonarCloud.
It scores branch protection, Dependabot alerts and code coverage as
Green, Amber, Red or Grey, and rolls repositories up the organisation
hierarchy.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and maps known errors to CLIErrors.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	return MapError(RootCmd.Execute())
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default ./eemetrics.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}
