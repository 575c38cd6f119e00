package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/eemetrics/internal/infrastructure/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the eemetrics.yaml configuration file",
}

var (
	configForce     bool
	configInitOrg   string
	configInitStore string
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultFile
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return NewCLIError(fmt.Sprintf("%s already exists", path), "Pass --force to overwrite it", nil)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}

		cfg := config.Default()
		cfg.GitHub.Org = configInitOrg
		cfg.Sonarcloud.Org = configInitOrg
		if configInitStore != "" {
			cfg.Store.Kind = configInitStore
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "Tokens are read from %s and %s.\n", config.EnvGitHubToken, config.EnvSonarcloudToken)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, string(data))
		fmt.Fprintf(out, "# %s set: %s\n", config.EnvGitHubToken, boolStr(cfg.GitHub.Token != ""))
		fmt.Fprintf(out, "# %s set: %s\n", config.EnvSonarcloudToken, boolStr(cfg.Sonarcloud.Token != ""))
		fmt.Fprintf(out, "# %s set: %s\n", config.EnvMongoURI, boolStr(cfg.Store.URI != ""))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configInitCmd.Flags().StringVar(&configInitOrg, "org", "", "organisation for GitHub and SonarCloud")
	configInitCmd.Flags().StringVar(&configInitStore, "store", "", "store kind: file or mongo")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	RootCmd.AddCommand(configCmd)
}
