package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/eemetrics/internal/infrastructure/config"
	"github.com/felixgeelhaar/eemetrics/pkg/application"
	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
)

var (
	collectOrg          string
	collectSince        time.Duration
	collectProjectKey   string
	collectBranch       string
	collectAll          bool
	collectSkipArchived bool
	collectAggregate    string
)

var collectCmd = &cobra.Command{
	Use:   "collect [repo]",
	Short: "Collect, score and store metrics for a repository or a whole organisation",
	Long: `Collect fetches every metric family for a repository from GitHub and
SonarCloud, scores it and stores one document per family plus the
consolidated repo_metrics document.

With --all every repository in the organisation is collected. With
--aggregate the collected repositories are also rolled up into one
aggregated_repos document for the named hierarchy item.

SonarCloud is skipped, and recorded as disabled, when SONARCLOUD_TOKEN is
not set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if collectAll == (len(args) == 1) {
			return fmt.Errorf("pass exactly one of a repository name or --all")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		org, err := orgOrDefault(collectOrg, cfg.GitHub.Org)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		gh, err := newGitHubClient(ctx, cfg)
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close(ctx) }()

		svc := application.NewCollectorService(gh, sonarSource(cfg), store, newLogger(cfg, "eemetrics/collector"))

		opts := application.CollectOptions{
			ProjectKey: collectProjectKey,
			Branch:     collectBranch,
		}
		if collectSince > 0 {
			opts.Since = time.Now().Add(-collectSince)
		}

		var collected []metrics.RepoMetrics
		if collectAll {
			collected, err = svc.CollectOrg(ctx, org, opts, collectSkipArchived)
		} else {
			var m *metrics.RepoMetrics
			m, err = svc.CollectRepo(ctx, org, args[0], opts)
			if m != nil {
				collected = append(collected, *m)
			}
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printTable(out, fmt.Sprintf("Collected %d repositories", len(collected)), []table.Column{
			{Title: "Repository", Width: 40},
			{Title: "Branch protection", Width: 17},
			{Title: "Dependabot", Width: 10},
			{Title: "Coverage", Width: 8},
			{Title: "Overall", Width: 7},
		}, repoRows(collected))

		if collectAggregate != "" {
			agg, err := svc.AggregateHierarchy(ctx, collectAggregate, collected)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s across %d repositories\n",
				agg.HierarchyItem, statusText(out, agg.OverallServiceHealth), len(collected))
		}
		return nil
	},
}

// sonarSource returns nil, not a typed nil pointer, when SonarCloud is not
// configured so the collector records it as disabled.
func sonarSource(cfg *config.Config) application.SonarSource {
	client, err := newSonarClient(cfg)
	if err != nil {
		return nil
	}
	return client
}

func repoRows(repos []metrics.RepoMetrics) []table.Row {
	rows := make([]table.Row, 0, len(repos))
	for _, m := range repos {
		rows = append(rows, table.Row{
			m.FullName,
			string(m.BranchProtection.Compliance),
			string(m.Dependabot.Score),
			string(m.Sonarcloud.CodeCoverageScore),
			string(m.OverallHealth()),
		})
	}
	return rows
}

func init() {
	collectCmd.Flags().StringVar(&collectOrg, "org", "", "GitHub organisation (default github.org from config)")
	collectCmd.Flags().DurationVar(&collectSince, "since", 0, "window for contributors and action minutes (default 720h)")
	collectCmd.Flags().StringVar(&collectProjectKey, "project-key", "", "SonarCloud project key (default <org>_<repo>)")
	collectCmd.Flags().StringVar(&collectBranch, "branch", "", "branch to check protection on (default the repository's default branch)")
	collectCmd.Flags().BoolVar(&collectAll, "all", false, "collect every repository in the organisation")
	collectCmd.Flags().BoolVar(&collectSkipArchived, "skip-archived", true, "skip archived repositories with --all")
	collectCmd.Flags().StringVar(&collectAggregate, "aggregate", "", "also store an aggregate for this hierarchy item")

	RootCmd.AddCommand(collectCmd)
}
