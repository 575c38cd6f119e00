package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
)

// newDocument returns an empty document for a collection.
func newDocument(collection string) (metrics.Document, error) {
	switch collection {
	case metrics.CollectionRepos:
		return &metrics.Repo{}, nil
	case metrics.CollectionBranchProtection:
		return &metrics.BranchProtection{}, nil
	case metrics.CollectionDependabot:
		return &metrics.Dependabot{}, nil
	case metrics.CollectionGithubActionMinutes:
		return &metrics.GithubActionMinutes{}, nil
	case metrics.CollectionSonarcloud:
		return &metrics.Sonarcloud{}, nil
	case metrics.CollectionUniqueContributors:
		return &metrics.UniqueContributors{}, nil
	case metrics.CollectionHierarchy:
		return &metrics.Hierarchy{}, nil
	case metrics.CollectionRepoMetrics:
		return &metrics.RepoMetrics{}, nil
	case metrics.CollectionAggregatedRepos:
		return &metrics.AggregatedRepo{}, nil
	}
	return nil, fmt.Errorf("unknown collection %q (one of %s)", collection, strings.Join(metrics.Collections(), ", "))
}

var showCmd = &cobra.Command{
	Use:   "show <collection> <key>",
	Short: "Print the latest stored document for a key",
	Long: `Print the newest stored document whose key field equals key.

Repository families are keyed by repository name, repos and repo_metrics
by full name, and aggregated_repos by hierarchy item.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := newDocument(args[0])
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close(ctx) }()

		if err := store.Latest(ctx, args[0], args[1], doc); err != nil {
			return err
		}
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(showCmd)
}
