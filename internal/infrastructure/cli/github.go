package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
	"github.com/felixgeelhaar/eemetrics/pkg/github"
)

var githubOrg string

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Query GitHub organisation and repository data",
}

// withGitHub loads config and builds a client for commands in this group.
func withGitHub(cmd *cobra.Command) (*github.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	org, err := orgOrDefault(githubOrg, cfg.GitHub.Org)
	if err != nil {
		return nil, "", err
	}
	client, err := newGitHubClient(cmd.Context(), cfg)
	if err != nil {
		return nil, "", err
	}
	return client, org, nil
}

var githubReposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List repositories in the organisation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, org, err := withGitHub(cmd)
		if err != nil {
			return err
		}
		repos, err := client.Repositories(cmd.Context(), org)
		if err != nil {
			return err
		}

		rows := make([]table.Row, 0, len(repos))
		for _, r := range repos {
			doc := github.ToRepo(r)
			rows = append(rows, table.Row{doc.Name, doc.Visibility, doc.Language, fmt.Sprintf("%d", doc.Size), boolStr(doc.Archived)})
		}
		printTable(cmd.OutOrStdout(), fmt.Sprintf("Repositories in %s (%d)", org, len(rows)), []table.Column{
			{Title: "Name", Width: 40},
			{Title: "Visibility", Width: 10},
			{Title: "Language", Width: 14},
			{Title: "Size", Width: 8},
			{Title: "Archived", Width: 8},
		}, rows)
		return nil
	},
}

var teamsAll bool

var githubTeamsCmd = &cobra.Command{
	Use:   "teams [repo]",
	Short: "List teams with access to a repository, or to every repository with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !teamsAll && len(args) == 0 {
			return fmt.Errorf("pass a repository name or --all")
		}
		client, org, err := withGitHub(cmd)
		if err != nil {
			return err
		}

		byRepo := map[string][]github.Team{}
		if teamsAll {
			byRepo, err = client.TeamsForOrgRepositories(cmd.Context(), org)
		} else {
			byRepo[args[0]], err = client.RepoTeams(cmd.Context(), org, args[0])
		}
		if err != nil {
			return err
		}

		names := make([]string, 0, len(byRepo))
		for name := range byRepo {
			names = append(names, name)
		}
		sort.Strings(names)

		var rows []table.Row
		for _, name := range names {
			for _, t := range byRepo[name] {
				rows = append(rows, table.Row{name, t.Slug, t.Permission})
			}
		}
		printTable(cmd.OutOrStdout(), "", []table.Column{
			{Title: "Repository", Width: 40},
			{Title: "Team", Width: 30},
			{Title: "Permission", Width: 10},
		}, rows)
		return nil
	},
}

var contributorsSince time.Duration

var githubContributorsCmd = &cobra.Command{
	Use:   "contributors <repo>",
	Short: "List unique contributors to a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, org, err := withGitHub(cmd)
		if err != nil {
			return err
		}

		var logins []string
		if contributorsSince > 0 {
			logins, err = client.ContributorsSince(cmd.Context(), org, args[0], time.Now().Add(-contributorsSince))
		} else {
			logins, err = client.Contributors(cmd.Context(), org, args[0])
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d unique contributors\n", len(logins))
		for _, login := range logins {
			fmt.Fprintf(out, "  %s\n", login)
		}
		return nil
	},
}

var protectionBranch string

var githubProtectionCmd = &cobra.Command{
	Use:   "protection <repo>",
	Short: "Show and score branch protection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, org, err := withGitHub(cmd)
		if err != nil {
			return err
		}
		branch := protectionBranch
		if branch == "" {
			r, err := client.Repository(cmd.Context(), org, args[0])
			if err != nil {
				return err
			}
			branch = r.GetDefaultBranch()
		}
		rules, err := client.BranchProtection(cmd.Context(), org, args[0], branch)
		if err != nil {
			return err
		}
		printRules(cmd, branch, rules.Scored())
		return nil
	},
}

func printRules(cmd *cobra.Command, branch string, rules metrics.BranchProtectionRules) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Branch: %s\n", branch)
	fmt.Fprintf(out, "  Pull request required:        %s\n", boolStr(rules.PullRequestRequired))
	fmt.Fprintf(out, "  Approvals required:           %s\n", boolStr(rules.ApprovalsRequired))
	fmt.Fprintf(out, "  Signatures required:          %s\n", boolStr(rules.SignaturesRequired))
	fmt.Fprintf(out, "  Stale approvals dismissed:    %s\n", boolStr(rules.StalePullRequestApprovalsDismissed))
	fmt.Fprintf(out, "  Conversation resolution:      %s\n", boolStr(rules.ConversationResolutionRequired))
	fmt.Fprintf(out, "Compliance: %s\n", statusText(out, rules.Compliance))
}

var githubDependabotCmd = &cobra.Command{
	Use:   "dependabot <repo>",
	Short: "Count and score open Dependabot alerts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, org, err := withGitHub(cmd)
		if err != nil {
			return err
		}
		findings, err := client.DependabotAlertCounts(cmd.Context(), org, args[0])
		if err != nil {
			return err
		}
		findings = findings.Scored()

		out := cmd.OutOrStdout()
		if !findings.Enabled {
			fmt.Fprintln(out, "Dependabot alerts are not enabled.")
		} else {
			fmt.Fprintf(out, "Critical: %d  High: %d  Medium: %d  Low: %d  (points %d)\n",
				findings.Critical, findings.High, findings.Medium, findings.Low, findings.Points())
		}
		fmt.Fprintf(out, "Dependabot: %s\n", statusText(out, findings.Score))
		return nil
	},
}

func init() {
	githubCmd.PersistentFlags().StringVar(&githubOrg, "org", "", "GitHub organisation (default github.org from config)")
	githubTeamsCmd.Flags().BoolVar(&teamsAll, "all", false, "list teams for every repository in the organisation")
	githubContributorsCmd.Flags().DurationVar(&contributorsSince, "since", 0, "only count commit authors within this window, e.g. 720h")
	githubProtectionCmd.Flags().StringVar(&protectionBranch, "branch", "", "branch to inspect (default the repository's default branch)")

	githubCmd.AddCommand(githubReposCmd, githubTeamsCmd, githubContributorsCmd, githubProtectionCmd, githubDependabotCmd)
	RootCmd.AddCommand(githubCmd)
}
