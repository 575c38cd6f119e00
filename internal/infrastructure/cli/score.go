package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a single metric without contacting any API",
}

var (
	bpPullRequest bool
	bpApprovals   bool
	bpSignatures  bool
)

var scoreBranchProtectionCmd = &cobra.Command{
	Use:   "branch-protection",
	Short: "Score branch protection compliance",
	Long: `Score branch protection compliance from the three tracked rules.

  all three required    Green
  two required          Amber
  one or none           Red`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status := health.BranchProtectionCompliance(bpPullRequest, bpApprovals, bpSignatures)
		fmt.Fprintf(cmd.OutOrStdout(), "Branch protection: %s\n", statusText(cmd.OutOrStdout(), status))
		return nil
	},
}

var (
	depDisabled bool
	depCritical int
	depHigh     int
	depMedium   int
	depLow      int
)

var scoreDependabotCmd = &cobra.Command{
	Use:   "dependabot",
	Short: "Score open Dependabot alerts",
	Long: `Score open Dependabot alerts by weighted severity.

Critical alerts weigh 100, high 10, medium 5 and low 1. A total of 10 or
less is Green, under 100 is Amber and 100 or more is Red. Repositories
without Dependabot are Grey.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for name, v := range map[string]int{"critical": depCritical, "high": depHigh, "medium": depMedium, "low": depLow} {
			if v < 0 {
				return fmt.Errorf("--%s cannot be negative", name)
			}
		}
		status := health.DependabotScore(!depDisabled, depCritical, depHigh, depMedium, depLow)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Dependabot: %s\n", statusText(out, status))
		if !depDisabled {
			fmt.Fprintf(out, "Points: %d\n", health.DependabotPoints(depCritical, depHigh, depMedium, depLow))
		}
		return nil
	},
}

var covDisabled bool

var scoreCoverageCmd = &cobra.Command{
	Use:   "coverage [percent]",
	Short: "Score code coverage",
	Long: `Score code coverage. 80% or more is Green, 50% or more is Amber and
anything lower is Red. Omit the percentage, or pass --disabled, for Grey.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var coverage *float64
		if len(args) == 1 {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid coverage %q: %w", args[0], err)
			}
			if v < 0 || v > 100 {
				return fmt.Errorf("coverage must be between 0 and 100, got %v", v)
			}
			coverage = &v
		}
		status := health.CodeCoverageScore(!covDisabled, coverage)
		fmt.Fprintf(cmd.OutOrStdout(), "Code coverage: %s\n", statusText(cmd.OutOrStdout(), status))
		return nil
	},
}

func init() {
	scoreBranchProtectionCmd.Flags().BoolVar(&bpPullRequest, "pull-request", false, "pull requests are required before merging")
	scoreBranchProtectionCmd.Flags().BoolVar(&bpApprovals, "approvals", false, "approving reviews are required")
	scoreBranchProtectionCmd.Flags().BoolVar(&bpSignatures, "signatures", false, "signed commits are required")

	scoreDependabotCmd.Flags().BoolVar(&depDisabled, "disabled", false, "Dependabot is not enabled")
	scoreDependabotCmd.Flags().IntVar(&depCritical, "critical", 0, "open critical alerts")
	scoreDependabotCmd.Flags().IntVar(&depHigh, "high", 0, "open high alerts")
	scoreDependabotCmd.Flags().IntVar(&depMedium, "medium", 0, "open medium alerts")
	scoreDependabotCmd.Flags().IntVar(&depLow, "low", 0, "open low alerts")

	scoreCoverageCmd.Flags().BoolVar(&covDisabled, "disabled", false, "SonarCloud is not enabled")

	scoreCmd.AddCommand(scoreBranchProtectionCmd, scoreDependabotCmd, scoreCoverageCmd)
	RootCmd.AddCommand(scoreCmd)
}
