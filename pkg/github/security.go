package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gogithub "github.com/google/go-github/v69/github"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
	"github.com/felixgeelhaar/eemetrics/pkg/logging"
)

// BranchProtection reads the protection rules of branch. An unprotected
// branch yields all rules false.
func (c *Client) BranchProtection(ctx context.Context, org, repo, branch string) (metrics.BranchProtectionRules, error) {
	p, _, err := c.gh.Repositories.GetBranchProtection(ctx, org, repo, branch)
	if err != nil {
		if errors.Is(err, gogithub.ErrBranchNotProtected) {
			return metrics.BranchProtectionRules{}, nil
		}
		return metrics.BranchProtectionRules{}, fmt.Errorf("get branch protection for %s/%s@%s: %w", org, repo, branch, err)
	}

	var rules metrics.BranchProtectionRules
	if reviews := p.GetRequiredPullRequestReviews(); reviews != nil {
		rules.PullRequestRequired = true
		rules.ApprovalsRequired = reviews.RequiredApprovingReviewCount > 0
		rules.StalePullRequestApprovalsDismissed = reviews.DismissStaleReviews
	}
	rules.SignaturesRequired = p.GetRequiredSignatures().GetEnabled()
	if resolution := p.GetRequiredConversationResolution(); resolution != nil {
		rules.ConversationResolutionRequired = resolution.Enabled
	}
	return rules, nil
}

// DependabotAlertCounts counts open Dependabot alerts by severity. A
// repository where alerts are disabled or not visible to the token
// reports Enabled false.
func (c *Client) DependabotAlertCounts(ctx context.Context, org, repo string) (metrics.DependabotFindings, error) {
	state := "open"
	opts := &gogithub.ListAlertsOptions{State: &state}
	opts.ListCursorOptions.PerPage = c.perPage

	findings := metrics.DependabotFindings{Enabled: true}
	for {
		alerts, resp, err := c.gh.Dependabot.ListRepoAlerts(ctx, org, repo, opts)
		if err != nil {
			if isDisabled(resp) {
				c.logger.Warn("ENGEXPUTILS020", logging.Fields{"repo": org + "/" + repo, "status": resp.StatusCode})
				return metrics.DependabotFindings{}, nil
			}
			return metrics.DependabotFindings{}, fmt.Errorf("list dependabot alerts for %s/%s: %w", org, repo, err)
		}

		for _, alert := range alerts {
			switch strings.ToLower(alert.GetSecurityAdvisory().GetSeverity()) {
			case "critical":
				findings.Critical++
			case "high":
				findings.High++
			case "medium", "moderate":
				findings.Medium++
			case "low":
				findings.Low++
			}
		}

		if resp == nil || resp.After == "" || len(alerts) == 0 {
			return findings, nil
		}
		opts.ListCursorOptions.After = resp.After
	}
}

func isDisabled(resp *gogithub.Response) bool {
	if resp == nil || resp.Response == nil {
		return false
	}
	return resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound
}
