package github

import (
	"context"
	"fmt"
	"time"

	gogithub "github.com/google/go-github/v69/github"
)

// ActionMinutes sums the billable run time, in minutes, of workflow runs
// created on or after since.
func (c *Client) ActionMinutes(ctx context.Context, org, repo string, since time.Time) (float64, error) {
	runs, err := collect(ctx, c.perPage, func(ctx context.Context, page gogithub.ListOptions) ([]*gogithub.WorkflowRun, *gogithub.Response, error) {
		list, resp, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, org, repo, &gogithub.ListWorkflowRunsOptions{
			Created:     ">=" + since.UTC().Format("2006-01-02"),
			ListOptions: page,
		})
		if err != nil {
			return nil, resp, err
		}
		return list.WorkflowRuns, resp, nil
	})
	if err != nil {
		return 0, fmt.Errorf("list workflow runs for %s/%s: %w", org, repo, err)
	}

	var ms int64
	for _, run := range runs {
		usage, _, err := c.gh.Actions.GetWorkflowRunUsageByID(ctx, org, repo, run.GetID())
		if err != nil {
			return 0, fmt.Errorf("get usage of run %d in %s/%s: %w", run.GetID(), org, repo, err)
		}
		ms += usage.GetRunDurationMS()
	}
	return float64(ms) / float64(time.Minute/time.Millisecond), nil
}
