package github

import (
	"context"
	"fmt"
	"time"

	gogithub "github.com/google/go-github/v69/github"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
)

// UnknownLanguage is recorded for repositories GitHub reports no language for.
const UnknownLanguage = "None"

// Repositories lists every repository of org.
func (c *Client) Repositories(ctx context.Context, org string) ([]*gogithub.Repository, error) {
	repos, err := collect(ctx, c.perPage, func(ctx context.Context, page gogithub.ListOptions) ([]*gogithub.Repository, *gogithub.Response, error) {
		return c.gh.Repositories.ListByOrg(ctx, org, &gogithub.RepositoryListByOrgOptions{ListOptions: page})
	})
	if err != nil {
		return nil, fmt.Errorf("list repositories for %s: %w", org, err)
	}
	return repos, nil
}

// RepositoryNames lists the short names of every repository of org.
func (c *Client) RepositoryNames(ctx context.Context, org string) ([]string, error) {
	repos, err := c.Repositories(ctx, org)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.GetName())
	}
	return names, nil
}

// Repository fetches a single repository.
func (c *Client) Repository(ctx context.Context, org, repo string) (*gogithub.Repository, error) {
	r, _, err := c.gh.Repositories.Get(ctx, org, repo)
	if err != nil {
		return nil, fmt.Errorf("get repository %s/%s: %w", org, repo, err)
	}
	return r, nil
}

// ToRepo converts a GitHub repository to the repos document.
func ToRepo(r *gogithub.Repository) metrics.Repo {
	language := r.GetLanguage()
	if language == "" {
		language = UnknownLanguage
	}
	return metrics.Repo{
		GithubID:      r.GetID(),
		NodeID:        r.GetNodeID(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		Owner:         r.GetOwner().GetLogin(),
		Visibility:    r.GetVisibility(),
		Language:      language,
		Size:          r.GetSize(),
		PushedAt:      formatTimestamp(r.PushedAt),
		RepoCreatedAt: formatTimestamp(r.CreatedAt),
		RepoUpdatedAt: formatTimestamp(r.UpdatedAt),
		Archived:      r.GetArchived(),
		URL:           r.GetHTMLURL(),
	}
}

func formatTimestamp(ts *gogithub.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
