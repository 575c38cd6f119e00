package github

import (
	"context"
	"fmt"
	"time"

	gogithub "github.com/google/go-github/v69/github"
)

// Contributors returns the logins of everyone who has committed to
// org/repo, in the order GitHub lists them.
func (c *Client) Contributors(ctx context.Context, org, repo string) ([]string, error) {
	contributors, err := collect(ctx, c.perPage, func(ctx context.Context, page gogithub.ListOptions) ([]*gogithub.Contributor, *gogithub.Response, error) {
		return c.gh.Repositories.ListContributors(ctx, org, repo, &gogithub.ListContributorsOptions{ListOptions: page})
	})
	if err != nil {
		return nil, fmt.Errorf("list contributors for %s/%s: %w", org, repo, err)
	}

	logins := make([]string, 0, len(contributors))
	for _, contributor := range contributors {
		logins = append(logins, contributor.GetLogin())
	}
	return unique(logins), nil
}

// ContributorsSince returns the logins of commit authors on the default
// branch since the given time. Commits without a linked GitHub account
// are skipped.
func (c *Client) ContributorsSince(ctx context.Context, org, repo string, since time.Time) ([]string, error) {
	commits, err := collect(ctx, c.perPage, func(ctx context.Context, page gogithub.ListOptions) ([]*gogithub.RepositoryCommit, *gogithub.Response, error) {
		return c.gh.Repositories.ListCommits(ctx, org, repo, &gogithub.CommitsListOptions{Since: since, ListOptions: page})
	})
	if err != nil {
		return nil, fmt.Errorf("list commits for %s/%s: %w", org, repo, err)
	}

	logins := make([]string, 0, len(commits))
	for _, commit := range commits {
		logins = append(logins, commit.GetAuthor().GetLogin())
	}
	return unique(logins), nil
}

func unique(logins []string) []string {
	seen := make(map[string]struct{}, len(logins))
	out := make([]string, 0, len(logins))
	for _, login := range logins {
		if login == "" {
			continue
		}
		if _, ok := seen[login]; ok {
			continue
		}
		seen[login] = struct{}{}
		out = append(out, login)
	}
	return out
}
