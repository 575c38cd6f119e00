package github

import (
	"context"
	"fmt"
	"sync"

	gogithub "github.com/google/go-github/v69/github"
	"golang.org/x/sync/errgroup"
)

// Team is a team's access to one repository.
type Team struct {
	Slug        string          `json:"slug"`
	Permission  string          `json:"permission"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// RepoTeams lists the teams with access to org/repo.
func (c *Client) RepoTeams(ctx context.Context, org, repo string) ([]Team, error) {
	teams, err := collect(ctx, c.perPage, func(ctx context.Context, page gogithub.ListOptions) ([]*gogithub.Team, *gogithub.Response, error) {
		return c.gh.Repositories.ListTeams(ctx, org, repo, &page)
	})
	if err != nil {
		return nil, fmt.Errorf("list teams for %s/%s: %w", org, repo, err)
	}

	out := make([]Team, 0, len(teams))
	for _, t := range teams {
		out = append(out, Team{
			Slug:        t.GetSlug(),
			Permission:  t.GetPermission(),
			Permissions: t.Permissions,
		})
	}
	return out, nil
}

// TeamsForOrgRepositories maps every repository of org to its teams. The
// per-repository lookups run concurrently and the first failure cancels
// the rest.
func (c *Client) TeamsForOrgRepositories(ctx context.Context, org string) (map[string][]Team, error) {
	names, err := c.RepositoryNames(ctx, org)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	result := make(map[string][]Team, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			teams, err := c.RepoTeams(gctx, org, name)
			if err != nil {
				return err
			}
			mu.Lock()
			result[name] = teams
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
