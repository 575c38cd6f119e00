package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	gogithub "github.com/google/go-github/v69/github"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
	"github.com/felixgeelhaar/eemetrics/pkg/github"
	"github.com/felixgeelhaar/eemetrics/pkg/logging"
	"github.com/felixgeelhaar/eemetrics/pkg/sonarcloud"
)

// GitHubSource is the subset of the GitHub client used for collection.
type GitHubSource interface {
	Repository(ctx context.Context, org, repo string) (*gogithub.Repository, error)
	Repositories(ctx context.Context, org string) ([]*gogithub.Repository, error)
	BranchProtection(ctx context.Context, org, repo, branch string) (metrics.BranchProtectionRules, error)
	DependabotAlertCounts(ctx context.Context, org, repo string) (metrics.DependabotFindings, error)
	ContributorsSince(ctx context.Context, org, repo string, since time.Time) ([]string, error)
	ActionMinutes(ctx context.Context, org, repo string, since time.Time) (float64, error)
}

// SonarSource reads project measures from SonarCloud.
type SonarSource interface {
	ProjectMeasures(ctx context.Context, projectKey string) (metrics.SonarcloudMeasures, error)
}

// CollectOptions tunes a collection run.
type CollectOptions struct {
	// Since bounds contributor and action-minute lookups. Zero means the
	// last 30 days.
	Since time.Time
	// ProjectKey overrides the SonarCloud key, by default "<org>_<repo>".
	ProjectKey string
	// Branch overrides the repository's default branch.
	Branch string
}

const defaultWindow = 30 * 24 * time.Hour

// CollectorService gathers metrics for repositories, scores them and
// stores the resulting documents.
type CollectorService struct {
	github GitHubSource
	sonar  SonarSource
	store  metrics.Store
	logger *logging.Logger
	now    func() time.Time
}

// NewCollectorService creates a collector. sonar may be nil, in which case
// every repository is recorded with SonarCloud disabled.
func NewCollectorService(gh GitHubSource, sonar SonarSource, store metrics.Store, logger *logging.Logger) *CollectorService {
	if logger == nil {
		logger = logging.New("eemetrics/collector", logging.Catalog)
	}
	return &CollectorService{github: gh, sonar: sonar, store: store, logger: logger, now: time.Now}
}

// CollectRepo collects, scores and stores every metric family of org/repo
// and returns the consolidated document.
func (s *CollectorService) CollectRepo(ctx context.Context, org, repo string, opts CollectOptions) (*metrics.RepoMetrics, error) {
	since := opts.Since
	if since.IsZero() {
		since = s.now().Add(-defaultWindow)
	}

	ghRepo, err := s.github.Repository(ctx, org, repo)
	if err != nil {
		return nil, err
	}
	repoDoc := github.ToRepo(ghRepo)

	branch := opts.Branch
	if branch == "" {
		branch = ghRepo.GetDefaultBranch()
	}
	rules, err := s.github.BranchProtection(ctx, org, repo, branch)
	if err != nil {
		return nil, err
	}

	findings, err := s.github.DependabotAlertCounts(ctx, org, repo)
	if err != nil {
		return nil, err
	}

	contributors, err := s.github.ContributorsSince(ctx, org, repo, since)
	if err != nil {
		return nil, err
	}

	minutes, err := s.github.ActionMinutes(ctx, org, repo, since)
	if err != nil {
		return nil, err
	}

	projectKey := opts.ProjectKey
	if projectKey == "" {
		projectKey = org + "_" + repo
	}
	measures, err := s.measures(ctx, repoDoc.FullName, projectKey)
	if err != nil {
		return nil, err
	}

	consolidated := metrics.NewRepoMetrics(metrics.RepoMetricsInput{
		Repo:                repoDoc,
		BranchProtection:    rules,
		Dependabot:          findings,
		GithubActionMinutes: minutes,
		Sonarcloud:          measures,
		Contributors:        contributors,
	})

	name := repoDoc.FullName
	docs := []metrics.Document{
		&repoDoc,
		metrics.NewBranchProtection(name, rules),
		metrics.NewDependabot(name, findings),
		metrics.NewGithubActionMinutes(name, minutes),
		metrics.NewSonarcloud(name, measures),
		metrics.NewUniqueContributors(name, contributors),
		consolidated,
	}
	if err := s.store.Insert(ctx, docs...); err != nil {
		return nil, fmt.Errorf("store metrics for %s: %w", name, err)
	}

	s.logger.Info("ENGEXPUTILS013", logging.Fields{
		"repo":          name,
		"overallHealth": string(consolidated.OverallHealth()),
	})
	return consolidated, nil
}

func (s *CollectorService) measures(ctx context.Context, repo, projectKey string) (metrics.SonarcloudMeasures, error) {
	if s.sonar == nil {
		return metrics.SonarcloudMeasures{}, nil
	}
	measures, err := s.sonar.ProjectMeasures(ctx, projectKey)
	if errors.Is(err, sonarcloud.ErrProjectNotFound) {
		s.logger.Warn("ENGEXPUTILS019", logging.Fields{"repo": repo, "projectKey": projectKey})
		return metrics.SonarcloudMeasures{}, nil
	}
	if err != nil {
		return metrics.SonarcloudMeasures{}, fmt.Errorf("sonarcloud measures for %s: %w", projectKey, err)
	}
	return measures, nil
}

// CollectOrg collects every repository of org. Archived repositories are
// skipped when skipArchived is set. A failing repository aborts the run.
func (s *CollectorService) CollectOrg(ctx context.Context, org string, opts CollectOptions, skipArchived bool) ([]metrics.RepoMetrics, error) {
	repos, err := s.github.Repositories(ctx, org)
	if err != nil {
		return nil, err
	}

	collected := make([]metrics.RepoMetrics, 0, len(repos))
	for _, r := range repos {
		if skipArchived && r.GetArchived() {
			continue
		}
		m, err := s.CollectRepo(ctx, org, r.GetName(), CollectOptions{Since: opts.Since})
		if err != nil {
			return nil, err
		}
		collected = append(collected, *m)
	}
	return collected, nil
}

// AggregateHierarchy rolls repos up under item and stores the result.
func (s *CollectorService) AggregateHierarchy(ctx context.Context, item string, repos []metrics.RepoMetrics) (*metrics.AggregatedRepo, error) {
	agg := metrics.Aggregate(item, repos)
	if err := s.store.Insert(ctx, agg); err != nil {
		return nil, fmt.Errorf("store aggregate for %s: %w", item, err)
	}
	s.logger.Info("ENGEXPUTILS014", logging.Fields{
		"hierarchyItem":        item,
		"repos":                len(repos),
		"overallServiceHealth": string(agg.OverallServiceHealth),
	})
	return agg, nil
}
