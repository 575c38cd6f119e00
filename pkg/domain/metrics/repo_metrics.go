package metrics

import (
	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
)

// RepoMetrics consolidates every metric family for one repository.
type RepoMetrics struct {
	Timestamps          `bson:",inline"`
	FullName            string                `json:"full_name" bson:"full_name"`
	Size                int                   `json:"size" bson:"size"`
	Archived            bool                  `json:"archived" bson:"archived"`
	BranchProtection    BranchProtectionRules `json:"branchProtection" bson:"branchProtection"`
	Dependabot          DependabotFindings    `json:"dependabot" bson:"dependabot"`
	GithubActionMinutes ActionMinutes         `json:"githubActionMinutes" bson:"githubActionMinutes"`
	Sonarcloud          SonarcloudMeasures    `json:"sonarcloud" bson:"sonarcloud"`
	UniqueContributors  ContributorSet        `json:"uniqueContributors" bson:"uniqueContributors"`
}

// RepoMetricsInput carries the raw family values for NewRepoMetrics.
type RepoMetricsInput struct {
	Repo                Repo
	BranchProtection    BranchProtectionRules
	Dependabot          DependabotFindings
	GithubActionMinutes float64
	Sonarcloud          SonarcloudMeasures
	Contributors        []string
}

// NewRepoMetrics scores every family and builds the consolidated document.
func NewRepoMetrics(in RepoMetricsInput) *RepoMetrics {
	contributors := in.Contributors
	if contributors == nil {
		contributors = []string{}
	}
	return &RepoMetrics{
		FullName:            in.Repo.FullName,
		Size:                in.Repo.Size,
		Archived:            in.Repo.Archived,
		BranchProtection:    in.BranchProtection.Scored(),
		Dependabot:          in.Dependabot.Scored(),
		GithubActionMinutes: ActionMinutes{Minutes: in.GithubActionMinutes},
		Sonarcloud:          in.Sonarcloud.Scored(),
		UniqueContributors:  ContributorSet{Contributors: contributors, NumContributors: len(contributors)},
	}
}

func (m *RepoMetrics) Collection() string { return CollectionRepoMetrics }
func (m *RepoMetrics) Key() string        { return m.FullName }

func (m *RepoMetrics) Validate() error {
	v := newValidator(CollectionRepoMetrics)
	v.required("full_name", m.FullName)
	v.nonNegative("size", float64(m.Size))
	m.BranchProtection.validate(v, "branchProtection.")
	m.Dependabot.validate(v, "dependabot.")
	m.GithubActionMinutes.validate(v, "githubActionMinutes.")
	m.Sonarcloud.validate(v, "sonarcloud.")
	m.UniqueContributors.validate(v, "uniqueContributors.")
	return v.err()
}

// OverallHealth is the worst scored family status.
func (m *RepoMetrics) OverallHealth() health.Status {
	return health.Worst(
		m.BranchProtection.Compliance,
		m.Dependabot.Score,
		m.Sonarcloud.CodeCoverageScore,
	)
}
