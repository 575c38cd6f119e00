package metrics

import (
	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
)

// BranchProtectionRules are the default-branch protection settings.
type BranchProtectionRules struct {
	PullRequestRequired                bool          `json:"pullRequestRequired" bson:"pullRequestRequired"`
	ApprovalsRequired                  bool          `json:"approvalsRequired" bson:"approvalsRequired"`
	StalePullRequestApprovalsDismissed bool          `json:"stalePullRequestApprovalsDismissed" bson:"stalePullRequestApprovalsDismissed"`
	SignaturesRequired                 bool          `json:"signaturesRequired" bson:"signaturesRequired"`
	ConversationResolutionRequired     bool          `json:"conversationResolutionRequired" bson:"conversationResolutionRequired"`
	Compliance                         health.Status `json:"compliance" bson:"compliance"`
}

// Scored returns a copy with Compliance computed.
func (r BranchProtectionRules) Scored() BranchProtectionRules {
	r.Compliance = health.BranchProtectionCompliance(r.PullRequestRequired, r.ApprovalsRequired, r.SignaturesRequired)
	return r
}

func (r BranchProtectionRules) validate(v *validator, prefix string) {
	v.score(prefix+"compliance", r.Compliance, r.Scored().Compliance, true)
}

// BranchProtection is the branch-protection metric document.
type BranchProtection struct {
	Timestamps            `bson:",inline"`
	Repo                  string `json:"repo" bson:"repo"`
	BranchProtectionRules `bson:",inline"`
}

// NewBranchProtection scores rules and builds the document.
func NewBranchProtection(repo string, rules BranchProtectionRules) *BranchProtection {
	return &BranchProtection{Repo: repo, BranchProtectionRules: rules.Scored()}
}

func (b *BranchProtection) Collection() string { return CollectionBranchProtection }
func (b *BranchProtection) Key() string        { return b.Repo }

func (b *BranchProtection) Validate() error {
	v := newValidator(CollectionBranchProtection)
	v.required("repo", b.Repo)
	b.BranchProtectionRules.validate(v, "")
	return v.err()
}

// DependabotFindings are open Dependabot alert counts by severity.
type DependabotFindings struct {
	Enabled  bool          `json:"dependabotEnabled" bson:"dependabotEnabled"`
	Critical int           `json:"criticalDependabot" bson:"criticalDependabot"`
	High     int           `json:"highDependabot" bson:"highDependabot"`
	Medium   int           `json:"mediumDependabot" bson:"mediumDependabot"`
	Low      int           `json:"lowDependabot" bson:"lowDependabot"`
	Score    health.Status `json:"dependabotScore" bson:"dependabotScore"`
}

// Scored returns a copy with Score computed.
func (d DependabotFindings) Scored() DependabotFindings {
	d.Score = health.DependabotScore(d.Enabled, d.Critical, d.High, d.Medium, d.Low)
	return d
}

// Points is the severity-weighted sum of findings.
func (d DependabotFindings) Points() int {
	return health.DependabotPoints(d.Critical, d.High, d.Medium, d.Low)
}

func (d DependabotFindings) validate(v *validator, prefix string) {
	findings := []struct {
		field string
		value int
	}{
		{"criticalDependabot", d.Critical},
		{"highDependabot", d.High},
		{"mediumDependabot", d.Medium},
		{"lowDependabot", d.Low},
	}
	for _, f := range findings {
		v.nonNegative(prefix+f.field, float64(f.value))
		if !d.Enabled && f.value > 0 {
			v.fail(prefix+f.field, "must be 0 when dependabot is disabled")
		}
	}
	v.score(prefix+"dependabotScore", d.Score, d.Scored().Score, d.Enabled)
}

// Dependabot is the dependency-vulnerability metric document.
type Dependabot struct {
	Timestamps         `bson:",inline"`
	Repo               string `json:"repo" bson:"repo"`
	DependabotFindings `bson:",inline"`
}

// NewDependabot scores findings and builds the document.
func NewDependabot(repo string, findings DependabotFindings) *Dependabot {
	return &Dependabot{Repo: repo, DependabotFindings: findings.Scored()}
}

func (d *Dependabot) Collection() string { return CollectionDependabot }
func (d *Dependabot) Key() string        { return d.Repo }

func (d *Dependabot) Validate() error {
	v := newValidator(CollectionDependabot)
	v.required("repo", d.Repo)
	d.DependabotFindings.validate(v, "")
	return v.err()
}

// ActionMinutes is CI usage over the reporting period.
type ActionMinutes struct {
	Minutes float64 `json:"githubActionMinutes" bson:"githubActionMinutes"`
}

func (a ActionMinutes) validate(v *validator, prefix string) {
	v.nonNegative(prefix+"githubActionMinutes", a.Minutes)
}

// GithubActionMinutes is the CI-minutes metric document.
type GithubActionMinutes struct {
	Timestamps    `bson:",inline"`
	Repo          string `json:"repo" bson:"repo"`
	ActionMinutes `bson:",inline"`
}

func NewGithubActionMinutes(repo string, minutes float64) *GithubActionMinutes {
	return &GithubActionMinutes{Repo: repo, ActionMinutes: ActionMinutes{Minutes: minutes}}
}

func (g *GithubActionMinutes) Collection() string { return CollectionGithubActionMinutes }
func (g *GithubActionMinutes) Key() string        { return g.Repo }

func (g *GithubActionMinutes) Validate() error {
	v := newValidator(CollectionGithubActionMinutes)
	v.required("repo", g.Repo)
	g.ActionMinutes.validate(v, "")
	return v.err()
}

// SonarcloudMeasures are code-quality measures. Every measure is nil when
// the project is not enabled in SonarCloud.
type SonarcloudMeasures struct {
	IsEnabled              bool           `json:"isEnabled" bson:"isEnabled"`
	ReliabilityRating      *health.Rating `json:"reliabilityRating" bson:"reliabilityRating"`
	SecurityRating         *health.Rating `json:"securityRating" bson:"securityRating"`
	SqaleRating            *health.Rating `json:"sqaleRating" bson:"sqaleRating"`
	CodeCoverage           *float64       `json:"codeCoverage" bson:"codeCoverage"`
	LinesOfCode            *int           `json:"linesOfCode" bson:"linesOfCode"`
	Bugs                   *int           `json:"bugs" bson:"bugs"`
	CodeSmells             *int           `json:"codeSmells" bson:"codeSmells"`
	DuplicatedLinesDensity *float64       `json:"duplicatedLinesDensity" bson:"duplicatedLinesDensity"`
	CodeCoverageScore      health.Status  `json:"codeCoverageScore" bson:"codeCoverageScore"`
}

// Scored returns a copy with CodeCoverageScore computed.
func (s SonarcloudMeasures) Scored() SonarcloudMeasures {
	s.CodeCoverageScore = health.CodeCoverageScore(s.IsEnabled, s.CodeCoverage)
	return s
}

func (s SonarcloudMeasures) validate(v *validator, prefix string) {
	ratings := []struct {
		field string
		value *health.Rating
	}{
		{"reliabilityRating", s.ReliabilityRating},
		{"securityRating", s.SecurityRating},
		{"sqaleRating", s.SqaleRating},
	}
	for _, r := range ratings {
		if r.value == nil {
			continue
		}
		if !s.IsEnabled {
			v.fail(prefix+r.field, "must be null when sonarcloud is disabled")
		} else if !r.value.Valid() {
			v.fail(prefix+r.field, "must be one of A, B, C, D, E")
		}
	}

	numbers := []struct {
		field string
		value *float64
	}{
		{"codeCoverage", s.CodeCoverage},
		{"linesOfCode", intPtrToFloat(s.LinesOfCode)},
		{"bugs", intPtrToFloat(s.Bugs)},
		{"codeSmells", intPtrToFloat(s.CodeSmells)},
		{"duplicatedLinesDensity", s.DuplicatedLinesDensity},
	}
	for _, n := range numbers {
		if n.value == nil {
			continue
		}
		if !s.IsEnabled {
			v.fail(prefix+n.field, "must be null when sonarcloud is disabled")
			continue
		}
		v.nonNegative(prefix+n.field, *n.value)
	}
	if s.CodeCoverage != nil && *s.CodeCoverage > 100 {
		v.fail(prefix+"codeCoverage", "cannot exceed 100")
	}
	v.score(prefix+"codeCoverageScore", s.CodeCoverageScore, s.Scored().CodeCoverageScore, s.IsEnabled)
}

func intPtrToFloat(i *int) *float64 {
	if i == nil {
		return nil
	}
	f := float64(*i)
	return &f
}

// Sonarcloud is the code-quality metric document.
type Sonarcloud struct {
	Timestamps         `bson:",inline"`
	Repo               string `json:"repo" bson:"repo"`
	SonarcloudMeasures `bson:",inline"`
}

// NewSonarcloud scores measures and builds the document.
func NewSonarcloud(repo string, measures SonarcloudMeasures) *Sonarcloud {
	return &Sonarcloud{Repo: repo, SonarcloudMeasures: measures.Scored()}
}

func (s *Sonarcloud) Collection() string { return CollectionSonarcloud }
func (s *Sonarcloud) Key() string        { return s.Repo }

func (s *Sonarcloud) Validate() error {
	v := newValidator(CollectionSonarcloud)
	v.required("repo", s.Repo)
	s.SonarcloudMeasures.validate(v, "")
	return v.err()
}

// ContributorSet is the unique contributors over the reporting period.
type ContributorSet struct {
	Contributors    []string `json:"contributors" bson:"contributors"`
	NumContributors int      `json:"numContributors" bson:"numContributors"`
}

func (c ContributorSet) validate(v *validator, prefix string) {
	v.nonNegative(prefix+"numContributors", float64(c.NumContributors))
}

// UniqueContributors is the contributor-count metric document.
type UniqueContributors struct {
	Timestamps     `bson:",inline"`
	Repo           string `json:"repo" bson:"repo"`
	ContributorSet `bson:",inline"`
}

// NewUniqueContributors counts the given logins.
func NewUniqueContributors(repo string, contributors []string) *UniqueContributors {
	if contributors == nil {
		contributors = []string{}
	}
	return &UniqueContributors{
		Repo:           repo,
		ContributorSet: ContributorSet{Contributors: contributors, NumContributors: len(contributors)},
	}
}

func (u *UniqueContributors) Collection() string { return CollectionUniqueContributors }
func (u *UniqueContributors) Key() string        { return u.Repo }

func (u *UniqueContributors) Validate() error {
	v := newValidator(CollectionUniqueContributors)
	v.required("repo", u.Repo)
	u.ContributorSet.validate(v, "")
	return v.err()
}
