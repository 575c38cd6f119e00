package metrics_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func ratingPtr(r health.Rating) *health.Rating {
	return &r
}

func TestNewBranchProtection_ScoresCompliance(t *testing.T) {
	tests := []struct {
		rules metrics.BranchProtectionRules
		want  health.Status
	}{
		{metrics.BranchProtectionRules{}, health.Red},
		{metrics.BranchProtectionRules{PullRequestRequired: true}, health.Red},
		{metrics.BranchProtectionRules{SignaturesRequired: true, PullRequestRequired: true}, health.Amber},
		{metrics.BranchProtectionRules{ApprovalsRequired: true, SignaturesRequired: true, PullRequestRequired: true}, health.Green},
		// Untracked rules do not count towards compliance.
		{metrics.BranchProtectionRules{StalePullRequestApprovalsDismissed: true, ConversationResolutionRequired: true}, health.Red},
	}
	for _, tt := range tests {
		doc := metrics.NewBranchProtection("ORG/repo", tt.rules)
		if doc.Compliance != tt.want {
			t.Errorf("compliance for %+v = %s, want %s", tt.rules, doc.Compliance, tt.want)
		}
		if err := doc.Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	}
}

func TestBranchProtection_RequiresRepo(t *testing.T) {
	doc := metrics.NewBranchProtection("", metrics.BranchProtectionRules{})

	err := doc.Validate()

	var vErr *metrics.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "repo" {
		t.Errorf("field = %q, want repo", vErr.Field)
	}
	if !metrics.IsValidationError(err) {
		t.Error("IsValidationError = false")
	}
}

func TestBranchProtection_RejectsUnscoredDocument(t *testing.T) {
	doc := &metrics.BranchProtection{Repo: "ORG/repo"}
	if err := doc.Validate(); err == nil {
		t.Error("expected error for missing compliance")
	}
}

func TestDependabot_Validation(t *testing.T) {
	tests := []struct {
		name     string
		findings metrics.DependabotFindings
		wantErr  bool
	}{
		{"disabled with zero findings", metrics.DependabotFindings{}, false},
		{"disabled with critical finding", metrics.DependabotFindings{Critical: 1}, true},
		{"disabled with high finding", metrics.DependabotFindings{High: 1}, true},
		{"disabled with medium finding", metrics.DependabotFindings{Medium: 1}, true},
		{"disabled with low finding", metrics.DependabotFindings{Low: 1}, true},
		{"enabled with findings", metrics.DependabotFindings{Enabled: true, Critical: 1, Low: 3}, false},
		{"negative count", metrics.DependabotFindings{Enabled: true, High: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := metrics.NewDependabot("ORG/repo", tt.findings).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDependabot_Score(t *testing.T) {
	if got := metrics.NewDependabot("ORG/repo", metrics.DependabotFindings{}).Score; got != health.Grey {
		t.Errorf("disabled score = %s, want Grey", got)
	}
	doc := metrics.NewDependabot("ORG/repo", metrics.DependabotFindings{Enabled: true, High: 2, Medium: 1, Low: 2})
	if doc.Score != health.Amber {
		t.Errorf("score = %s, want Amber", doc.Score)
	}
	if doc.Points() != 27 {
		t.Errorf("points = %d, want 27", doc.Points())
	}
}

func TestSonarcloud_Validation(t *testing.T) {
	tests := []struct {
		name     string
		measures metrics.SonarcloudMeasures
		wantErr  bool
	}{
		{"disabled without measures", metrics.SonarcloudMeasures{}, false},
		{"disabled with coverage", metrics.SonarcloudMeasures{CodeCoverage: floatPtr(10)}, true},
		{"disabled with rating", metrics.SonarcloudMeasures{SecurityRating: ratingPtr(health.RatingA)}, true},
		{"disabled with bugs", metrics.SonarcloudMeasures{Bugs: intPtr(0)}, true},
		{"enabled without measures", metrics.SonarcloudMeasures{IsEnabled: true}, false},
		{"enabled with measures", metrics.SonarcloudMeasures{
			IsEnabled:              true,
			ReliabilityRating:      ratingPtr(health.RatingA),
			SecurityRating:         ratingPtr(health.RatingB),
			SqaleRating:            ratingPtr(health.RatingC),
			CodeCoverage:           floatPtr(81.5),
			LinesOfCode:            intPtr(1200),
			Bugs:                   intPtr(2),
			CodeSmells:             intPtr(14),
			DuplicatedLinesDensity: floatPtr(1.5),
		}, false},
		{"invalid rating", metrics.SonarcloudMeasures{IsEnabled: true, SqaleRating: ratingPtr("F")}, true},
		{"negative bugs", metrics.SonarcloudMeasures{IsEnabled: true, Bugs: intPtr(-1)}, true},
		{"coverage over 100", metrics.SonarcloudMeasures{IsEnabled: true, CodeCoverage: floatPtr(101)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := metrics.NewSonarcloud("ORG/repo", tt.measures).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewSonarcloud_Score(t *testing.T) {
	tests := []struct {
		measures metrics.SonarcloudMeasures
		want     health.Status
	}{
		{metrics.SonarcloudMeasures{}, health.Grey},
		{metrics.SonarcloudMeasures{IsEnabled: true}, health.Grey},
		{metrics.SonarcloudMeasures{IsEnabled: true, CodeCoverage: floatPtr(80)}, health.Green},
		{metrics.SonarcloudMeasures{IsEnabled: true, CodeCoverage: floatPtr(50)}, health.Amber},
		{metrics.SonarcloudMeasures{IsEnabled: true, CodeCoverage: floatPtr(49)}, health.Red},
	}
	for _, tt := range tests {
		if got := metrics.NewSonarcloud("ORG/repo", tt.measures).CodeCoverageScore; got != tt.want {
			t.Errorf("score = %s, want %s", got, tt.want)
		}
	}
}

func TestGithubActionMinutes_Validation(t *testing.T) {
	if err := metrics.NewGithubActionMinutes("ORG/repo", 12).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := metrics.NewGithubActionMinutes("ORG/repo", -1).Validate(); err == nil {
		t.Error("expected error for negative minutes")
	}
}

func TestNewUniqueContributors(t *testing.T) {
	doc := metrics.NewUniqueContributors("ORG/repo", []string{"alice", "bob"})
	if doc.NumContributors != 2 {
		t.Errorf("NumContributors = %d, want 2", doc.NumContributors)
	}
	empty := metrics.NewUniqueContributors("ORG/repo", nil)
	if empty.Contributors == nil || empty.NumContributors != 0 {
		t.Errorf("empty = %+v, want non-nil empty list", empty.ContributorSet)
	}
}

func TestNewHierarchy_Defaults(t *testing.T) {
	h := metrics.NewHierarchy("ORG/repo")
	for _, level := range []string{h.Directorate, h.FunctionName, h.Subdirectorate, h.Area, h.Service} {
		if level != metrics.Unallocated {
			t.Errorf("level = %q, want %q", level, metrics.Unallocated)
		}
	}
	if err := (&metrics.Hierarchy{}).Validate(); err == nil {
		t.Error("expected error for missing repo")
	}
}

func TestRepo_Validation(t *testing.T) {
	repo := validRepo()
	if err := repo.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.Size = -1
	repo.URL = ""
	err := repo.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	var count int
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		if metrics.IsValidationError(e) {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", count, err)
	}
}

func TestTimestamps_Stamp(t *testing.T) {
	doc := metrics.NewGithubActionMinutes("ORG/repo", 1)
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	doc.Stamp(first)
	doc.Stamp(first.Add(time.Hour))

	if !doc.Created().Equal(first) {
		t.Errorf("Created = %v, want %v", doc.Created(), first)
	}
}

func validRepo() *metrics.Repo {
	return &metrics.Repo{
		GithubID:      42,
		NodeID:        "R_1",
		Name:          "repo",
		FullName:      "ORG/repo",
		Owner:         "ORG",
		Visibility:    "private",
		Language:      "Go",
		Size:          100,
		PushedAt:      "2024-01-01T00:00:00Z",
		RepoCreatedAt: "2023-01-01T00:00:00Z",
		RepoUpdatedAt: "2024-01-01T00:00:00Z",
		URL:           "https://github.com/ORG/repo",
	}
}

func TestValidate_StoredScoreMustMatchFindings(t *testing.T) {
	tests := []struct {
		name  string
		doc   metrics.Document
		field string
	}{
		{
			"dependabot disabled but scored",
			&metrics.Dependabot{Repo: "ORG/repo", DependabotFindings: metrics.DependabotFindings{Score: health.Red}},
			"dependabotScore",
		},
		{
			"dependabot critical finding scored Green",
			&metrics.Dependabot{Repo: "ORG/repo", DependabotFindings: metrics.DependabotFindings{Enabled: true, Critical: 5, Score: health.Green}},
			"dependabotScore",
		},
		{
			"sonarcloud disabled but scored",
			&metrics.Sonarcloud{Repo: "ORG/repo", SonarcloudMeasures: metrics.SonarcloudMeasures{CodeCoverageScore: health.Green}},
			"codeCoverageScore",
		},
		{
			"sonarcloud low coverage scored Green",
			&metrics.Sonarcloud{Repo: "ORG/repo", SonarcloudMeasures: metrics.SonarcloudMeasures{
				IsEnabled: true, CodeCoverage: floatPtr(12), CodeCoverageScore: health.Green,
			}},
			"codeCoverageScore",
		},
		{
			"branch protection without rules scored Green",
			&metrics.BranchProtection{Repo: "ORG/repo", BranchProtectionRules: metrics.BranchProtectionRules{Compliance: health.Green}},
			"compliance",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.doc.Validate()

			var vErr *metrics.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestValidate_DisabledFamilyMustBeGrey(t *testing.T) {
	doc := &metrics.Dependabot{Repo: "ORG/repo", DependabotFindings: metrics.DependabotFindings{Score: health.Amber}}

	err := doc.Validate()

	if err == nil || !strings.Contains(err.Error(), "must be Grey when disabled") {
		t.Errorf("error = %v", err)
	}
}
