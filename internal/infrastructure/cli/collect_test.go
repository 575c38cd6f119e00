package cli

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
)

// collectMux serves every endpoint CollectRepo needs for each named repo.
func collectMux(t *testing.T, repos ...string) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/org/repos", func(w http.ResponseWriter, r *http.Request) {
		list := []map[string]any{repoJSON("archived", true)}
		for _, name := range repos {
			list = append(list, repoJSON(name, false))
		}
		writeJSON(w, list)
	})
	for _, name := range repos {
		base := "/repos/org/" + name
		mux.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, repoJSON(name, false))
		})
		mux.HandleFunc(base+"/branches/main/protection", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"required_pull_request_reviews": map[string]any{"required_approving_review_count": 1},
				"required_signatures":           map[string]any{"enabled": true},
			})
		})
		mux.HandleFunc(base+"/dependabot/alerts", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, []map[string]any{{"security_advisory": map[string]string{"severity": "low"}}})
		})
		mux.HandleFunc(base+"/commits", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("since") == "" {
				t.Error("commits listed without since")
			}
			writeJSON(w, []map[string]any{
				{"sha": "1", "author": map[string]string{"login": "alice"}},
				{"sha": "2", "author": map[string]string{"login": "alice"}},
				{"sha": "3", "author": map[string]string{"login": "bob"}},
			})
		})
		mux.HandleFunc(base+"/actions/runs", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"total_count": 0, "workflow_runs": []any{}})
		})
	}
	mux.HandleFunc("/repos/org/archived", func(w http.ResponseWriter, r *http.Request) {
		t.Error("archived repository was collected")
	})
	return mux
}

func TestCollect_SingleRepoThenShow(t *testing.T) {
	path := githubConfig(t, collectMux(t, "svc"))

	out, err := runCLI(t, "--config", path, "collect", "svc")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !strings.Contains(out, "Collected 1 repositories") || !strings.Contains(out, "org/svc") {
		t.Errorf("collect output:\n%s", out)
	}

	out, err = runCLI(t, "--config", path, "show", metrics.CollectionRepoMetrics, "org/svc")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var doc metrics.RepoMetrics
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	if doc.BranchProtection.Compliance != health.Green {
		t.Errorf("compliance = %s", doc.BranchProtection.Compliance)
	}
	if doc.Dependabot.Low != 1 || doc.Dependabot.Score != health.Green {
		t.Errorf("dependabot = %+v", doc.Dependabot)
	}
	if doc.Sonarcloud.IsEnabled || doc.Sonarcloud.CodeCoverageScore != health.Grey {
		t.Errorf("sonarcloud = %+v, want disabled", doc.Sonarcloud)
	}
	if doc.UniqueContributors.NumContributors != 2 {
		t.Errorf("contributors = %+v", doc.UniqueContributors)
	}
	if doc.Created().IsZero() {
		t.Error("stored document was not stamped")
	}

	out, err = runCLI(t, "--config", path, "show", metrics.CollectionUniqueContributors, "org/svc")
	if err != nil {
		t.Fatalf("show contributors: %v", err)
	}
	if !strings.Contains(out, `"alice"`) {
		t.Errorf("contributors output:\n%s", out)
	}
}

func TestCollect_AllWithAggregate(t *testing.T) {
	path := githubConfig(t, collectMux(t, "a", "b"))

	out, err := runCLI(t, "--config", path, "collect", "--all", "--aggregate", "Platform")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !strings.Contains(out, "Collected 2 repositories") || !strings.Contains(out, "Platform: Green across 2 repositories") {
		t.Errorf("collect output:\n%s", out)
	}

	out, err = runCLI(t, "--config", path, "show", metrics.CollectionAggregatedRepos, "Platform")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var agg metrics.AggregatedRepo
	if err := json.Unmarshal([]byte(out), &agg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if agg.Size != 80 || agg.LowDependabot != metrics.CountOf(2) || agg.ProportionGreenRepos != 1 {
		t.Errorf("aggregate = %+v", agg)
	}
}

func TestCollect_ArgumentRules(t *testing.T) {
	path := githubConfig(t, collectMux(t))

	if _, err := runCLI(t, "--config", path, "collect"); err == nil {
		t.Error("expected error without a repository or --all")
	}
	if _, err := runCLI(t, "--config", path, "collect", "svc", "--all"); err == nil {
		t.Error("expected error with both a repository and --all")
	}
}

func TestShow_Errors(t *testing.T) {
	path := githubConfig(t, http.NewServeMux())

	if _, err := runCLI(t, "--config", path, "show", "nope", "x"); err == nil {
		t.Error("expected error for unknown collection")
	}
	_, err := runCLI(t, "--config", path, "show", metrics.CollectionRepoMetrics, "org/missing")
	if err == nil || !strings.Contains(err.Error(), "no stored document found") {
		t.Errorf("err = %v, want mapped not found", err)
	}
}
