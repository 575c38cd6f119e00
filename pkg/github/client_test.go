package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	gogithub "github.com/google/go-github/v69/github"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
	"github.com/felixgeelhaar/eemetrics/pkg/github"
	"github.com/felixgeelhaar/eemetrics/pkg/logging"
)

func newTestClient(t *testing.T, mux *http.ServeMux, opts ...github.Option) (*github.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	opts = append([]github.Option{github.WithBaseURL(srv.URL), github.WithLogger(logging.Nop())}, opts...)
	client, err := github.NewFromClient(gogithub.NewClient(nil), opts...)
	if err != nil {
		t.Fatalf("NewFromClient: %v", err)
	}
	return client, srv
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func linkNext(w http.ResponseWriter, r *http.Request, page int) {
	w.Header().Set("Link", fmt.Sprintf(`<http://%s%s?page=%d>; rel="next"`, r.Host, r.URL.Path, page))
}

func TestRepositoryNames_Paginates(t *testing.T) {
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/org/repos", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Query().Get("per_page") != "2" {
			t.Errorf("per_page = %q", r.URL.Query().Get("per_page"))
		}
		switch r.URL.Query().Get("page") {
		case "1", "":
			linkNext(w, r, 2)
			writeJSON(w, []map[string]string{{"name": "a"}, {"name": "b"}})
		case "2":
			writeJSON(w, []map[string]string{{"name": "c"}})
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	client, _ := newTestClient(t, mux, github.WithPerPage(2))

	names, err := client.RepositoryNames(context.Background(), "org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(names) != "[a b c]" {
		t.Errorf("names = %v", names)
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", requests.Load())
	}
}

func TestRepositories_StopsWithoutNextLink(t *testing.T) {
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/org/repos", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		writeJSON(w, []map[string]string{{"name": "a"}, {"name": "b"}})
	})
	client, _ := newTestClient(t, mux, github.WithPerPage(2))

	repos, err := client.Repositories(context.Background(), "org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repos) != 2 || requests.Load() != 1 {
		t.Errorf("repos = %d, requests = %d", len(repos), requests.Load())
	}
}

func TestRepositories_Error(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/org/repos", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux)

	if _, err := client.Repositories(context.Background(), "org"); err == nil {
		t.Error("expected error")
	}
}

func TestTeamsForOrgRepositories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/org/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{{"name": "a"}, {"name": "b"}})
	})
	mux.HandleFunc("/repos/org/a/teams", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{
			"slug":        "platform",
			"permission":  "admin",
			"permissions": map[string]bool{"admin": true, "pull": true},
		}})
	})
	mux.HandleFunc("/repos/org/b/teams", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"slug": "readers", "permission": "pull"}})
	})
	client, _ := newTestClient(t, mux)

	teams, err := client.TeamsForOrgRepositories(context.Background(), "org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(teams) != 2 {
		t.Fatalf("teams = %v", teams)
	}
	a := teams["a"]
	if len(a) != 1 || a[0].Slug != "platform" || a[0].Permission != "admin" || !a[0].Permissions["admin"] {
		t.Errorf("teams[a] = %+v", a)
	}
	if b := teams["b"]; len(b) != 1 || b[0].Slug != "readers" {
		t.Errorf("teams[b] = %+v", b)
	}
}

func TestTeamsForOrgRepositories_FailsOnAnyError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/org/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{{"name": "a"}, {"name": "b"}})
	})
	mux.HandleFunc("/repos/org/a/teams", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{})
	})
	mux.HandleFunc("/repos/org/b/teams", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client, _ := newTestClient(t, mux)

	if _, err := client.TeamsForOrgRepositories(context.Background(), "org"); err == nil {
		t.Error("expected error")
	}
}

func TestContributors_Deduplicates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/a/contributors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]string{{"login": "bob"}, {"login": "alice"}, {"login": "bob"}})
	})
	client, _ := newTestClient(t, mux)

	logins, err := client.Contributors(context.Background(), "org", "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(logins) != "[bob alice]" {
		t.Errorf("logins = %v", logins)
	}
}

func TestContributorsSince(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/a/commits", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("since"); got != since.Format(time.RFC3339) {
			t.Errorf("since = %q", got)
		}
		writeJSON(w, []map[string]any{
			{"sha": "1", "author": map[string]string{"login": "carol"}},
			{"sha": "2", "author": nil},
			{"sha": "3", "author": map[string]string{"login": "dave"}},
			{"sha": "4", "author": map[string]string{"login": "carol"}},
		})
	})
	client, _ := newTestClient(t, mux)

	logins, err := client.ContributorsSince(context.Background(), "org", "a", since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sort.Strings(logins)
	if fmt.Sprint(logins) != "[carol dave]" {
		t.Errorf("logins = %v", logins)
	}
}

func TestBranchProtection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/a/branches/main/protection", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"required_pull_request_reviews": map[string]any{
				"dismiss_stale_reviews":           true,
				"required_approving_review_count": 1,
			},
			"required_signatures":              map[string]any{"enabled": true},
			"required_conversation_resolution": map[string]any{"enabled": false},
		})
	})
	client, _ := newTestClient(t, mux)

	rules, err := client.BranchProtection(context.Background(), "org", "a", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := metrics.BranchProtectionRules{
		PullRequestRequired:                true,
		ApprovalsRequired:                  true,
		StalePullRequestApprovalsDismissed: true,
		SignaturesRequired:                 true,
	}
	if rules != want {
		t.Errorf("rules = %+v, want %+v", rules, want)
	}
	if rules.Scored().Compliance != health.Green {
		t.Errorf("compliance = %s", rules.Scored().Compliance)
	}
}

func TestBranchProtection_Unprotected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/a/branches/main/protection", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Branch not protected"}`))
	})
	client, _ := newTestClient(t, mux)

	rules, err := client.BranchProtection(context.Background(), "org", "a", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules != (metrics.BranchProtectionRules{}) {
		t.Errorf("rules = %+v, want zero", rules)
	}
}

func TestDependabotAlertCounts(t *testing.T) {
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/a/dependabot/alerts", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Query().Get("state") != "open" {
			t.Errorf("state = %q", r.URL.Query().Get("state"))
		}
		alert := func(sev string) map[string]any {
			return map[string]any{"security_advisory": map[string]string{"severity": sev}}
		}
		if r.URL.Query().Get("after") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<http://%s%s?after=cursor1>; rel="next"`, r.Host, r.URL.Path))
			writeJSON(w, []map[string]any{alert("critical"), alert("high"), alert("high")})
			return
		}
		writeJSON(w, []map[string]any{alert("medium"), alert("low")})
	})
	client, _ := newTestClient(t, mux)

	findings, err := client.DependabotAlertCounts(context.Background(), "org", "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := metrics.DependabotFindings{Enabled: true, Critical: 1, High: 2, Medium: 1, Low: 1}
	if findings != want {
		t.Errorf("findings = %+v, want %+v", findings, want)
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", requests.Load())
	}
}

func TestDependabotAlertCounts_Disabled(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/org/a/dependabot/alerts", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"message":"Dependabot alerts are disabled for this repository."}`))
			})
			client, _ := newTestClient(t, mux)

			findings, err := client.DependabotAlertCounts(context.Background(), "org", "a")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if findings.Enabled || findings.Scored().Score != health.Grey {
				t.Errorf("findings = %+v", findings)
			}
		})
	}
}

func TestToRepo(t *testing.T) {
	created := gogithub.Timestamp{Time: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)}
	r := &gogithub.Repository{
		ID:         gogithub.Ptr(int64(42)),
		NodeID:     gogithub.Ptr("R_1"),
		Name:       gogithub.Ptr("repo"),
		FullName:   gogithub.Ptr("org/repo"),
		Owner:      &gogithub.User{Login: gogithub.Ptr("org")},
		Visibility: gogithub.Ptr("internal"),
		Size:       gogithub.Ptr(12),
		PushedAt:   &created,
		CreatedAt:  &created,
		UpdatedAt:  &created,
		HTMLURL:    gogithub.Ptr("https://github.com/org/repo"),
	}

	repo := github.ToRepo(r)

	if repo.Language != github.UnknownLanguage {
		t.Errorf("Language = %q", repo.Language)
	}
	if repo.RepoCreatedAt != "2023-01-02T03:04:05Z" {
		t.Errorf("RepoCreatedAt = %q", repo.RepoCreatedAt)
	}
	if err := repo.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestActionMinutes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/a/actions/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("created") != ">=2024-03-01" {
			t.Errorf("created = %q", r.URL.Query().Get("created"))
		}
		writeJSON(w, map[string]any{
			"total_count":   2,
			"workflow_runs": []map[string]any{{"id": 1}, {"id": 2}},
		})
	})
	mux.HandleFunc("/repos/org/a/actions/runs/1/timing", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"run_duration_ms": 90000})
	})
	mux.HandleFunc("/repos/org/a/actions/runs/2/timing", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"run_duration_ms": 30000})
	})
	client, _ := newTestClient(t, mux)

	minutes, err := client.ActionMinutes(context.Background(), "org", "a", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minutes != 2 {
		t.Errorf("minutes = %v, want 2", minutes)
	}
}
