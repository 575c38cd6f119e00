// Package metrics defines the persisted repository-metric documents.
//
// Documents are built compute-then-construct: constructors such as
// NewBranchProtection run the health scorer and place the derived status on
// the document before it reaches a Store. Stores never recompute scores.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/health"
)

// Collection names, one per metric family.
const (
	CollectionRepos               = "repos"
	CollectionBranchProtection    = "branch_protection"
	CollectionDependabot          = "dependabot"
	CollectionGithubActionMinutes = "github_action_minutes"
	CollectionSonarcloud          = "sonarcloud"
	CollectionUniqueContributors  = "unique_contributors"
	CollectionHierarchy           = "hierarchy"
	CollectionRepoMetrics         = "repo_metrics"
	CollectionAggregatedRepos     = "aggregated_repos"
)

// keyFields names the field each collection is looked up by.
var keyFields = map[string]string{
	CollectionRepos:               "full_name",
	CollectionBranchProtection:    "repo",
	CollectionDependabot:          "repo",
	CollectionGithubActionMinutes: "repo",
	CollectionSonarcloud:          "repo",
	CollectionUniqueContributors:  "repo",
	CollectionHierarchy:           "repo",
	CollectionRepoMetrics:         "full_name",
	CollectionAggregatedRepos:     "hierarchyItem",
}

// Collections returns every collection name.
func Collections() []string {
	return []string{
		CollectionRepos,
		CollectionBranchProtection,
		CollectionDependabot,
		CollectionGithubActionMinutes,
		CollectionSonarcloud,
		CollectionUniqueContributors,
		CollectionHierarchy,
		CollectionRepoMetrics,
		CollectionAggregatedRepos,
	}
}

// KeyField returns the lookup field for a collection, or "" if unknown.
func KeyField(collection string) string {
	return keyFields[collection]
}

// Document is a persistable metric record.
type Document interface {
	Collection() string
	// Key is the value of the collection's KeyField.
	Key() string
	Validate() error
	Stamp(now time.Time)
	Created() time.Time
}

// Timestamps is embedded in every document.
type Timestamps struct {
	CreatedAt time.Time `json:"document_created_at" bson:"document_created_at"`
}

// Stamp sets CreatedAt if it is not already set.
func (t *Timestamps) Stamp(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now.UTC()
	}
}

func (t Timestamps) Created() time.Time {
	return t.CreatedAt
}

// ValidationError reports a single invalid field.
type ValidationError struct {
	Collection string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s validation failed: %s: %s", e.Collection, e.Field, e.Reason)
}

// ErrValidation matches any ValidationError via errors.Is.
var ErrValidation = errors.New("document validation failed")

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

const (
	reasonRequired = "is required"
	reasonNegative = "cannot be a negative number"
)

// validator collects field failures for one collection.
type validator struct {
	collection string
	errs       []error
}

func newValidator(collection string) *validator {
	return &validator{collection: collection}
}

func (v *validator) fail(field, reason string) {
	v.errs = append(v.errs, &ValidationError{Collection: v.collection, Field: field, Reason: reason})
}

func (v *validator) required(field, value string) {
	if value == "" {
		v.fail(field, reasonRequired)
	}
}

func (v *validator) nonNegative(field string, value float64) {
	if value < 0 {
		v.fail(field, reasonNegative)
	}
}

// score checks a stored status against the one the scorer derives from
// the same document. enabled is false when the family is switched off.
func (v *validator) score(field string, got, want health.Status, enabled bool) {
	switch {
	case !got.Valid():
		v.fail(field, reasonRequired)
	case got == want:
	case !enabled:
		v.fail(field, fmt.Sprintf("must be %s when disabled", want))
	default:
		v.fail(field, fmt.Sprintf("is %s but the recorded values score %s", got, want))
	}
}

func (v *validator) err() error {
	return errors.Join(v.errs...)
}
