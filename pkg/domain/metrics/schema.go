package metrics

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// repoMetricsSchemaJSON requires every top-level and nested field of a
// consolidated document. Sonarcloud measures may be null.
const repoMetricsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["full_name", "size", "archived", "branchProtection", "dependabot",
               "githubActionMinutes", "sonarcloud", "uniqueContributors"],
  "definitions": {
    "status": { "enum": ["Green", "Amber", "Red", "Grey"] },
    "rating": { "enum": ["A", "B", "C", "D", "E", null] },
    "count": { "type": "integer", "minimum": 0 },
    "nullableNumber": { "type": ["number", "null"], "minimum": 0 }
  },
  "properties": {
    "full_name": { "type": "string", "minLength": 1 },
    "size": { "type": "integer", "minimum": 0 },
    "archived": { "type": "boolean" },
    "branchProtection": {
      "type": "object",
      "required": ["pullRequestRequired", "approvalsRequired", "stalePullRequestApprovalsDismissed",
                   "signaturesRequired", "conversationResolutionRequired", "compliance"],
      "properties": {
        "pullRequestRequired": { "type": "boolean" },
        "approvalsRequired": { "type": "boolean" },
        "stalePullRequestApprovalsDismissed": { "type": "boolean" },
        "signaturesRequired": { "type": "boolean" },
        "conversationResolutionRequired": { "type": "boolean" },
        "compliance": { "$ref": "#/definitions/status" }
      }
    },
    "dependabot": {
      "type": "object",
      "required": ["dependabotEnabled", "criticalDependabot", "highDependabot",
                   "mediumDependabot", "lowDependabot", "dependabotScore"],
      "properties": {
        "dependabotEnabled": { "type": "boolean" },
        "criticalDependabot": { "$ref": "#/definitions/count" },
        "highDependabot": { "$ref": "#/definitions/count" },
        "mediumDependabot": { "$ref": "#/definitions/count" },
        "lowDependabot": { "$ref": "#/definitions/count" },
        "dependabotScore": { "$ref": "#/definitions/status" }
      }
    },
    "githubActionMinutes": {
      "type": "object",
      "required": ["githubActionMinutes"],
      "properties": {
        "githubActionMinutes": { "type": "number", "minimum": 0 }
      }
    },
    "sonarcloud": {
      "type": "object",
      "required": ["isEnabled", "reliabilityRating", "securityRating", "sqaleRating", "codeCoverage",
                   "codeCoverageScore", "linesOfCode", "bugs", "codeSmells", "duplicatedLinesDensity"],
      "properties": {
        "isEnabled": { "type": "boolean" },
        "reliabilityRating": { "$ref": "#/definitions/rating" },
        "securityRating": { "$ref": "#/definitions/rating" },
        "sqaleRating": { "$ref": "#/definitions/rating" },
        "codeCoverage": { "type": ["number", "null"], "minimum": 0, "maximum": 100 },
        "codeCoverageScore": { "$ref": "#/definitions/status" },
        "linesOfCode": { "$ref": "#/definitions/nullableNumber" },
        "bugs": { "$ref": "#/definitions/nullableNumber" },
        "codeSmells": { "$ref": "#/definitions/nullableNumber" },
        "duplicatedLinesDensity": { "$ref": "#/definitions/nullableNumber" }
      }
    },
    "uniqueContributors": {
      "type": "object",
      "required": ["contributors", "numContributors"],
      "properties": {
        "contributors": { "type": "array", "items": { "type": "string" } },
        "numContributors": { "$ref": "#/definitions/count" }
      }
    }
  }
}`

var repoMetricsSchemaLoader = gojsonschema.NewStringLoader(repoMetricsSchemaJSON)

// SchemaError lists the JSON schema violations of a raw document.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("repo metrics document does not match schema: %v", e.Issues)
}

func (e *SchemaError) Is(target error) bool {
	return target == ErrValidation
}

// ValidateRepoMetricsJSON checks a raw consolidated document for missing or
// mistyped fields, then decodes it and applies the typed validation rules.
func ValidateRepoMetricsJSON(data []byte) (*RepoMetrics, error) {
	result, err := gojsonschema.Validate(repoMetricsSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validate repo metrics: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, &SchemaError{Issues: issues}
	}

	var doc RepoMetrics
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode repo metrics: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// IsValidationError reports whether err came from document validation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
