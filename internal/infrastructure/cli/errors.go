package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/eemetrics/pkg/domain/metrics"
	"github.com/felixgeelhaar/eemetrics/pkg/sonarcloud"
	"github.com/felixgeelhaar/eemetrics/pkg/storage"
)

var (
	ErrMissingGitHubToken     = errors.New("GITHUB_TOKEN is not set")
	ErrMissingSonarcloudToken = errors.New("SONARCLOUD_TOKEN is not set")
	ErrMissingOrg             = errors.New("organisation is not set")
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var schemaErr *metrics.SchemaError
	if errors.As(err, &schemaErr) {
		return NewCLIError("document does not match the repo_metrics schema", "Check the listed fields against 'eemetrics validate --help'", err)
	}

	var apiErrs sonarcloud.APIErrors
	if errors.As(err, &apiErrs) {
		return NewCLIError("SonarCloud rejected the request", "Check that the token has access to the organisation", err)
	}

	switch {
	case errors.Is(err, ErrMissingGitHubToken):
		return NewCLIError("missing GitHub token", "Export GITHUB_TOKEN with a token that can read the organisation", err)
	case errors.Is(err, ErrMissingSonarcloudToken):
		return NewCLIError("missing SonarCloud token", "Export SONARCLOUD_TOKEN with a SonarCloud user token", err)
	case errors.Is(err, ErrMissingOrg):
		return NewCLIError("no organisation given", "Pass --org or set github.org / sonarcloud.org in eemetrics.yaml", err)
	case errors.Is(err, storage.ErrMissingURI):
		return NewCLIError("missing MongoDB connection string", "Export MONGODB_URI or set store.kind to file", err)
	case errors.Is(err, sonarcloud.ErrNoOrganisation):
		return NewCLIError("SonarCloud organisation not found", "Check sonarcloud.org in eemetrics.yaml", err)
	case errors.Is(err, sonarcloud.ErrProjectNotFound):
		return NewCLIError("SonarCloud project not found", "Run 'eemetrics sonarcloud projects' to list project keys", err)
	case errors.Is(err, sonarcloud.ErrGroupNotCreated):
		return NewCLIError("group was not created", "Retry with --dry-run to check the request", err)
	case errors.Is(err, sonarcloud.ErrRequestFailed):
		return NewCLIError("SonarCloud request failed", "Run with --log-level debug and check the logged status", err)
	case errors.Is(err, metrics.ErrValidation):
		return NewCLIError("document failed validation", "Fix the listed fields and retry", err)
	case errors.Is(err, metrics.ErrNotFound):
		return NewCLIError("no stored document found", "Run 'eemetrics collect' first", err)
	}

	return err
}
