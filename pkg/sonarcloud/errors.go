package sonarcloud

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrNoOrganisation matches NoOrganisationError via errors.Is.
	ErrNoOrganisation = errors.New("sonarcloud: no such organisation")
	// ErrProjectNotFound matches ProjectNotFoundError via errors.Is.
	ErrProjectNotFound = errors.New("sonarcloud: project not found")
	// ErrMessageNotFound is returned for an error entry with neither
	// "message" nor "msg".
	ErrMessageNotFound = errors.New("error message not found")
	// ErrInvalidResponse is returned when a body is not a JSON object.
	ErrInvalidResponse = errors.New("sonarcloud: invalid response body")
	// ErrRequestFailed is returned by typed helpers when Call reports an
	// unsuccessful result.
	ErrRequestFailed = errors.New("sonarcloud: request failed")
	// ErrGroupNotCreated is returned when a create response carries no group.
	ErrGroupNotCreated = errors.New("sonarcloud: group not created")
)

// NoOrganisationError is raised for "No organization for key" errors.
type NoOrganisationError struct {
	Message string
}

func (e *NoOrganisationError) Error() string { return e.Message }

func (e *NoOrganisationError) Is(target error) bool { return target == ErrNoOrganisation }

// ProjectNotFoundError is raised for "Component key ... not found" errors.
type ProjectNotFoundError struct {
	Message string
}

func (e *ProjectNotFoundError) Error() string { return e.Message }

func (e *ProjectNotFoundError) Is(target error) bool { return target == ErrProjectNotFound }

// APIError is one entry of the vendor error envelope. SonarCloud uses
// "msg"; some endpoints use "message".
type APIError struct {
	Message string          `json:"message,omitempty"`
	Msg     string          `json:"msg,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// Text returns whichever message field is set.
func (e APIError) Text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Msg
}

// UnmarshalJSON keeps the raw entry. Entries that are not objects decode
// with empty message fields.
func (e *APIError) UnmarshalJSON(data []byte) error {
	raw := append(json.RawMessage(nil), data...)
	trimmed := strings.TrimSpace(string(data))
	if !strings.HasPrefix(trimmed, "{") {
		*e = APIError{Raw: raw}
		return nil
	}
	type plain APIError
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = APIError(p)
	e.Raw = raw
	return nil
}

// APIErrors is an error envelope that matched no known condition.
type APIErrors []APIError

func (e APIErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, apiErr := range e {
		if text := apiErr.Text(); text != "" {
			msgs = append(msgs, text)
		} else {
			msgs = append(msgs, string(apiErr.Raw))
		}
	}
	return "sonarcloud: " + strings.Join(msgs, "; ")
}
