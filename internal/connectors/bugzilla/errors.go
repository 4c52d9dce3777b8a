package bugzilla

import (
	"errors"
	"fmt"
)

// Bugzilla-specific errors.
var (
	// ErrInvalidURL indicates the tracker URL could not be parsed.
	ErrInvalidURL = errors.New("bugzilla: invalid tracker URL")

	// ErrNoBugID indicates a bug payload without a bug_id field.
	ErrNoBugID = errors.New("bugzilla: bug payload has no bug_id")
)

// APIError represents a Bugzilla server error response.
// These are transient fetch failures: the pipeline does not retry
// them, a rerun resumes from the last advanced cursor.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bugzilla: server error %d (URL: %s)", e.StatusCode, e.URL)
}

// IsTransient checks if the error indicates a retryable server failure.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500 || apiErr.StatusCode == 429
	}
	return false
}
