package platform

import "fmt"

// APIError is a non-2xx response from the voice-agent platform. It carries the
// HTTP status so callers can branch on it; the body is kept for logging.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("platform API error (status %d %s): %s", e.StatusCode, e.Status, e.Body)
	}
	return fmt.Sprintf("platform API error (status %d %s)", e.StatusCode, e.Status)
}
