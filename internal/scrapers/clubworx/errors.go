package clubworx

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthTokenNotFound means the sign-in page had no authenticity_token input.
	ErrAuthTokenNotFound = errors.New("clubworx: authenticity token not found")
	// ErrLoginFailed means the credentials POST did not answer with a 302 carrying cookies.
	ErrLoginFailed = errors.New("clubworx: login failed")
	// ErrTooManyRedirects means the post-login redirect chain did not settle within maxRedirects hops.
	ErrTooManyRedirects = errors.New("clubworx: too many redirects")
	// ErrGymIdNotFound means the dashboard had no usable gym-data block.
	ErrGymIdNotFound = errors.New("clubworx: gym id not found")
	// ErrSessionExpired is returned by session accessors when the service
	// answers 401 or redirects to the sign-in page, log in again to recover.
	ErrSessionExpired = errors.New("clubworx: session expired")
	// ErrInvalidSessionData means stored session data is missing cookies or gymId.
	ErrInvalidSessionData = errors.New("clubworx: invalid session data")
)

// StatusError is returned when an authenticated request gets an error status
// that does not signal session expiry.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("clubworx: unexpected status %d from %s", e.StatusCode, e.Endpoint)
}
