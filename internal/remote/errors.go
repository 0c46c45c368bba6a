package remote

import "errors"

// Common errors returned by sync operations.
//
// These can be checked with errors.Is():
//
//	if errors.Is(err, remote.ErrNotAuthenticated) {
//	    // prompt the user to sign in again
//	}
var (
	// ErrNotConfigured is returned when sync is disabled because the
	// required remote configuration is absent or a placeholder. Callers
	// should treat the operation as a silent no-op and keep running
	// fully offline.
	ErrNotConfigured = errors.New("remote services not configured")

	// ErrNotAuthenticated is returned when an operation requiring an
	// identity was attempted with none resolved. Unlike transient remote
	// failures this is raised loudly so callers can re-authenticate.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRemoteUnavailable is returned when the document store or auth
	// provider cannot be reached (network, permission, quota). Individual
	// operations catch and log this at their own boundary.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)
