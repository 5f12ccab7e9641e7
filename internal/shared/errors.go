package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)

// UserSafeMessage returns a message suitable for end users, hiding
// internal detail for unexpected failures.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found"
	default:
		return "Something went wrong, please try again"
	}
}
