package domain

import "errors"

// Domain errors
var (
	ErrBeatmapNotFound = errors.New("beatmap not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrScoreNotFound   = errors.New("score not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInternalError   = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrBeatmapNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrScoreNotFound)
}
