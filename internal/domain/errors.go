package domain

import "errors"

// Domain errors
var (
	ErrParticipantNotFound = errors.New("participant not found in leaderboard")
	ErrSnapshotNotFound    = errors.New("leaderboard snapshot not found")
	ErrInvalidRole         = errors.New("invalid leaderboard role")
	ErrInvalidPeriod       = errors.New("invalid leaderboard period")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInternalError       = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrParticipantNotFound) || errors.Is(err, ErrSnapshotNotFound)
}
