package ratingservice

import "errors"

var (
	// ErrDuplicateApplication means the record was already rated. Callers
	// treat it as success on redelivery.
	ErrDuplicateApplication = errors.New("record already applied to ratings")

	// ErrUnknownScope means a leaderboard query named no known scope.
	ErrUnknownScope = errors.New("unknown rating scope")
)
