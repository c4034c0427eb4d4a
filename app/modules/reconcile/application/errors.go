package reconcileservice

import "errors"

var (
	// ErrAlreadyClaimed means another tracker bound the record between the
	// claimed-set check and the claim insert. The candidate is skipped and
	// the search continues.
	ErrAlreadyClaimed = errors.New("record already claimed by another tracker")

	// ErrNoCandidate means no search result survived the rejection rules
	// this tick.
	ErrNoCandidate = errors.New("no matching record found")
)
