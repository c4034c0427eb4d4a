package reconciledb

import "errors"

// ErrStateConflict means a conditional transition matched zero rows: the
// match moved on (or never existed). Sweeps treat it as "someone else got
// there first" and move to the next item.
var ErrStateConflict = errors.New("pending match is not in the required state")
