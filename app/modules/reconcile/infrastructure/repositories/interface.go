package reconciledb

import (
	"context"
	"time"

	"github.com/google/uuid"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

// Repository is the durable side of the reconciliation pipeline. State
// transitions are conditional writes so concurrent sweeps (or a second
// process) can never move a match backwards.
type Repository interface {
	InsertPending(ctx context.Context, match *PendingMatch) error
	ListByState(ctx context.Context, state MatchState) ([]PendingMatch, error)
	GetPending(ctx context.Context, id uuid.UUID) (*PendingMatch, error)

	// MarkQueued binds a record and advances searching -> queued. Returns
	// ErrStateConflict when the match is no longer searching.
	MarkQueued(ctx context.Context, id uuid.UUID, recordID sharedtypes.RecordID, queuedAt time.Time) error

	// MarkCompleted advances queued -> completed.
	MarkCompleted(ctx context.Context, id uuid.UUID) error

	// MarkFailed advances a non-terminal match to failed with a reason.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	// ClaimRecord inserts into the claimed-record set. False means another
	// tracker holds the record.
	ClaimRecord(ctx context.Context, recordID sharedtypes.RecordID, pendingID uuid.UUID) (bool, error)

	// ReleaseClaim undoes a claim whose promotion failed before queuing.
	ReleaseClaim(ctx context.Context, recordID sharedtypes.RecordID) error

	// IsRecordClaimed reports membership in the claimed-record set.
	IsRecordClaimed(ctx context.Context, recordID sharedtypes.RecordID) (bool, error)

	// InsertConfirmed appends the confirmed match. False means a confirmed
	// row for the record already exists.
	InsertConfirmed(ctx context.Context, match *ConfirmedMatch) (bool, error)

	GetConfirmedByRecordID(ctx context.Context, recordID sharedtypes.RecordID) (*ConfirmedMatch, error)
}
