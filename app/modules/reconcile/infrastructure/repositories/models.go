package reconciledb

import (
	"time"

	"github.com/google/uuid"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/uptrace/bun"
)

// MatchState is the reconciliation state of a tracked pickup. Transitions are
// monotonic: searching -> queued -> completed | failed.
type MatchState string

const (
	StateSearching MatchState = "searching"
	StateQueued    MatchState = "queued"
	StateCompleted MatchState = "completed"
	StateFailed    MatchState = "failed"
)

// PendingMatch is one tracked pickup awaiting reconciliation. The participant
// set is immutable after insert; only state, record binding, and timestamps
// change.
type PendingMatch struct {
	bun.BaseModel `bun:"table:pending_matches,alias:pm"`

	ID           uuid.UUID                 `bun:"id,pk,type:uuid"`
	GuildID      sharedtypes.GuildID       `bun:"guild_id,notnull"`
	Category     sharedtypes.Category      `bun:"category,notnull"`
	ChannelID    string                    `bun:"channel_id"`
	Participants []sharedtypes.Participant `bun:"participants,type:jsonb,notnull"`
	State        MatchState                `bun:"state,notnull,default:'searching'"`
	RecordID     *sharedtypes.RecordID     `bun:"record_id"`
	FailReason   string                    `bun:"fail_reason"`
	CreatedAt    time.Time                 `bun:"created_at,notnull"`
	QueuedAt     *time.Time                `bun:"queued_at"`
	UpdatedAt    time.Time                 `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// GameIDs returns the roster's game identities in roster order.
func (p *PendingMatch) GameIDs() []sharedtypes.GameID {
	ids := make([]sharedtypes.GameID, len(p.Participants))
	for i, part := range p.Participants {
		ids[i] = part.GameID
	}
	return ids
}

// RecordClaim is the durable claimed-record set. Its primary key is what
// makes "exactly one tracker per record" hold across processes.
type RecordClaim struct {
	bun.BaseModel `bun:"table:record_claims,alias:rc"`

	RecordID  sharedtypes.RecordID `bun:"record_id,pk"`
	PendingID uuid.UUID            `bun:"pending_id,type:uuid,notnull"`
	ClaimedAt time.Time            `bun:"claimed_at,nullzero,notnull,default:current_timestamp"`
}

// ConfirmedMatch is the append-only record of a completed reconciliation.
// Never mutated; a manual backfill writes a superseding row under a new id.
type ConfirmedMatch struct {
	bun.BaseModel `bun:"table:confirmed_matches,alias:cm"`

	ID          uuid.UUID                  `bun:"id,pk,type:uuid"`
	PendingID   uuid.UUID                  `bun:"pending_id,type:uuid,notnull"`
	GuildID     sharedtypes.GuildID        `bun:"guild_id,notnull"`
	Category    sharedtypes.Category       `bun:"category,notnull"`
	ChannelID   string                     `bun:"channel_id"`
	RecordID    sharedtypes.RecordID       `bun:"record_id,notnull,unique"`
	Map         string                     `bun:"map"`
	RedScore    int                        `bun:"red_score,notnull"`
	BlueScore   int                        `bun:"blue_score,notnull"`
	Duration    time.Duration              `bun:"duration,notnull"`
	Players     []sharedtypes.PlayerResult `bun:"players,type:jsonb,notnull"`
	Forced      bool                       `bun:"forced,notnull,default:false"`
	StartedAt   time.Time                  `bun:"started_at,notnull"`
	CompletedAt time.Time                  `bun:"completed_at,notnull"`
}
