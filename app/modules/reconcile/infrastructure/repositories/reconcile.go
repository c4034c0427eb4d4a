package reconciledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/uptrace/bun"
)

// ReconcileDBImpl is the bun-backed Repository.
type ReconcileDBImpl struct {
	DB *bun.DB
}

var _ Repository = (*ReconcileDBImpl)(nil)

func (db *ReconcileDBImpl) InsertPending(ctx context.Context, match *PendingMatch) error {
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	if match.State == "" {
		match.State = StateSearching
	}

	_, err := db.DB.NewInsert().
		Model(match).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert pending match: %w", err)
	}
	return nil
}

func (db *ReconcileDBImpl) ListByState(ctx context.Context, state MatchState) ([]PendingMatch, error) {
	var matches []PendingMatch
	err := db.DB.NewSelect().
		Model(&matches).
		Where("state = ?", state).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s matches: %w", state, err)
	}
	return matches, nil
}

func (db *ReconcileDBImpl) GetPending(ctx context.Context, id uuid.UUID) (*PendingMatch, error) {
	var match PendingMatch
	err := db.DB.NewSelect().
		Model(&match).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch pending match %s: %w", id, err)
	}
	return &match, nil
}

func (db *ReconcileDBImpl) MarkQueued(ctx context.Context, id uuid.UUID, recordID sharedtypes.RecordID, queuedAt time.Time) error {
	res, err := db.DB.NewUpdate().
		Model((*PendingMatch)(nil)).
		Set("state = ?", StateQueued).
		Set("record_id = ?", recordID).
		Set("queued_at = ?", queuedAt).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("state = ?", StateSearching).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to queue match %s: %w", id, err)
	}
	return requireOneRow(res)
}

func (db *ReconcileDBImpl) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	res, err := db.DB.NewUpdate().
		Model((*PendingMatch)(nil)).
		Set("state = ?", StateCompleted).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("state = ?", StateQueued).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete match %s: %w", id, err)
	}
	return requireOneRow(res)
}

func (db *ReconcileDBImpl) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res, err := db.DB.NewUpdate().
		Model((*PendingMatch)(nil)).
		Set("state = ?", StateFailed).
		Set("fail_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("state IN (?)", bun.In([]MatchState{StateSearching, StateQueued})).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to fail match %s: %w", id, err)
	}
	return requireOneRow(res)
}

// ClaimRecord is the insert-if-absent on the claimed-record set. Running it
// through the database rather than process memory is what keeps two sweeps
// in different processes from binding the same record.
func (db *ReconcileDBImpl) ClaimRecord(ctx context.Context, recordID sharedtypes.RecordID, pendingID uuid.UUID) (bool, error) {
	claim := RecordClaim{
		RecordID:  recordID,
		PendingID: pendingID,
		ClaimedAt: time.Now().UTC(),
	}

	res, err := db.DB.NewInsert().
		Model(&claim).
		On("CONFLICT (record_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to claim record %d: %w", recordID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result for record %d: %w", recordID, err)
	}
	return affected == 1, nil
}

func (db *ReconcileDBImpl) ReleaseClaim(ctx context.Context, recordID sharedtypes.RecordID) error {
	_, err := db.DB.NewDelete().
		Model((*RecordClaim)(nil)).
		Where("record_id = ?", recordID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to release claim on record %d: %w", recordID, err)
	}
	return nil
}

func (db *ReconcileDBImpl) IsRecordClaimed(ctx context.Context, recordID sharedtypes.RecordID) (bool, error) {
	exists, err := db.DB.NewSelect().
		Model((*RecordClaim)(nil)).
		Where("record_id = ?", recordID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check claim on record %d: %w", recordID, err)
	}
	return exists, nil
}

func (db *ReconcileDBImpl) InsertConfirmed(ctx context.Context, match *ConfirmedMatch) (bool, error) {
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}

	res, err := db.DB.NewInsert().
		Model(match).
		On("CONFLICT (record_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to insert confirmed match for record %d: %w", match.RecordID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result for record %d: %w", match.RecordID, err)
	}
	return affected == 1, nil
}

func (db *ReconcileDBImpl) GetConfirmedByRecordID(ctx context.Context, recordID sharedtypes.RecordID) (*ConfirmedMatch, error) {
	var match ConfirmedMatch
	err := db.DB.NewSelect().
		Model(&match).
		Where("record_id = ?", recordID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch confirmed match for record %d: %w", recordID, err)
	}
	return &match, nil
}

func requireOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStateConflict
	}
	return nil
}
