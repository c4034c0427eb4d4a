package reconcileservice

import (
	"context"
	"strings"
	"testing"
	"time"

	guilddb "github.com/pugscord/pugbot/app/modules/guild/infrastructure/repositories"
	"github.com/pugscord/pugbot/app/modules/logclient"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/internal/utils"
)

// bindRecord puts a seeded match into the queued state with a claimed record.
func (f *serviceFixture) bindRecord(t *testing.T, match *reconciledb.PendingMatch, rec *logclient.Record) {
	t.Helper()
	if ok, err := f.repo.ClaimRecord(context.Background(), rec.ID, match.ID); err != nil || !ok {
		t.Fatalf("claim record: ok=%v err=%v", ok, err)
	}
	stored := f.repo.Get(match.ID)
	stored.RecordID = &rec.ID
	f.repo.Seed(stored)
}

func TestQueueSweep_CompletesFinishedRecord(t *testing.T) {
	f := newServiceFixture()
	match := f.seedMatch(reconciledb.StateQueued, 12)
	rec := completeRecord(529842, match.CreatedAt.Add(time.Minute), match.Participants)
	f.bindRecord(t, match, rec)

	f.logs.FetchByIDFunc = func(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error) {
		return rec, nil
	}

	stats, err := f.svc.QueueSweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Completed != 1 || stats.Failed != 0 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 1 completed", stats)
	}

	if stored := f.repo.Get(match.ID); stored.State != reconciledb.StateCompleted {
		t.Errorf("state: got %s, want completed", stored.State)
	}

	confirmed := f.repo.Confirmed(rec.ID)
	if confirmed == nil {
		t.Fatal("confirmed row not written")
	}
	if confirmed.Forced {
		t.Error("completion must not be marked forced")
	}
	if confirmed.RedScore != 5 || confirmed.BlueScore != 2 {
		t.Errorf("scoreline: got %d-%d, want 5-2", confirmed.RedScore, confirmed.BlueScore)
	}

	published := f.bus.Published(sharedevents.MatchCompletedV1)
	if len(published) != 1 {
		t.Fatalf("expected 1 completion event, got %d", len(published))
	}
	payload, err := utils.UnmarshalPayload[sharedevents.MatchCompletedPayloadV1](published[0])
	if err != nil {
		t.Fatalf("decode completion event: %v", err)
	}
	if payload.RecordID != rec.ID || len(payload.Players) != 12 {
		t.Errorf("completion payload = %+v", payload)
	}
	for _, p := range payload.Players {
		if p.UserID == "" {
			t.Errorf("player %s not resolved", p.GameID)
		}
	}

	msgs := f.notifier.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(msgs))
	}
	if !strings.Contains(msgs[0], "Red 5 - 2 Blue") {
		t.Errorf("notification text = %q", msgs[0])
	}
	if strings.Contains(msgs[0], "queue ceiling") {
		t.Errorf("normal completion must not mention the ceiling: %q", msgs[0])
	}
}

func TestQueueSweep_IncompleteWithinCeilingWaits(t *testing.T) {
	f := newServiceFixture()
	match := f.seedMatch(reconciledb.StateQueued, 12)
	rec := completeRecord(114, match.CreatedAt.Add(time.Minute), match.Participants)
	rec.RedScore, rec.BlueScore = 2, 1
	rec.Duration = 12 * time.Minute
	f.bindRecord(t, match, rec)

	f.logs.FetchByIDFunc = func(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error) {
		return rec, nil
	}

	stats, err := f.svc.QueueSweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Skipped != 1 || stats.Completed != 0 {
		t.Errorf("stats = %+v, want 1 skipped", stats)
	}
	if stored := f.repo.Get(match.ID); stored.State != reconciledb.StateQueued {
		t.Errorf("state: got %s, want queued", stored.State)
	}
}

func TestQueueSweep_CeilingForcesCompletion(t *testing.T) {
	f := newServiceFixture()
	match := f.seedMatch(reconciledb.StateQueued, 12)
	rec := completeRecord(115, match.CreatedAt.Add(time.Minute), match.Participants)
	rec.RedScore, rec.BlueScore = 2, 1
	rec.Duration = 12 * time.Minute
	f.bindRecord(t, match, rec)

	f.logs.FetchByIDFunc = func(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error) {
		return rec, nil
	}

	f.now = match.QueuedAt.Add(time.Hour + time.Minute)

	stats, err := f.svc.QueueSweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Completed != 1 {
		t.Errorf("stats = %+v, want 1 completed", stats)
	}

	confirmed := f.repo.Confirmed(rec.ID)
	if confirmed == nil {
		t.Fatal("confirmed row not written")
	}
	if !confirmed.Forced {
		t.Error("ceiling completion must be marked forced")
	}
	if confirmed.RedScore != 2 || confirmed.BlueScore != 1 {
		t.Errorf("forced completion must keep the partial scoreline, got %d-%d", confirmed.RedScore, confirmed.BlueScore)
	}

	msgs := f.notifier.Messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "queue ceiling") {
		t.Errorf("forced completion notification = %v", msgs)
	}
}

func TestQueueSweep_TransientFetchLeavesQueued(t *testing.T) {
	f := newServiceFixture()
	match := f.seedMatch(reconciledb.StateQueued, 12)
	rec := completeRecord(116, match.CreatedAt.Add(time.Minute), match.Participants)
	f.bindRecord(t, match, rec)

	f.logs.FetchByIDFunc = func(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error) {
		return nil, &logclient.TransientError{Op: "fetch", Err: context.DeadlineExceeded}
	}

	stats, err := f.svc.QueueSweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 1 skipped", stats)
	}
	if stored := f.repo.Get(match.ID); stored.State != reconciledb.StateQueued {
		t.Errorf("state: got %s, want queued", stored.State)
	}
	if claimed, _ := f.repo.IsRecordClaimed(context.Background(), rec.ID); !claimed {
		t.Error("claim must survive a transient fetch failure")
	}
}

func TestQueueSweep_VanishedRecordFailsMatch(t *testing.T) {
	f := newServiceFixture()
	match := f.seedMatch(reconciledb.StateQueued, 12)
	rec := completeRecord(117, match.CreatedAt.Add(time.Minute), match.Participants)
	f.bindRecord(t, match, rec)

	f.logs.FetchByIDFunc = func(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error) {
		return nil, logclient.ErrNotFound
	}

	stats, err := f.svc.QueueSweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("stats = %+v, want 1 failed", stats)
	}
	if stored := f.repo.Get(match.ID); stored.State != reconciledb.StateFailed {
		t.Errorf("state: got %s, want failed", stored.State)
	}
	if claimed, _ := f.repo.IsRecordClaimed(context.Background(), rec.ID); claimed {
		t.Error("dead binding's claim must be released")
	}
}

func TestQueueSweep_MissingBindingFailsMatch(t *testing.T) {
	f := newServiceFixture()
	match := f.seedMatch(reconciledb.StateQueued, 12)

	stats, err := f.svc.QueueSweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Failed != 1 {
		t.Errorf("stats = %+v, want 1 failed", stats)
	}
	if stored := f.repo.Get(match.ID); stored.State != reconciledb.StateFailed {
		t.Errorf("state: got %s, want failed", stored.State)
	}
	if calls := f.logs.FetchCalls(); len(calls) != 0 {
		t.Errorf("expected no fetches for an unbound match, got %d", len(calls))
	}
}

func TestQueueSweep_ResumesAfterCrashBetweenInsertAndTransition(t *testing.T) {
	f := newServiceFixture()
	match := f.seedMatch(reconciledb.StateQueued, 12)
	rec := completeRecord(118, match.CreatedAt.Add(time.Minute), match.Participants)
	f.bindRecord(t, match, rec)

	// Simulate a previous attempt that crashed after writing the confirmed
	// row but before the state transition.
	if inserted, err := f.repo.InsertConfirmed(context.Background(), &reconciledb.ConfirmedMatch{
		PendingID: match.ID,
		GuildID:   match.GuildID,
		RecordID:  rec.ID,
	}); err != nil || !inserted {
		t.Fatalf("seed confirmed row: inserted=%v err=%v", inserted, err)
	}

	f.logs.FetchByIDFunc = func(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error) {
		return rec, nil
	}

	stats, err := f.svc.QueueSweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Completed != 1 {
		t.Errorf("stats = %+v, want 1 completed", stats)
	}
	if stored := f.repo.Get(match.ID); stored.State != reconciledb.StateCompleted {
		t.Errorf("state: got %s, want completed", stored.State)
	}
	// The event still goes out; the rating engine deduplicates on record id.
	if published := f.bus.Published(sharedevents.MatchCompletedV1); len(published) != 1 {
		t.Errorf("expected 1 completion event, got %d", len(published))
	}
}

func TestQueueSweep_UnregisteredPlayersKeptWithEmptyUserID(t *testing.T) {
	f := newServiceFixture()
	match := f.seedMatch(reconciledb.StateQueued, 12)
	rec := completeRecord(119, match.CreatedAt.Add(time.Minute), match.Participants)
	f.bindRecord(t, match, rec)

	unregistered := match.Participants[3].GameID
	f.users.ResolveBatchFunc = func(ctx context.Context, gameIDs []sharedtypes.GameID) (map[sharedtypes.GameID]sharedtypes.UserID, error) {
		out := make(map[sharedtypes.GameID]sharedtypes.UserID)
		for _, id := range gameIDs {
			if id == unregistered {
				continue
			}
			out[id] = sharedtypes.UserID("u-" + string(id))
		}
		return out, nil
	}
	f.logs.FetchByIDFunc = func(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error) {
		return rec, nil
	}

	if _, err := f.svc.QueueSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	published := f.bus.Published(sharedevents.MatchCompletedV1)
	if len(published) != 1 {
		t.Fatalf("expected 1 completion event, got %d", len(published))
	}
	payload, err := utils.UnmarshalPayload[sharedevents.MatchCompletedPayloadV1](published[0])
	if err != nil {
		t.Fatalf("decode completion event: %v", err)
	}
	if len(payload.Players) != 12 {
		t.Fatalf("expected all 12 players in the payload, got %d", len(payload.Players))
	}
	empty := 0
	for _, p := range payload.Players {
		if p.UserID == "" {
			empty++
			if p.GameID != unregistered {
				t.Errorf("wrong player left unresolved: %s", p.GameID)
			}
		}
	}
	if empty != 1 {
		t.Errorf("expected exactly 1 unresolved player, got %d", empty)
	}
}

func TestQueueSweep_NotificationRoutedToResultsChannel(t *testing.T) {
	f := newServiceFixture()
	f.guilds.GetConfigFunc = func(ctx context.Context, guildID sharedtypes.GuildID) (*guilddb.GuildConfig, error) {
		cfg := guilddb.DefaultConfig(guildID)
		cfg.Enabled = true
		cfg.ResultsChannelID = "chan-results"
		return cfg, nil
	}
	match := f.seedMatch(reconciledb.StateQueued, 12)
	rec := completeRecord(529842, match.CreatedAt.Add(time.Minute), match.Participants)
	f.bindRecord(t, match, rec)

	f.logs.FetchByIDFunc = func(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error) {
		return rec, nil
	}

	if _, err := f.svc.QueueSweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	channels := f.notifier.Channels()
	if len(channels) != 1 || channels[0] != "chan-results" {
		t.Errorf("notification channels = %v, want [chan-results]", channels)
	}
}
