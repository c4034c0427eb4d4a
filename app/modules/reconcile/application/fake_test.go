package reconcileservice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	guilddb "github.com/pugscord/pugbot/app/modules/guild/infrastructure/repositories"
	"github.com/pugscord/pugbot/app/modules/logclient"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/config"
	reconcilemetrics "github.com/pugscord/pugbot/internal/observability/metrics/reconcile"
	"go.opentelemetry.io/otel/trace/noop"
)

// ------------------------
// Fake Reconcile Repository
// ------------------------

// FakeReconcileRepository is an in-memory Repository with the same transition
// semantics as the real one. Every method can be overridden per test via its
// Func field; calls are tracked via Trace.
type FakeReconcileRepository struct {
	mu        sync.Mutex
	trace     []string
	pending   map[uuid.UUID]*reconciledb.PendingMatch
	claims    map[sharedtypes.RecordID]uuid.UUID
	confirmed map[sharedtypes.RecordID]*reconciledb.ConfirmedMatch

	InsertPendingFunc   func(ctx context.Context, match *reconciledb.PendingMatch) error
	ListByStateFunc     func(ctx context.Context, state reconciledb.MatchState) ([]reconciledb.PendingMatch, error)
	MarkQueuedFunc      func(ctx context.Context, id uuid.UUID, recordID sharedtypes.RecordID, queuedAt time.Time) error
	MarkCompletedFunc   func(ctx context.Context, id uuid.UUID) error
	MarkFailedFunc      func(ctx context.Context, id uuid.UUID, reason string) error
	ClaimRecordFunc     func(ctx context.Context, recordID sharedtypes.RecordID, pendingID uuid.UUID) (bool, error)
	ReleaseClaimFunc    func(ctx context.Context, recordID sharedtypes.RecordID) error
	IsRecordClaimedFunc func(ctx context.Context, recordID sharedtypes.RecordID) (bool, error)
	InsertConfirmedFunc func(ctx context.Context, match *reconciledb.ConfirmedMatch) (bool, error)
}

// NewFakeReconcileRepository initializes an empty FakeReconcileRepository.
func NewFakeReconcileRepository() *FakeReconcileRepository {
	return &FakeReconcileRepository{
		pending:   make(map[uuid.UUID]*reconciledb.PendingMatch),
		claims:    make(map[sharedtypes.RecordID]uuid.UUID),
		confirmed: make(map[sharedtypes.RecordID]*reconciledb.ConfirmedMatch),
	}
}

func (f *FakeReconcileRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of repository methods called.
func (f *FakeReconcileRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Seed stores a pending match directly, bypassing InsertPending.
func (f *FakeReconcileRepository) Seed(match *reconciledb.PendingMatch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *match
	f.pending[match.ID] = &cp
}

// Get returns the stored pending match, or nil.
func (f *FakeReconcileRepository) Get(id uuid.UUID) *reconciledb.PendingMatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.pending[id]; ok {
		cp := *m
		return &cp
	}
	return nil
}

// Confirmed returns the stored confirmed match for a record, or nil.
func (f *FakeReconcileRepository) Confirmed(recordID sharedtypes.RecordID) *reconciledb.ConfirmedMatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.confirmed[recordID]; ok {
		cp := *m
		return &cp
	}
	return nil
}

func (f *FakeReconcileRepository) InsertPending(ctx context.Context, match *reconciledb.PendingMatch) error {
	f.record("InsertPending")
	if f.InsertPendingFunc != nil {
		return f.InsertPendingFunc(ctx, match)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *match
	f.pending[match.ID] = &cp
	return nil
}

func (f *FakeReconcileRepository) ListByState(ctx context.Context, state reconciledb.MatchState) ([]reconciledb.PendingMatch, error) {
	f.record("ListByState")
	if f.ListByStateFunc != nil {
		return f.ListByStateFunc(ctx, state)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []reconciledb.PendingMatch
	for _, m := range f.pending {
		if m.State == state {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *FakeReconcileRepository) GetPending(ctx context.Context, id uuid.UUID) (*reconciledb.PendingMatch, error) {
	f.record("GetPending")
	if m := f.Get(id); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("pending match %s not found", id)
}

func (f *FakeReconcileRepository) MarkQueued(ctx context.Context, id uuid.UUID, recordID sharedtypes.RecordID, queuedAt time.Time) error {
	f.record("MarkQueued")
	if f.MarkQueuedFunc != nil {
		return f.MarkQueuedFunc(ctx, id, recordID, queuedAt)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.pending[id]
	if !ok || m.State != reconciledb.StateSearching {
		return reconciledb.ErrStateConflict
	}
	m.State = reconciledb.StateQueued
	m.RecordID = &recordID
	m.QueuedAt = &queuedAt
	return nil
}

func (f *FakeReconcileRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	f.record("MarkCompleted")
	if f.MarkCompletedFunc != nil {
		return f.MarkCompletedFunc(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.pending[id]
	if !ok || m.State != reconciledb.StateQueued {
		return reconciledb.ErrStateConflict
	}
	m.State = reconciledb.StateCompleted
	return nil
}

func (f *FakeReconcileRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	f.record("MarkFailed")
	if f.MarkFailedFunc != nil {
		return f.MarkFailedFunc(ctx, id, reason)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.pending[id]
	if !ok || (m.State != reconciledb.StateSearching && m.State != reconciledb.StateQueued) {
		return reconciledb.ErrStateConflict
	}
	m.State = reconciledb.StateFailed
	m.FailReason = reason
	return nil
}

func (f *FakeReconcileRepository) ClaimRecord(ctx context.Context, recordID sharedtypes.RecordID, pendingID uuid.UUID) (bool, error) {
	f.record("ClaimRecord")
	if f.ClaimRecordFunc != nil {
		return f.ClaimRecordFunc(ctx, recordID, pendingID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.claims[recordID]; held {
		return false, nil
	}
	f.claims[recordID] = pendingID
	return true, nil
}

func (f *FakeReconcileRepository) ReleaseClaim(ctx context.Context, recordID sharedtypes.RecordID) error {
	f.record("ReleaseClaim")
	if f.ReleaseClaimFunc != nil {
		return f.ReleaseClaimFunc(ctx, recordID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claims, recordID)
	return nil
}

func (f *FakeReconcileRepository) IsRecordClaimed(ctx context.Context, recordID sharedtypes.RecordID) (bool, error) {
	f.record("IsRecordClaimed")
	if f.IsRecordClaimedFunc != nil {
		return f.IsRecordClaimedFunc(ctx, recordID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, held := f.claims[recordID]
	return held, nil
}

func (f *FakeReconcileRepository) InsertConfirmed(ctx context.Context, match *reconciledb.ConfirmedMatch) (bool, error) {
	f.record("InsertConfirmed")
	if f.InsertConfirmedFunc != nil {
		return f.InsertConfirmedFunc(ctx, match)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.confirmed[match.RecordID]; exists {
		return false, nil
	}
	cp := *match
	f.confirmed[match.RecordID] = &cp
	return true, nil
}

func (f *FakeReconcileRepository) GetConfirmedByRecordID(ctx context.Context, recordID sharedtypes.RecordID) (*reconciledb.ConfirmedMatch, error) {
	f.record("GetConfirmedByRecordID")
	if m := f.Confirmed(recordID); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("confirmed match for record %d not found", recordID)
}

var _ reconciledb.Repository = (*FakeReconcileRepository)(nil)

// ------------------------
// Fake Log Client
// ------------------------

// FakeLogClient stubs the match-record index. Defaults: empty search results
// and ErrNotFound on fetch.
type FakeLogClient struct {
	mu          sync.Mutex
	searchCalls [][]sharedtypes.GameID
	fetchCalls  []sharedtypes.RecordID

	SearchFunc    func(ctx context.Context, players []sharedtypes.GameID, limit int) ([]logclient.CandidateSummary, error)
	FetchByIDFunc func(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error)
}

func (f *FakeLogClient) Search(ctx context.Context, players []sharedtypes.GameID, limit int) ([]logclient.CandidateSummary, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, players)
	f.mu.Unlock()
	if f.SearchFunc != nil {
		return f.SearchFunc(ctx, players, limit)
	}
	return nil, nil
}

func (f *FakeLogClient) FetchByID(ctx context.Context, id sharedtypes.RecordID) (*logclient.Record, error) {
	f.mu.Lock()
	f.fetchCalls = append(f.fetchCalls, id)
	f.mu.Unlock()
	if f.FetchByIDFunc != nil {
		return f.FetchByIDFunc(ctx, id)
	}
	return nil, logclient.ErrNotFound
}

// SearchCalls returns the rosters passed to Search, in call order.
func (f *FakeLogClient) SearchCalls() [][]sharedtypes.GameID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]sharedtypes.GameID, len(f.searchCalls))
	copy(out, f.searchCalls)
	return out
}

// FetchCalls returns the record ids passed to FetchByID, in call order.
func (f *FakeLogClient) FetchCalls() []sharedtypes.RecordID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sharedtypes.RecordID, len(f.fetchCalls))
	copy(out, f.fetchCalls)
	return out
}

var _ logclient.Client = (*FakeLogClient)(nil)

// ------------------------
// Fake collaborators
// ------------------------

// FakeGuildReader defaults to an enabled guild.
type FakeGuildReader struct {
	GetConfigFunc func(ctx context.Context, guildID sharedtypes.GuildID) (*guilddb.GuildConfig, error)
}

func (f *FakeGuildReader) GetConfig(ctx context.Context, guildID sharedtypes.GuildID) (*guilddb.GuildConfig, error) {
	if f.GetConfigFunc != nil {
		return f.GetConfigFunc(ctx, guildID)
	}
	cfg := guilddb.DefaultConfig(guildID)
	cfg.Enabled = true
	return cfg, nil
}

// FakeUserLookup resolves every game identity to "u-<gameID>" unless
// overridden.
type FakeUserLookup struct {
	ResolveFunc      func(ctx context.Context, gameID sharedtypes.GameID) (*sharedtypes.UserID, error)
	ResolveBatchFunc func(ctx context.Context, gameIDs []sharedtypes.GameID) (map[sharedtypes.GameID]sharedtypes.UserID, error)
}

func (f *FakeUserLookup) Resolve(ctx context.Context, gameID sharedtypes.GameID) (*sharedtypes.UserID, error) {
	if f.ResolveFunc != nil {
		return f.ResolveFunc(ctx, gameID)
	}
	id := sharedtypes.UserID("u-" + string(gameID))
	return &id, nil
}

func (f *FakeUserLookup) ResolveBatch(ctx context.Context, gameIDs []sharedtypes.GameID) (map[sharedtypes.GameID]sharedtypes.UserID, error) {
	if f.ResolveBatchFunc != nil {
		return f.ResolveBatchFunc(ctx, gameIDs)
	}
	out := make(map[sharedtypes.GameID]sharedtypes.UserID, len(gameIDs))
	for _, id := range gameIDs {
		out[id] = sharedtypes.UserID("u-" + string(id))
	}
	return out, nil
}

// FakeNotifier records delivered notifications.
type FakeNotifier struct {
	mu       sync.Mutex
	messages []string
	channels []string

	NotifyFunc func(ctx context.Context, guildID sharedtypes.GuildID, channelID, text string) error
}

func (f *FakeNotifier) Notify(ctx context.Context, guildID sharedtypes.GuildID, channelID, text string) error {
	f.mu.Lock()
	f.messages = append(f.messages, text)
	f.channels = append(f.channels, channelID)
	f.mu.Unlock()
	if f.NotifyFunc != nil {
		return f.NotifyFunc(ctx, guildID, channelID, text)
	}
	return nil
}

// Messages returns the notification texts delivered so far.
func (f *FakeNotifier) Messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.messages))
	copy(out, f.messages)
	return out
}

// Channels returns the destination channel of each delivered notification.
func (f *FakeNotifier) Channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.channels))
	copy(out, f.channels)
	return out
}

// FakeEventBus records published messages by topic.
type FakeEventBus struct {
	mu        sync.Mutex
	published map[string][]*message.Message

	PublishFunc func(topic string, messages ...*message.Message) error
}

func NewFakeEventBus() *FakeEventBus {
	return &FakeEventBus{published: make(map[string][]*message.Message)}
}

func (f *FakeEventBus) Publish(topic string, messages ...*message.Message) error {
	f.mu.Lock()
	f.published[topic] = append(f.published[topic], messages...)
	f.mu.Unlock()
	if f.PublishFunc != nil {
		return f.PublishFunc(topic, messages...)
	}
	return nil
}

func (f *FakeEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	close(ch)
	return ch, nil
}

func (f *FakeEventBus) CreateStream(ctx context.Context, streamName string) error { return nil }

func (f *FakeEventBus) Close() error { return nil }

// Published returns the messages published on a topic.
func (f *FakeEventBus) Published(topic string) []*message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*message.Message, len(f.published[topic]))
	copy(out, f.published[topic])
	return out
}

// ------------------------
// Test harness
// ------------------------

type serviceFixture struct {
	svc      *ReconcileService
	repo     *FakeReconcileRepository
	logs     *FakeLogClient
	guilds   *FakeGuildReader
	users    *FakeUserLookup
	notifier *FakeNotifier
	bus      *FakeEventBus
	now      time.Time
}

func testReconcileConfig() config.ReconciliationConfig {
	return config.ReconciliationConfig{
		SearchInterval:     time.Minute,
		QueueInterval:      2 * time.Minute,
		SearchHorizon:      6 * time.Hour,
		QueueCeiling:       time.Hour,
		ClockSkewTolerance: 240 * time.Second,
		RosterOverlapRatio: 0.5,
		SearchLimit:        10,
		Completion:         config.DefaultCompletionRules(),
	}
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		repo:     NewFakeReconcileRepository(),
		logs:     &FakeLogClient{},
		guilds:   &FakeGuildReader{},
		users:    &FakeUserLookup{},
		notifier: &FakeNotifier{},
		bus:      NewFakeEventBus(),
		now:      time.Date(2025, 7, 14, 20, 0, 0, 0, time.UTC),
	}

	f.svc = NewReconcileService(
		f.repo,
		f.logs,
		f.guilds,
		f.users,
		f.notifier,
		f.bus,
		slog.New(slog.DiscardHandler),
		reconcilemetrics.NoOpMetrics{},
		noop.NewTracerProvider().Tracer("test"),
		testReconcileConfig(),
	)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func testRoster(n int) []sharedtypes.Participant {
	roster := make([]sharedtypes.Participant, n)
	for i := range roster {
		roster[i] = sharedtypes.Participant{GameID: sharedtypes.GameID(fmt.Sprintf("7656119%07d", i+1))}
	}
	return roster
}

func (f *serviceFixture) seedMatch(state reconciledb.MatchState, rosterSize int) *reconciledb.PendingMatch {
	match := &reconciledb.PendingMatch{
		ID:           uuid.New(),
		GuildID:      "guild-1234",
		Category:     "NA-6s",
		ChannelID:    "chan-1",
		Participants: testRoster(rosterSize),
		State:        state,
		CreatedAt:    f.now.Add(-10 * time.Minute),
	}
	if state == reconciledb.StateQueued {
		queuedAt := f.now.Add(-5 * time.Minute)
		match.QueuedAt = &queuedAt
	}
	f.repo.Seed(match)
	return match
}

// completeRecord builds a finished cp_ record whose roster matches the given
// participants.
func completeRecord(id sharedtypes.RecordID, startedAt time.Time, roster []sharedtypes.Participant) *logclient.Record {
	rec := &logclient.Record{
		ID:        id,
		Map:       "cp_process_f12",
		Title:     "na.serveme.tf #529842",
		StartedAt: startedAt,
		Duration:  28 * time.Minute,
		RedScore:  5,
		BlueScore: 2,
		Players:   make(map[sharedtypes.GameID]logclient.PlayerRecord, len(roster)),
	}
	for i, p := range roster {
		team := sharedtypes.TeamRed
		if i%2 == 1 {
			team = sharedtypes.TeamBlue
		}
		rec.Players[p.GameID] = logclient.PlayerRecord{Team: team}
	}
	return rec
}
