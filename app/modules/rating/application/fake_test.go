package ratingservice

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	guilddb "github.com/pugscord/pugbot/app/modules/guild/infrastructure/repositories"
	ratingdb "github.com/pugscord/pugbot/app/modules/rating/infrastructure/repositories"
	sharedinterface "github.com/pugscord/pugbot/app/shared/interfaces"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/config"
	ratingmetrics "github.com/pugscord/pugbot/internal/observability/metrics/rating"
	"go.opentelemetry.io/otel/trace/noop"
)

// ------------------------
// Fake Rating Repository
// ------------------------

// FakeRatingRepository keeps the four scope tables in memory with the same
// apply-once semantics as the real one. Func fields override per test.
type FakeRatingRepository struct {
	mu            sync.Mutex
	global        map[sharedtypes.UserID]*ratingdb.GlobalRating
	gameMode      map[sharedtypes.GameMode]map[sharedtypes.UserID]*ratingdb.GameModeRating
	guild         map[sharedtypes.GuildID]map[sharedtypes.UserID]*ratingdb.GuildRating
	guildCategory map[string]map[sharedtypes.UserID]*ratingdb.GuildCategoryRating
	applied       map[sharedtypes.RecordID]*ratingdb.AppliedRecord

	ApplyMatchFunc func(ctx context.Context, record *ratingdb.AppliedRecord, update *ratingdb.MatchRatingUpdate) (bool, error)
	GetGlobalFunc  func(ctx context.Context, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*ratingdb.GlobalRating, error)
}

// NewFakeRatingRepository initializes an empty FakeRatingRepository.
func NewFakeRatingRepository() *FakeRatingRepository {
	return &FakeRatingRepository{
		global:        make(map[sharedtypes.UserID]*ratingdb.GlobalRating),
		gameMode:      make(map[sharedtypes.GameMode]map[sharedtypes.UserID]*ratingdb.GameModeRating),
		guild:         make(map[sharedtypes.GuildID]map[sharedtypes.UserID]*ratingdb.GuildRating),
		guildCategory: make(map[string]map[sharedtypes.UserID]*ratingdb.GuildCategoryRating),
		applied:       make(map[sharedtypes.RecordID]*ratingdb.AppliedRecord),
	}
}

func categoryKey(guildID sharedtypes.GuildID, category sharedtypes.Category) string {
	return string(guildID) + "/" + string(category)
}

// SeedGlobal stores a global rating row directly.
func (f *FakeRatingRepository) SeedGlobal(row ratingdb.GlobalRating) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := row
	f.global[row.UserID] = &cp
}

// Global returns the stored global row, or nil.
func (f *FakeRatingRepository) Global(userID sharedtypes.UserID) *ratingdb.GlobalRating {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.global[userID]; ok {
		cp := *r
		return &cp
	}
	return nil
}

// Guild returns the stored guild row, or nil.
func (f *FakeRatingRepository) Guild(guildID sharedtypes.GuildID, userID sharedtypes.UserID) *ratingdb.GuildRating {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rows, ok := f.guild[guildID]; ok {
		if r, ok := rows[userID]; ok {
			cp := *r
			return &cp
		}
	}
	return nil
}

func (f *FakeRatingRepository) GetGlobal(ctx context.Context, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*ratingdb.GlobalRating, error) {
	if f.GetGlobalFunc != nil {
		return f.GetGlobalFunc(ctx, userIDs)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[sharedtypes.UserID]*ratingdb.GlobalRating)
	for _, id := range userIDs {
		if r, ok := f.global[id]; ok {
			cp := *r
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *FakeRatingRepository) GetGameMode(ctx context.Context, mode sharedtypes.GameMode, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*ratingdb.GameModeRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[sharedtypes.UserID]*ratingdb.GameModeRating)
	for _, id := range userIDs {
		if r, ok := f.gameMode[mode][id]; ok {
			cp := *r
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *FakeRatingRepository) GetGuild(ctx context.Context, guildID sharedtypes.GuildID, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*ratingdb.GuildRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[sharedtypes.UserID]*ratingdb.GuildRating)
	for _, id := range userIDs {
		if r, ok := f.guild[guildID][id]; ok {
			cp := *r
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *FakeRatingRepository) GetGuildCategory(ctx context.Context, guildID sharedtypes.GuildID, category sharedtypes.Category, userIDs []sharedtypes.UserID) (map[sharedtypes.UserID]*ratingdb.GuildCategoryRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[sharedtypes.UserID]*ratingdb.GuildCategoryRating)
	for _, id := range userIDs {
		if r, ok := f.guildCategory[categoryKey(guildID, category)][id]; ok {
			cp := *r
			out[id] = &cp
		}
	}
	return out, nil
}

func (f *FakeRatingRepository) ApplyMatch(ctx context.Context, record *ratingdb.AppliedRecord, update *ratingdb.MatchRatingUpdate) (bool, error) {
	if f.ApplyMatchFunc != nil {
		return f.ApplyMatchFunc(ctx, record, update)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, done := f.applied[record.RecordID]; done {
		return false, nil
	}
	cp := *record
	f.applied[record.RecordID] = &cp

	for _, row := range update.Global {
		r := row
		f.global[row.UserID] = &r
	}
	for _, row := range update.GameMode {
		if f.gameMode[row.Mode] == nil {
			f.gameMode[row.Mode] = make(map[sharedtypes.UserID]*ratingdb.GameModeRating)
		}
		r := row
		f.gameMode[row.Mode][row.UserID] = &r
	}
	for _, row := range update.Guild {
		if f.guild[row.GuildID] == nil {
			f.guild[row.GuildID] = make(map[sharedtypes.UserID]*ratingdb.GuildRating)
		}
		r := row
		f.guild[row.GuildID][row.UserID] = &r
	}
	for _, row := range update.GuildCategory {
		key := categoryKey(row.GuildID, row.Category)
		if f.guildCategory[key] == nil {
			f.guildCategory[key] = make(map[sharedtypes.UserID]*ratingdb.GuildCategoryRating)
		}
		r := row
		f.guildCategory[key][row.UserID] = &r
	}
	return true, nil
}

func (f *FakeRatingRepository) IsApplied(ctx context.Context, recordID sharedtypes.RecordID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, done := f.applied[recordID]
	return done, nil
}

func (f *FakeRatingRepository) TopGlobal(ctx context.Context, limit int) ([]ratingdb.GlobalRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ratingdb.GlobalRating, 0, len(f.global))
	for _, r := range f.global {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeRatingRepository) TopGameMode(ctx context.Context, mode sharedtypes.GameMode, limit int) ([]ratingdb.GameModeRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ratingdb.GameModeRating, 0, len(f.gameMode[mode]))
	for _, r := range f.gameMode[mode] {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeRatingRepository) TopGuild(ctx context.Context, guildID sharedtypes.GuildID, limit int) ([]ratingdb.GuildRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ratingdb.GuildRating, 0, len(f.guild[guildID]))
	for _, r := range f.guild[guildID] {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeRatingRepository) TopGuildCategory(ctx context.Context, guildID sharedtypes.GuildID, category sharedtypes.Category, limit int) ([]ratingdb.GuildCategoryRating, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.guildCategory[categoryKey(guildID, category)]
	out := make([]ratingdb.GuildCategoryRating, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ ratingdb.Repository = (*FakeRatingRepository)(nil)

// ------------------------
// Fake collaborators
// ------------------------

// FakeGuildReader defaults to a guild announcing the global scope with no
// dedicated results channel.
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

var _ sharedinterface.GuildConfigReader = (*FakeGuildReader)(nil)

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

var _ sharedinterface.Notifier = (*FakeNotifier)(nil)

// ------------------------
// Test harness
// ------------------------

func testRatingConfig() config.RatingConfig {
	return config.RatingConfig{
		Scale:               300,
		BaseMagnitude:       40,
		ShutoutMultiplier:   1.2,
		ShortMatchThreshold: 25 * time.Minute,
	}
}

// ratingFixture bundles the service with every fake collaborator.
type ratingFixture struct {
	svc      *RatingService
	repo     *FakeRatingRepository
	guilds   *FakeGuildReader
	notifier *FakeNotifier
}

func newRatingFixture() *ratingFixture {
	f := &ratingFixture{
		repo:     NewFakeRatingRepository(),
		guilds:   &FakeGuildReader{},
		notifier: &FakeNotifier{},
	}
	f.svc = NewRatingService(
		f.repo,
		f.guilds,
		f.notifier,
		slog.New(slog.DiscardHandler),
		ratingmetrics.NoOpMetrics{},
		noop.NewTracerProvider().Tracer("test"),
		testRatingConfig(),
	)
	f.svc.now = func() time.Time { return time.Date(2025, 7, 14, 21, 0, 0, 0, time.UTC) }
	return f
}

func newTestRatingService() (*RatingService, *FakeRatingRepository) {
	f := newRatingFixture()
	return f.svc, f.repo
}
