package ratinghandlers

import (
	"context"

	ratingservice "github.com/pugscord/pugbot/app/modules/rating/application"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
)

// FakeRatingService provides a programmable stub for the ratingservice.Service
// interface.
type FakeRatingService struct {
	trace []string

	ApplyMatchFunc          func(ctx context.Context, payload sharedevents.MatchCompletedPayloadV1) (*sharedevents.RatingUpdatedPayloadV1, error)
	LeaderboardFunc         func(ctx context.Context, query ratingservice.LeaderboardQuery) ([]ratingservice.LeaderboardEntry, error)
	LeaderboardChartPNGFunc func(ctx context.Context, query ratingservice.LeaderboardQuery) ([]byte, error)
	LeaderboardWorkbookFunc func(ctx context.Context, query ratingservice.LeaderboardQuery) ([]byte, error)
}

func (f *FakeRatingService) record(step string) {
	f.trace = append(f.trace, step)
}

// Trace returns the sequence of service methods called.
func (f *FakeRatingService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRatingService) ApplyMatch(ctx context.Context, payload sharedevents.MatchCompletedPayloadV1) (*sharedevents.RatingUpdatedPayloadV1, error) {
	f.record("ApplyMatch")
	if f.ApplyMatchFunc != nil {
		return f.ApplyMatchFunc(ctx, payload)
	}
	return &sharedevents.RatingUpdatedPayloadV1{GuildID: payload.GuildID, RecordID: payload.RecordID}, nil
}

func (f *FakeRatingService) Leaderboard(ctx context.Context, query ratingservice.LeaderboardQuery) ([]ratingservice.LeaderboardEntry, error) {
	f.record("Leaderboard")
	if f.LeaderboardFunc != nil {
		return f.LeaderboardFunc(ctx, query)
	}
	return nil, nil
}

func (f *FakeRatingService) LeaderboardChartPNG(ctx context.Context, query ratingservice.LeaderboardQuery) ([]byte, error) {
	f.record("LeaderboardChartPNG")
	if f.LeaderboardChartPNGFunc != nil {
		return f.LeaderboardChartPNGFunc(ctx, query)
	}
	return nil, nil
}

func (f *FakeRatingService) LeaderboardWorkbook(ctx context.Context, query ratingservice.LeaderboardQuery) ([]byte, error) {
	f.record("LeaderboardWorkbook")
	if f.LeaderboardWorkbookFunc != nil {
		return f.LeaderboardWorkbookFunc(ctx, query)
	}
	return nil, nil
}

var _ ratingservice.Service = (*FakeRatingService)(nil)
