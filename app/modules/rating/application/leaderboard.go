package ratingservice

import (
	"context"
	"fmt"
	"math"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

const defaultLeaderboardLimit = 25

// Leaderboard reads one scope's standings.
func (s *RatingService) Leaderboard(ctx context.Context, query LeaderboardQuery) ([]LeaderboardEntry, error) {
	return withTelemetry(s, ctx, "Leaderboard", func(ctx context.Context) ([]LeaderboardEntry, error) {
		limit := query.Limit
		if limit <= 0 {
			limit = defaultLeaderboardLimit
		}

		switch query.Scope {
		case ScopeGlobal:
			rows, err := s.repo.TopGlobal(ctx, limit)
			if err != nil {
				return nil, err
			}
			entries := make([]LeaderboardEntry, len(rows))
			for i, r := range rows {
				entries[i] = entry(i, r.UserID, r.Rating, r.Wins, r.Losses, r.Played)
			}
			return entries, nil

		case ScopeGameMode:
			rows, err := s.repo.TopGameMode(ctx, query.Mode, limit)
			if err != nil {
				return nil, err
			}
			entries := make([]LeaderboardEntry, len(rows))
			for i, r := range rows {
				entries[i] = entry(i, r.UserID, r.Rating, r.Wins, r.Losses, r.Played)
			}
			return entries, nil

		case ScopeGuild:
			rows, err := s.repo.TopGuild(ctx, query.GuildID, limit)
			if err != nil {
				return nil, err
			}
			entries := make([]LeaderboardEntry, len(rows))
			for i, r := range rows {
				entries[i] = entry(i, r.UserID, r.Rating, r.Wins, r.Losses, r.Played)
			}
			return entries, nil

		case ScopeGuildCategory:
			rows, err := s.repo.TopGuildCategory(ctx, query.GuildID, query.Category, limit)
			if err != nil {
				return nil, err
			}
			entries := make([]LeaderboardEntry, len(rows))
			for i, r := range rows {
				entries[i] = entry(i, r.UserID, r.Rating, r.Wins, r.Losses, r.Played)
			}
			return entries, nil

		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownScope, query.Scope)
		}
	})
}

func entry(index int, userID sharedtypes.UserID, rating float64, wins, losses, played int) LeaderboardEntry {
	return LeaderboardEntry{
		Rank:   index + 1,
		UserID: userID,
		Rating: int(math.Round(rating)),
		Wins:   wins,
		Losses: losses,
		Played: played,
	}
}
