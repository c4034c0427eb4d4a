package ratingservice

import (
	"context"
	"fmt"
	"math"

	ratingdb "github.com/pugscord/pugbot/app/modules/rating/infrastructure/repositories"
	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/internal/observability/attr"
)

// ratedPlayer is a match participant with a registered account. Unregistered
// players appear in the record but never in a rating table.
type ratedPlayer struct {
	userID sharedtypes.UserID
	team   sharedtypes.TeamColor
}

// scopeAdjust is one player's computed adjustment within one scope.
type scopeAdjust struct {
	userID   sharedtypes.UserID
	old, new float64
	won      bool
	lost     bool
}

// ApplyMatch rates one confirmed match. Every applicable scope is computed up
// front and written in a single transaction together with the applied-record
// marker, so redelivered completion events are no-ops.
func (s *RatingService) ApplyMatch(ctx context.Context, payload sharedevents.MatchCompletedPayloadV1) (*sharedevents.RatingUpdatedPayloadV1, error) {
	return withTelemetry(s, ctx, "ApplyMatch", func(ctx context.Context) (*sharedevents.RatingUpdatedPayloadV1, error) {
		players := ratedPlayers(payload.Players)

		update := &ratingdb.MatchRatingUpdate{}
		result := &sharedevents.RatingUpdatedPayloadV1{
			GuildID:  payload.GuildID,
			RecordID: payload.RecordID,
		}

		if ratable(players) {
			share := scoreShare(payload.RedScore, payload.BlueScore)
			shutout := (payload.RedScore == 0) != (payload.BlueScore == 0)
			m := s.magnitude(shutout, payload.Duration)

			userIDs := make([]sharedtypes.UserID, len(players))
			for i, p := range players {
				userIDs[i] = p.userID
			}

			if err := s.computeAllScopes(ctx, payload, players, userIDs, share, m, update, result); err != nil {
				return nil, err
			}
		} else {
			// Too few registered players to rate, but the record must still
			// be marked applied or its event would be retried forever.
			s.logger.WarnContext(ctx, "match not ratable, marking applied without adjustments",
				attr.RecordID("record_id", payload.RecordID),
				attr.GuildID("guild_id", payload.GuildID),
			)
		}

		applied, err := s.repo.ApplyMatch(ctx, &ratingdb.AppliedRecord{
			RecordID:  payload.RecordID,
			GuildID:   payload.GuildID,
			AppliedAt: s.now(),
		}, update)
		if err != nil {
			return nil, fmt.Errorf("apply ratings: %w", err)
		}
		if !applied {
			s.metrics.RecordDuplicateApplication(ctx)
			return nil, ErrDuplicateApplication
		}

		scopes := scopeCount(update)
		s.metrics.RecordMatchApplied(ctx, scopes)
		for _, d := range result.Deltas {
			s.metrics.RecordDelta(ctx, d.Scope, d.New-d.Old)
		}

		s.announceResult(ctx, payload, result)

		s.logger.InfoContext(ctx, "match ratings applied",
			attr.RecordID("record_id", payload.RecordID),
			attr.GuildID("guild_id", payload.GuildID),
			attr.Int("scopes", scopes),
			attr.Int("deltas", len(result.Deltas)),
		)
		return result, nil
	})
}

// computeAllScopes fills update and result for every scope the match touches.
// The game-mode scope only applies when the full roster size maps onto a
// known team format.
func (s *RatingService) computeAllScopes(
	ctx context.Context,
	payload sharedevents.MatchCompletedPayloadV1,
	players []ratedPlayer,
	userIDs []sharedtypes.UserID,
	share, m float64,
	update *ratingdb.MatchRatingUpdate,
	result *sharedevents.RatingUpdatedPayloadV1,
) error {
	now := s.now()

	global, err := s.repo.GetGlobal(ctx, userIDs)
	if err != nil {
		return err
	}
	for _, adj := range s.adjustScope(currentOf(userIDs, global, func(r *ratingdb.GlobalRating) float64 { return r.Rating }), players, share, m) {
		prev := global[adj.userID]
		row := ratingdb.GlobalRating{UserID: adj.userID, Rating: adj.new, UpdatedAt: now}
		applyTally(&row.Wins, &row.Losses, &row.Played, statsOf(prev), adj)
		update.Global = append(update.Global, row)
		result.Deltas = append(result.Deltas, delta(ScopeGlobal, adj))
	}

	if mode, ok := sharedtypes.GameModeForPlayerCount(len(payload.Players)); ok {
		modeRatings, err := s.repo.GetGameMode(ctx, mode, userIDs)
		if err != nil {
			return err
		}
		for _, adj := range s.adjustScope(currentOf(userIDs, modeRatings, func(r *ratingdb.GameModeRating) float64 { return r.Rating }), players, share, m) {
			prev := modeRatings[adj.userID]
			row := ratingdb.GameModeRating{UserID: adj.userID, Mode: mode, Rating: adj.new, UpdatedAt: now}
			applyTally(&row.Wins, &row.Losses, &row.Played, statsOfMode(prev), adj)
			update.GameMode = append(update.GameMode, row)
			result.Deltas = append(result.Deltas, delta(ScopeGameMode, adj))
		}
	}

	guild, err := s.repo.GetGuild(ctx, payload.GuildID, userIDs)
	if err != nil {
		return err
	}
	for _, adj := range s.adjustScope(currentOf(userIDs, guild, func(r *ratingdb.GuildRating) float64 { return r.Rating }), players, share, m) {
		prev := guild[adj.userID]
		row := ratingdb.GuildRating{GuildID: payload.GuildID, UserID: adj.userID, Rating: adj.new, UpdatedAt: now}
		applyTally(&row.Wins, &row.Losses, &row.Played, statsOfGuild(prev), adj)
		update.Guild = append(update.Guild, row)
		result.Deltas = append(result.Deltas, delta(ScopeGuild, adj))
	}

	category, err := s.repo.GetGuildCategory(ctx, payload.GuildID, payload.Category, userIDs)
	if err != nil {
		return err
	}
	for _, adj := range s.adjustScope(currentOf(userIDs, category, func(r *ratingdb.GuildCategoryRating) float64 { return r.Rating }), players, share, m) {
		prev := category[adj.userID]
		row := ratingdb.GuildCategoryRating{
			GuildID:   payload.GuildID,
			Category:  payload.Category,
			UserID:    adj.userID,
			Rating:    adj.new,
			UpdatedAt: now,
		}
		applyTally(&row.Wins, &row.Losses, &row.Played, statsOfCategory(prev), adj)
		update.GuildCategory = append(update.GuildCategory, row)
		result.Deltas = append(result.Deltas, delta(ScopeGuildCategory, adj))
	}

	return nil
}

// adjustScope computes per-player adjustments within one scope. The
// expectation is a property of the two team averages, so every player on a
// side receives the same rounded delta, applied to their own stored value.
func (s *RatingService) adjustScope(current map[sharedtypes.UserID]float64, players []ratedPlayer, share, m float64) []scopeAdjust {
	var redSum, blueSum float64
	var redN, blueN int
	for _, p := range players {
		r := current[p.userID]
		if p.team == sharedtypes.TeamRed {
			redSum += r
			redN++
		} else {
			blueSum += r
			blueN++
		}
	}
	if redN == 0 || blueN == 0 {
		return nil
	}
	redAvg := redSum / float64(redN)
	blueAvg := blueSum / float64(blueN)

	expectedRed := s.expectation(redAvg, blueAvg)
	redDelta := math.Round(m * (share - expectedRed))
	blueDelta := math.Round(m * ((1 - share) - (1 - expectedRed)))

	redWon := share > 0.5
	blueWon := share < 0.5

	adjusts := make([]scopeAdjust, 0, len(players))
	for _, p := range players {
		own := current[p.userID]
		delta, won, lost := redDelta, redWon, blueWon
		if p.team == sharedtypes.TeamBlue {
			delta, won, lost = blueDelta, blueWon, redWon
		}
		adjusts = append(adjusts, scopeAdjust{
			userID: p.userID,
			old:    own,
			new:    own + delta,
			won:    won,
			lost:   lost,
		})
	}
	return adjusts
}

func ratedPlayers(results []sharedtypes.PlayerResult) []ratedPlayer {
	players := make([]ratedPlayer, 0, len(results))
	for _, r := range results {
		if r.UserID == "" {
			continue
		}
		players = append(players, ratedPlayer{userID: r.UserID, team: r.Team})
	}
	return players
}

// ratable requires at least one registered player on each side; a one-sided
// set of registered accounts gives the expectation nothing to push against.
func ratable(players []ratedPlayer) bool {
	var red, blue bool
	for _, p := range players {
		if p.team == sharedtypes.TeamRed {
			red = true
		} else {
			blue = true
		}
	}
	return red && blue
}

type tally struct {
	wins, losses, played int
}

func applyTally(wins, losses, played *int, prev tally, adj scopeAdjust) {
	*wins = prev.wins
	*losses = prev.losses
	*played = prev.played + 1
	if adj.won {
		*wins++
	}
	if adj.lost {
		*losses++
	}
}

func delta(scope string, adj scopeAdjust) sharedevents.RatingDelta {
	return sharedevents.RatingDelta{
		UserID: adj.userID,
		Scope:  scope,
		Old:    int(math.Round(adj.old)),
		New:    int(math.Round(adj.new)),
	}
}

func scopeCount(u *ratingdb.MatchRatingUpdate) int {
	n := 0
	if len(u.Global) > 0 {
		n++
	}
	if len(u.GameMode) > 0 {
		n++
	}
	if len(u.Guild) > 0 {
		n++
	}
	if len(u.GuildCategory) > 0 {
		n++
	}
	return n
}

// currentOf flattens a scope's fetched rows into a rating map covering every
// participant, substituting DefaultRating for players with no row yet.
func currentOf[R any](userIDs []sharedtypes.UserID, rows map[sharedtypes.UserID]*R, rating func(*R) float64) map[sharedtypes.UserID]float64 {
	out := make(map[sharedtypes.UserID]float64, len(userIDs))
	for _, id := range userIDs {
		if row, ok := rows[id]; ok {
			out[id] = rating(row)
		} else {
			out[id] = ratingdb.DefaultRating
		}
	}
	return out
}

func statsOf(r *ratingdb.GlobalRating) tally {
	if r == nil {
		return tally{}
	}
	return tally{wins: r.Wins, losses: r.Losses, played: r.Played}
}

func statsOfMode(r *ratingdb.GameModeRating) tally {
	if r == nil {
		return tally{}
	}
	return tally{wins: r.Wins, losses: r.Losses, played: r.Played}
}

func statsOfGuild(r *ratingdb.GuildRating) tally {
	if r == nil {
		return tally{}
	}
	return tally{wins: r.Wins, losses: r.Losses, played: r.Played}
}

func statsOfCategory(r *ratingdb.GuildCategoryRating) tally {
	if r == nil {
		return tally{}
	}
	return tally{wins: r.Wins, losses: r.Losses, played: r.Played}
}
