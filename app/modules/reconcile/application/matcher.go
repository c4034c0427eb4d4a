package reconcileservice

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/pugscord/pugbot/app/modules/logclient"
	reconciledb "github.com/pugscord/pugbot/app/modules/reconcile/infrastructure/repositories"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/internal/observability/attr"
)

// selectCandidate picks the record most likely to be the tracked pickup.
// Full-roster search runs first: the roster itself is the confidence signal,
// so the first candidate surviving the rejection rules wins. Only when that
// yields nothing does the noisy per-participant search run, which
// additionally demands a roster-overlap threshold before binding.
func (s *ReconcileService) selectCandidate(ctx context.Context, match *reconciledb.PendingMatch) (*logclient.Record, error) {
	roster := match.GameIDs()

	candidates, err := s.logs.Search(ctx, roster, s.cfg.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("full-roster search: %w", err)
	}

	for i := range candidates {
		rec, err := s.evaluateCandidate(ctx, match, &candidates[i], false)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			return rec, nil
		}
	}

	// Degraded path: one participant at a time, newest results first.
	for _, gameID := range roster {
		candidates, err := s.logs.Search(ctx, []sharedtypes.GameID{gameID}, s.cfg.SearchLimit)
		if err != nil {
			return nil, fmt.Errorf("degraded search for %s: %w", gameID, err)
		}

		for i := range candidates {
			rec, err := s.evaluateCandidate(ctx, match, &candidates[i], true)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				return rec, nil
			}
		}
	}

	return nil, ErrNoCandidate
}

// evaluateCandidate applies the rejection rules to one search result. A nil
// record with nil error means "rejected, keep looking". Transient fetch
// failures propagate so the item is retried next sweep rather than bound to
// a half-verified candidate.
func (s *ReconcileService) evaluateCandidate(
	ctx context.Context,
	match *reconciledb.PendingMatch,
	candidate *logclient.CandidateSummary,
	degraded bool,
) (*logclient.Record, error) {
	// Records started before the pickup (beyond clock drift between us and
	// the logs service) belong to some earlier game.
	if candidate.StartedAt.Before(match.CreatedAt.Add(-s.cfg.ClockSkewTolerance)) {
		s.metrics.RecordCandidateRejected(ctx, "clock_skew")
		return nil, nil
	}

	claimed, err := s.repo.IsRecordClaimed(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}
	if claimed {
		s.metrics.RecordCandidateRejected(ctx, "claimed")
		return nil, nil
	}

	rec, err := s.logs.FetchByID(ctx, candidate.ID)
	if err != nil {
		switch {
		case errors.Is(err, logclient.ErrInvalidRecord):
			s.metrics.RecordCandidateRejected(ctx, "invalid")
			return nil, nil
		case errors.Is(err, logclient.ErrNotFound):
			s.metrics.RecordCandidateRejected(ctx, "vanished")
			return nil, nil
		default:
			return nil, err
		}
	}

	if degraded && !s.rosterOverlapSufficient(match, rec) {
		s.metrics.RecordCandidateRejected(ctx, "roster_overlap")
		s.logger.DebugContext(ctx, "degraded candidate rejected on roster overlap",
			attr.RecordID("record_id", candidate.ID),
		)
		return nil, nil
	}

	return rec, nil
}

// rosterOverlapSufficient requires that enough of the tracked roster appears
// in the candidate's roster. Single-participant search results are noisy;
// without this threshold a player's unrelated game could be bound.
func (s *ReconcileService) rosterOverlapSufficient(match *reconciledb.PendingMatch, rec *logclient.Record) bool {
	recordRoster := rec.Roster()

	present := 0
	for _, p := range match.Participants {
		if _, ok := recordRoster[p.GameID]; ok {
			present++
		}
	}

	required := int(math.Ceil(float64(len(match.Participants)) * s.cfg.RosterOverlapRatio))
	return present >= required
}
