package ratingservice

import (
	"math"
	"time"
)

// expectation is the logistic win expectation of a player rated own against
// opposition averaging opp. Equal ratings give 0.5; a scale-point advantage
// gives about 0.76.
func (s *RatingService) expectation(own, opp float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (opp-own)/s.cfg.Scale))
}

// scoreShare maps a scoreline to red's share of the result in [0, 1]. A
// scoreless match is a draw.
func scoreShare(redScore, blueScore int) float64 {
	total := redScore + blueScore
	if total == 0 {
		return 0.5
	}
	return float64(redScore) / float64(total)
}

// magnitude is the per-match adjustment ceiling. A shutout that also ended
// short of a full-length match is a stronger skill signal than either alone,
// so only that combination scales the base up.
func (s *RatingService) magnitude(shutout bool, duration time.Duration) float64 {
	m := s.cfg.BaseMagnitude
	if shutout && duration < s.cfg.ShortMatchThreshold {
		m *= s.cfg.ShutoutMultiplier
	}
	return m
}
