package reconcileservice

import (
	"strings"
	"time"

	"github.com/pugscord/pugbot/app/modules/logclient"
	"github.com/pugscord/pugbot/config"
)

// CompletionPolicy decides whether a fetched record represents a finished
// match. Stateless: a pure function of the record payload and the map-type
// rule table.
type CompletionPolicy struct {
	rules    []config.CompletionRule
	fallback config.CompletionRule
}

// NewCompletionPolicy builds a policy from a rule table. The empty-prefix
// rule (if any) becomes the fallback; order of the remaining rules decides
// precedence for overlapping prefixes.
func NewCompletionPolicy(rules []config.CompletionRule) *CompletionPolicy {
	p := &CompletionPolicy{
		fallback: config.CompletionRule{ScoreTarget: 5, DurationCeiling: 30 * time.Minute},
	}
	for _, r := range rules {
		if r.Prefix == "" {
			p.fallback = r
			continue
		}
		p.rules = append(p.rules, r)
	}
	return p
}

// RuleFor returns the completion rule governing a map.
func (p *CompletionPolicy) RuleFor(mapName string) config.CompletionRule {
	for _, r := range p.rules {
		if strings.HasPrefix(mapName, r.Prefix) {
			return r
		}
	}
	return p.fallback
}

// IsComplete reports whether the record is finished. Two independent
// signals, either sufficient: a side reached the map type's score target, or
// the elapsed time passed the map type's ceiling (the match ran its natural
// course).
func (p *CompletionPolicy) IsComplete(rec *logclient.Record) bool {
	rule := p.RuleFor(rec.Map)

	if rec.RedScore >= rule.ScoreTarget || rec.BlueScore >= rule.ScoreTarget {
		return true
	}
	return rec.Duration >= rule.DurationCeiling
}
