package sharedevents

import (
	"time"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

// Stream names provisioned on JetStream.
const (
	PickupStreamName  = "pickup"
	MatchStreamName   = "match"
	RatingStreamName  = "rating"
	DiscordStreamName = "discord"
)

// Cross-module event subjects. Versioned so payloads can evolve without
// breaking consumers mid-deploy.
const (
	PickupMatchStartedV1  = "pickup.match.started.v1"
	MatchCompletedV1      = "match.completed.v1"
	MatchFailedV1         = "match.failed.v1"
	RatingUpdatedV1       = "rating.updated.v1"
	DiscordNotificationV1 = "discord.notification.v1"
)

// PickupMatchStartedPayloadV1 announces that a pickup roster left for a game
// server. This is what puts a match into the reconciliation pipeline.
type PickupMatchStartedPayloadV1 struct {
	GuildID      sharedtypes.GuildID       `json:"guild_id"`
	Category     sharedtypes.Category      `json:"category"`
	ChannelID    string                    `json:"channel_id"`
	Participants []sharedtypes.Participant `json:"participants"`
	StartedAt    time.Time                 `json:"started_at"`
}

// MatchCompletedPayloadV1 carries a confirmed match from the reconciliation
// pipeline to the rating engine.
type MatchCompletedPayloadV1 struct {
	GuildID   sharedtypes.GuildID        `json:"guild_id"`
	Category  sharedtypes.Category       `json:"category"`
	ChannelID string                     `json:"channel_id"`
	RecordID  sharedtypes.RecordID       `json:"record_id"`
	Map       string                     `json:"map"`
	RedScore  int                        `json:"red_score"`
	BlueScore int                        `json:"blue_score"`
	Duration  time.Duration              `json:"duration"`
	Players   []sharedtypes.PlayerResult `json:"players"`
	StartedAt time.Time                  `json:"started_at"`
}

// MatchFailedPayloadV1 is emitted when reconciliation gives up on a tracked
// pickup (no matching record inside the search horizon).
type MatchFailedPayloadV1 struct {
	GuildID   sharedtypes.GuildID  `json:"guild_id"`
	Category  sharedtypes.Category `json:"category"`
	ChannelID string               `json:"channel_id"`
	Reason    string               `json:"reason"`
}

// RatingDelta is one scope's applied adjustment for one account.
type RatingDelta struct {
	UserID sharedtypes.UserID `json:"user_id"`
	Scope  string             `json:"scope"`
	Old    int                `json:"old"`
	New    int                `json:"new"`
}

// RatingUpdatedPayloadV1 reports the deltas applied for one record.
type RatingUpdatedPayloadV1 struct {
	GuildID  sharedtypes.GuildID  `json:"guild_id"`
	RecordID sharedtypes.RecordID `json:"record_id"`
	Deltas   []RatingDelta        `json:"deltas"`
}

// DiscordNotificationPayloadV1 is consumed by the gateway process, which owns
// the actual Discord session.
type DiscordNotificationPayloadV1 struct {
	GuildID   sharedtypes.GuildID `json:"guild_id"`
	ChannelID string              `json:"channel_id"`
	Text      string              `json:"text"`
}
