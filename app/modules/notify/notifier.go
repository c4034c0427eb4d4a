// Package notify publishes human-readable results for the Discord gateway
// process to deliver.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	sharedevents "github.com/pugscord/pugbot/app/shared/events"
	sharedinterface "github.com/pugscord/pugbot/app/shared/interfaces"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/pugscord/pugbot/internal/eventbus"
	"github.com/pugscord/pugbot/internal/observability/attr"
	"github.com/pugscord/pugbot/internal/utils"
)

// EventBusNotifier implements Notifier by publishing notification events.
// The gateway owns the Discord session; this process never talks to Discord
// directly.
type EventBusNotifier struct {
	bus    eventbus.EventBus
	logger *slog.Logger
}

var _ sharedinterface.Notifier = (*EventBusNotifier)(nil)

// NewEventBusNotifier creates an EventBusNotifier.
func NewEventBusNotifier(bus eventbus.EventBus, logger *slog.Logger) *EventBusNotifier {
	return &EventBusNotifier{bus: bus, logger: logger}
}

// Notify publishes one notification. Errors are returned for logging but
// callers treat delivery as best-effort.
func (n *EventBusNotifier) Notify(ctx context.Context, guildID sharedtypes.GuildID, channelID, text string) error {
	msg, err := utils.NewMessage(sharedevents.DiscordNotificationPayloadV1{
		GuildID:   guildID,
		ChannelID: channelID,
		Text:      text,
	})
	if err != nil {
		return fmt.Errorf("failed to build notification message: %w", err)
	}

	if err := n.bus.Publish(sharedevents.DiscordNotificationV1, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	n.logger.InfoContext(ctx, "notification published",
		attr.GuildID("guild_id", guildID),
		attr.String("channel_id", channelID),
	)
	return nil
}
