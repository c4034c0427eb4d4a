// Package attr provides slog attribute constructors so call sites stay
// uniform about key names and types across modules.
package attr

import (
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Int64(key string, value int64) slog.Attr { return slog.Int64(key, value) }

func Float64(key string, value float64) slog.Attr { return slog.Float64(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Time(key string, value time.Time) slog.Attr { return slog.Time(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

func Any(key string, value any) slog.Attr { return slog.Any(key, value) }

func Error(err error) slog.Attr { return slog.Any("error", err) }

func GuildID(key string, id sharedtypes.GuildID) slog.Attr {
	return slog.String(key, string(id))
}

func UserID(key string, id sharedtypes.UserID) slog.Attr {
	return slog.String(key, string(id))
}

func RecordID(key string, id sharedtypes.RecordID) slog.Attr {
	return slog.Int64(key, int64(id))
}

// CorrelationIDFromMsg lifts the watermill correlation id out of message
// metadata for log lines emitted inside handlers.
func CorrelationIDFromMsg(msg *message.Message) slog.Attr {
	return slog.String("correlation_id", msg.Metadata.Get("correlation_id"))
}
