package userdb

import (
	"time"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/uptrace/bun"
)

// User links a game-network identity to a Discord account. Registration is
// owned by the gateway process; this backend only reads the mapping.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UserID    sharedtypes.UserID `bun:"user_id,pk"`
	GameID    sharedtypes.GameID `bun:"game_id,notnull,unique"`
	CreatedAt time.Time          `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
