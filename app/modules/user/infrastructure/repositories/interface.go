package userdb

import (
	"context"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

// Repository is the storage surface of the user module.
type Repository interface {
	GetByGameID(ctx context.Context, gameID sharedtypes.GameID) (*User, error)
	GetByGameIDs(ctx context.Context, gameIDs []sharedtypes.GameID) ([]User, error)
	Register(ctx context.Context, user *User) error
}
