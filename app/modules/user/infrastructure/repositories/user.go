package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
	"github.com/uptrace/bun"
)

// UserDBImpl is the bun-backed Repository.
type UserDBImpl struct {
	DB *bun.DB
}

var _ Repository = (*UserDBImpl)(nil)

// GetByGameID returns the user owning a game identity, or nil when nobody
// registered it.
func (db *UserDBImpl) GetByGameID(ctx context.Context, gameID sharedtypes.GameID) (*User, error) {
	var user User
	err := db.DB.NewSelect().
		Model(&user).
		Where("game_id = ?", gameID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch user for game id %s: %w", gameID, err)
	}
	return &user, nil
}

// GetByGameIDs returns every registered user among the given identities.
func (db *UserDBImpl) GetByGameIDs(ctx context.Context, gameIDs []sharedtypes.GameID) ([]User, error) {
	if len(gameIDs) == 0 {
		return nil, nil
	}

	var users []User
	err := db.DB.NewSelect().
		Model(&users).
		Where("game_id IN (?)", bun.In(gameIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users by game ids: %w", err)
	}
	return users, nil
}

// Register stores a new identity mapping. Conflicts on either key mean the
// identity or account is already registered.
func (db *UserDBImpl) Register(ctx context.Context, user *User) error {
	_, err := db.DB.NewInsert().
		Model(user).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to register user %s: %w", user.UserID, err)
	}
	return nil
}
