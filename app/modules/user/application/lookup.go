// Package userservice exposes identity resolution to the rest of the app.
package userservice

import (
	"context"
	"fmt"

	userdb "github.com/pugscord/pugbot/app/modules/user/infrastructure/repositories"
	sharedinterface "github.com/pugscord/pugbot/app/shared/interfaces"
	sharedtypes "github.com/pugscord/pugbot/app/shared/types"
)

// LookupService resolves game identities through the user repository.
// Unregistered identities resolve to nil, never to an error.
type LookupService struct {
	repo userdb.Repository
}

var _ sharedinterface.UserLookup = (*LookupService)(nil)

// NewLookupService creates a LookupService.
func NewLookupService(repo userdb.Repository) *LookupService {
	return &LookupService{repo: repo}
}

// Resolve maps one game identity to an account, nil if unregistered.
func (s *LookupService) Resolve(ctx context.Context, gameID sharedtypes.GameID) (*sharedtypes.UserID, error) {
	user, err := s.repo.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("identity lookup failed: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	id := user.UserID
	return &id, nil
}

// ResolveBatch maps a roster's game identities in one query. Missing entries
// are simply absent from the result map.
func (s *LookupService) ResolveBatch(ctx context.Context, gameIDs []sharedtypes.GameID) (map[sharedtypes.GameID]sharedtypes.UserID, error) {
	users, err := s.repo.GetByGameIDs(ctx, gameIDs)
	if err != nil {
		return nil, fmt.Errorf("batch identity lookup failed: %w", err)
	}

	resolved := make(map[sharedtypes.GameID]sharedtypes.UserID, len(users))
	for _, u := range users {
		resolved[u.GameID] = u.UserID
	}
	return resolved, nil
}
