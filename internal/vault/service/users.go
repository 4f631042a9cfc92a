package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/opencustody/strongroom/internal/vault/domain"
	"github.com/opencustody/strongroom/internal/vault/store"
	"github.com/opencustody/strongroom/pkg/slogx"
)

var (
	ErrUnknownRole = errors.New("unknown role")
	ErrDeleteSelf  = errors.New("cannot delete your own account")
	ErrDeleteAdmin = errors.New("cannot delete another admin")
)

type UserService struct {
	Store store.Store
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// ListUsers returns all users, oldest first.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.Store.Users().ListUsers(ctx)
}

// SetRole changes a user's role. The HTTP layer restricts this to admins;
// there is no further restriction here, an admin may change anyone
// including themselves.
func (s *UserService) SetRole(ctx context.Context, userID string, role domain.Role) error {
	if !role.Valid() {
		return ErrUnknownRole
	}
	if err := s.Store.Users().UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("user role changed",
		"user_id", userID, "role", string(role))
	return nil
}

// DeleteUser removes a user and everything they own. Admins cannot delete
// themselves or other admins; demote first, then delete. Files, grants and
// links go via foreign keys; key entries are keyed by opaque resource id,
// so they are cascaded explicitly in the same transaction.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return ErrDeleteSelf
	}

	target, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.Role == domain.RoleAdmin {
		return ErrDeleteAdmin
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		fileIDs, err := tx.Files().ListFileIDsByOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}
		for _, id := range fileIDs {
			if err := tx.Keys().DeleteKeyEntry(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("failed to delete key entry: %w", err)
			}
		}
		return tx.Users().DeleteUser(ctx, userID)
	})
	if err != nil {
		return err
	}

	slogx.FromContext(ctx).Info("user deleted",
		"user_id", userID, "actor_id", actorID)
	return nil
}
