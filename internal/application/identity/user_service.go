package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/identity"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// ErrSelfModification is returned when an admin tries to lock themselves out
var ErrSelfModification = shared.NewDomainError("INVALID_OPERATION", "You cannot deactivate or demote your own account")

// UserService is the admin side of account management.
// Deactivating a user or changing their role revokes every token they hold.
type UserService struct {
	userRepo       identity.UserRepository
	blacklist      auth.TokenBlacklist
	sessionTTL     time.Duration
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
}

// NewUserService creates a new UserService. sessionTTL should cover the
// longest-lived token (the refresh token expiration).
func NewUserService(
	userRepo identity.UserRepository,
	blacklist auth.TokenBlacklist,
	sessionTTL time.Duration,
	logger *zap.Logger,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		userRepo:   userRepo,
		blacklist:  blacklist,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *UserService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetByID returns a user's account details
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*AccountInfo, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return toAccountInfo(user), nil
}

// Activate re-enables a deactivated account
func (s *UserService) Activate(ctx context.Context, id uuid.UUID) (*AccountInfo, error) {
	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := user.Activate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User activated", zap.String("user_id", id.String()))

	return toAccountInfo(user), nil
}

// Deactivate disables an account and ends all of its sessions
func (s *UserService) Deactivate(ctx context.Context, actorID, id uuid.UUID) (*AccountInfo, error) {
	if actorID == id {
		return nil, ErrSelfModification
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := user.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.revokeSessions(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User deactivated", zap.String("user_id", id.String()))

	return toAccountInfo(user), nil
}

// ChangeRole switches a user between admin and customer. Tokens carrying the
// old role stop working immediately.
func (s *UserService) ChangeRole(ctx context.Context, actorID, id uuid.UUID, role string) (*AccountInfo, error) {
	newRole, err := identity.ParseRole(role)
	if err != nil {
		return nil, err
	}
	if actorID == id && newRole != identity.RoleAdmin {
		return nil, ErrSelfModification
	}

	user, err := s.findUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == newRole {
		return toAccountInfo(user), nil
	}

	if err := user.ChangeRole(newRole); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	if err := s.revokeSessions(ctx, user); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, user)

	s.logger.Info("User role changed",
		zap.String("user_id", id.String()),
		zap.String("role", newRole.String()))

	return toAccountInfo(user), nil
}

func (s *UserService) findUser(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) revokeSessions(ctx context.Context, user *identity.User) error {
	if s.blacklist == nil {
		return nil
	}
	if err := s.blacklist.RevokeUserTokens(ctx, user.ID.String(), s.sessionTTL); err != nil {
		s.logger.Error("Failed to revoke user sessions", zap.String("user_id", user.ID.String()), zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to revoke user sessions")
	}
	return nil
}

func (s *UserService) publishEvents(ctx context.Context, user *identity.User) {
	events := user.GetDomainEvents()
	user.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish user events", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
}

func toAccountInfo(user *identity.User) *AccountInfo {
	return &AccountInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Role:        user.EffectiveRole().String(),
		Status:      string(user.Status),
		LastLoginAt: user.LastLoginAt,
	}
}
