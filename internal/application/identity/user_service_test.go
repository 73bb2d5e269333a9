package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/identity"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/grocery/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func createUserService(userRepo *MockUserRepository, blacklist auth.TokenBlacklist) *UserService {
	return NewUserService(userRepo, blacklist, 24*time.Hour, zap.NewNop())
}

func requireDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr), "expected domain error, got %v", err)
	assert.Equal(t, code, domainErr.Code)
}

func TestUserService_Deactivate(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	t.Run("disables the account and revokes its tokens", func(t *testing.T) {
		user := createTestUser(t, "alice", "secret", identity.RoleCustomer)
		userRepo := new(MockUserRepository)
		blacklist := auth.NewInMemoryTokenBlacklist()
		svc := createUserService(userRepo, blacklist)
		userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
		userRepo.On("Update", ctx, user).Return(nil)

		info, err := svc.Deactivate(ctx, adminID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "deactivated", info.Status)
		assert.False(t, user.CanLogin())

		revoked, err := blacklist.IsUserTokenRevoked(ctx, user.ID.String(), time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, revoked)
		userRepo.AssertExpectations(t)
	})

	t.Run("admins cannot deactivate themselves", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc := createUserService(userRepo, auth.NewInMemoryTokenBlacklist())

		_, err := svc.Deactivate(ctx, adminID, adminID)
		assert.ErrorIs(t, err, ErrSelfModification)
		userRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("already deactivated", func(t *testing.T) {
		user := createTestUser(t, "bob", "secret", identity.RoleCustomer)
		require.NoError(t, user.Deactivate())
		userRepo := new(MockUserRepository)
		svc := createUserService(userRepo, nil)
		userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

		_, err := svc.Deactivate(ctx, adminID, user.ID)
		requireDomainCode(t, err, "ALREADY_DEACTIVATED")
		userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		id := uuid.New()
		userRepo := new(MockUserRepository)
		svc := createUserService(userRepo, nil)
		userRepo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := svc.Deactivate(ctx, adminID, id)
		requireDomainCode(t, err, "USER_NOT_FOUND")
	})
}

func TestUserService_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("re-enables login", func(t *testing.T) {
		user := createTestUser(t, "carol", "secret", identity.RoleCustomer)
		require.NoError(t, user.Deactivate())
		userRepo := new(MockUserRepository)
		svc := createUserService(userRepo, nil)
		userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
		userRepo.On("Update", ctx, user).Return(nil)

		info, err := svc.Activate(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "active", info.Status)
		assert.True(t, user.CanLogin())
	})

	t.Run("already active", func(t *testing.T) {
		user := createTestUser(t, "dave", "secret", identity.RoleCustomer)
		userRepo := new(MockUserRepository)
		svc := createUserService(userRepo, nil)
		userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

		_, err := svc.Activate(ctx, user.ID)
		requireDomainCode(t, err, "ALREADY_ACTIVE")
	})
}

func TestUserService_ChangeRole(t *testing.T) {
	ctx := context.Background()
	adminID := uuid.New()

	t.Run("promotes, revokes tokens and publishes the change", func(t *testing.T) {
		user := createTestUser(t, "erin", "secret", identity.RoleCustomer)
		userRepo := new(MockUserRepository)
		blacklist := auth.NewInMemoryTokenBlacklist()
		publisher := &recordingPublisher{}
		svc := createUserService(userRepo, blacklist)
		svc.SetEventPublisher(publisher)
		userRepo.On("FindByID", ctx, user.ID).Return(user, nil)
		userRepo.On("Update", ctx, user).Return(nil)

		info, err := svc.ChangeRole(ctx, adminID, user.ID, "ADMIN")
		require.NoError(t, err)
		assert.Equal(t, "admin", info.Role)

		revoked, err := blacklist.IsUserTokenRevoked(ctx, user.ID.String(), time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, revoked)

		var types []string
		for _, e := range publisher.events {
			types = append(types, e.EventType())
		}
		assert.Contains(t, types, identity.EventTypeUserRoleChanged)
	})

	t.Run("same role is a no-op", func(t *testing.T) {
		user := createTestUser(t, "frank", "secret", identity.RoleAdmin)
		userRepo := new(MockUserRepository)
		blacklist := auth.NewInMemoryTokenBlacklist()
		svc := createUserService(userRepo, blacklist)
		userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

		info, err := svc.ChangeRole(ctx, adminID, user.ID, "admin")
		require.NoError(t, err)
		assert.Equal(t, "admin", info.Role)
		userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)

		revoked, err := blacklist.IsUserTokenRevoked(ctx, user.ID.String(), time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("admins cannot demote themselves", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc := createUserService(userRepo, nil)

		_, err := svc.ChangeRole(ctx, adminID, adminID, "customer")
		assert.ErrorIs(t, err, ErrSelfModification)
	})

	t.Run("unknown role", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc := createUserService(userRepo, nil)

		_, err := svc.ChangeRole(ctx, adminID, uuid.New(), "cashier")
		requireDomainCode(t, err, "INVALID_ROLE")
	})
}

func TestUserService_GetByID(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t, "grace", "secret", identity.RoleCustomer)
	userRepo := new(MockUserRepository)
	svc := createUserService(userRepo, nil)
	userRepo.On("FindByID", ctx, user.ID).Return(user, nil)

	info, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "grace", info.Username)
	assert.Equal(t, "customer", info.Role)
	assert.Equal(t, "active", info.Status)
}
