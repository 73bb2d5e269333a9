package persistence

import (
	"context"
	"testing"

	"github.com/grocery/backend/internal/domain/identity"
	"github.com/grocery/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormUserRepository(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDB(t)
	repo := NewGormUserRepository(db)

	user, err := identity.NewUser("john_doe", "John@Example.com", "john123", identity.RoleCustomer)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, user))

	t.Run("find by username and email", func(t *testing.T) {
		found, err := repo.FindByUsername(ctx, "john_doe")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Equal(t, identity.RoleCustomer, found.Role)
		assert.True(t, found.VerifyPassword("john123"))

		found, err = repo.FindByEmail(ctx, "JOHN@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		_, err = repo.FindByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByEmail(ctx, "")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("exists checks", func(t *testing.T) {
		exists, err := repo.ExistsByUsername(ctx, "john_doe")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByEmail(ctx, "john@EXAMPLE.com")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByEmail(ctx, "")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("duplicate username", func(t *testing.T) {
		dup, err := identity.NewUser("john_doe", "other@example.com", "pw", identity.RoleCustomer)
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "USERNAME_EXISTS", domainErr.Code)
	})

	t.Run("update", func(t *testing.T) {
		require.NoError(t, user.ChangeRole(identity.RoleAdmin))
		require.NoError(t, user.SetName("John", "Doe"))
		user.RecordLoginSuccess()
		require.NoError(t, repo.Update(ctx, user))

		found, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, found.IsAdmin())
		assert.Equal(t, "John Doe", found.FullName())
		assert.NotNil(t, found.LastLoginAt)

		ghost, err := identity.NewUser("ghost", "", "pw", identity.RoleCustomer)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Update(ctx, ghost), shared.ErrNotFound)
	})

	t.Run("delete unlinks customer", func(t *testing.T) {
		customers := NewGormCustomerRepository(db)
		c := newTestCustomer(t, "John", "Doe", "New York")
		require.NoError(t, c.LinkUser(user.ID))
		require.NoError(t, customers.Save(ctx, c))

		require.NoError(t, repo.Delete(ctx, user.ID))
		assert.ErrorIs(t, repo.Delete(ctx, user.ID), shared.ErrNotFound)

		found, err := customers.FindByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Nil(t, found.UserID)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
