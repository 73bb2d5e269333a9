package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Run("creates user with role", func(t *testing.T) {
		user, err := NewUser("john_doe", "John@Example.com", "john123", RoleCustomer)

		require.NoError(t, err)
		assert.Equal(t, "john_doe", user.Username)
		assert.Equal(t, "john@example.com", user.Email)
		assert.Equal(t, RoleCustomer, user.Role)
		assert.Equal(t, UserStatusActive, user.Status)
		assert.NotEqual(t, "john123", user.PasswordHash)
		assert.True(t, user.VerifyPassword("john123"))
		assert.False(t, user.VerifyPassword("wrong"))

		events := user.GetDomainEvents()
		require.Len(t, events, 1)
		created, ok := events[0].(*UserCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, RoleCustomer, created.Role)
	})

	t.Run("blank role defaults to customer", func(t *testing.T) {
		user, err := NewUser("alice", "", "alice123", "")

		require.NoError(t, err)
		assert.Equal(t, RoleCustomer, user.Role)
		assert.False(t, user.IsAdmin())
	})

	t.Run("short passwords are accepted", func(t *testing.T) {
		user, err := NewUser("admin", "admin@trinity.com", "admin", RoleAdmin)

		require.NoError(t, err)
		assert.True(t, user.IsAdmin())
	})

	t.Run("fails with empty username", func(t *testing.T) {
		_, err := NewUser("  ", "", "secret", RoleCustomer)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be empty")
	})

	t.Run("fails with invalid username characters", func(t *testing.T) {
		_, err := NewUser("john doe", "", "secret", RoleCustomer)
		assert.Error(t, err)
	})

	t.Run("fails with empty password", func(t *testing.T) {
		_, err := NewUser("john", "", "", RoleCustomer)
		assert.Error(t, err)
	})

	t.Run("fails with overlong password", func(t *testing.T) {
		_, err := NewUser("john", "", strings.Repeat("x", 73), RoleCustomer)
		assert.Error(t, err)
	})

	t.Run("fails with invalid email", func(t *testing.T) {
		_, err := NewUser("john", "not-an-email", "secret", RoleCustomer)
		assert.Error(t, err)
	})

	t.Run("fails with unknown role", func(t *testing.T) {
		_, err := NewUser("john", "", "secret", Role("manager"))
		assert.Error(t, err)
	})
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("")
	require.NoError(t, err)
	assert.Equal(t, RoleCustomer, r)

	r, err = ParseRole(" Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, r)

	_, err = ParseRole("root")
	assert.Error(t, err)
}

func TestUser_ChangeRole(t *testing.T) {
	user, err := NewUser("bob", "", "bob123", RoleCustomer)
	require.NoError(t, err)
	user.ClearDomainEvents()

	require.NoError(t, user.ChangeRole(RoleAdmin))
	assert.True(t, user.IsAdmin())
	require.Len(t, user.GetDomainEvents(), 1)

	require.NoError(t, user.ChangeRole(RoleAdmin))
	assert.Len(t, user.GetDomainEvents(), 1)

	assert.Error(t, user.ChangeRole(Role("root")))
}

func TestUser_EffectiveRole(t *testing.T) {
	user := &User{}
	assert.Equal(t, RoleCustomer, user.EffectiveRole())
}

func TestUser_Status(t *testing.T) {
	user, err := NewUser("jane", "", "jane123", RoleCustomer)
	require.NoError(t, err)

	assert.True(t, user.CanLogin())
	require.NoError(t, user.Deactivate())
	assert.False(t, user.CanLogin())
	assert.Error(t, user.Deactivate())
	require.NoError(t, user.Activate())
	assert.True(t, user.CanLogin())
}

func TestUser_SetPassword(t *testing.T) {
	user, err := NewUser("jane", "", "jane123", RoleCustomer)
	require.NoError(t, err)

	require.NoError(t, user.SetPassword("newpass"))
	assert.True(t, user.VerifyPassword("newpass"))
	assert.False(t, user.VerifyPassword("jane123"))
}

func TestUser_SetNameCountsCharacters(t *testing.T) {
	user, err := NewUser("jose", "jose@example.com", "secret123", RoleCustomer)
	require.NoError(t, err)

	require.NoError(t, user.SetName(strings.Repeat("é", 150), "García"))
	assert.Error(t, user.SetName(strings.Repeat("é", 151), "García"))
}

func TestUser_FullName(t *testing.T) {
	user, err := NewUser("jane", "", "jane123", RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, "jane", user.FullName())

	require.NoError(t, user.SetName("Jane", "Smith"))
	assert.Equal(t, "Jane Smith", user.FullName())
}
