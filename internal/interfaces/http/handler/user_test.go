package handler

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/grocery/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserHandler_Deactivate(t *testing.T) {
	env := newTestEnv(t)
	root := env.createUser(t, "root", identity.RoleAdmin)
	admin := env.tokenFor(t, root)

	t.Run("old tokens stop working and login is refused", func(t *testing.T) {
		shopper := env.createUser(t, "shopper", identity.RoleCustomer)
		token := env.tokenFor(t, shopper)
		require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/me", token, nil).Code)

		w := env.do(http.MethodPost, "/api/users/"+shopper.ID.String()+"/deactivate", admin, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeData[AccountResponse](t, w)
		assert.Equal(t, "deactivated", resp.Status)

		w = env.do(http.MethodGet, "/api/me", token, nil)
		requireError(t, w, http.StatusUnauthorized, "TOKEN_REVOKED")

		w = env.do(http.MethodPost, "/api/token", "", map[string]string{
			"username": "shopper",
			"password": "s3cret-pass",
		})
		requireError(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")
	})

	t.Run("twice is a conflict", func(t *testing.T) {
		idle := env.createUser(t, "idle", identity.RoleCustomer)
		path := "/api/users/" + idle.ID.String() + "/deactivate"
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, path, admin, nil).Code)

		w := env.do(http.MethodPost, path, admin, nil)
		requireError(t, w, http.StatusConflict, "ALREADY_DEACTIVATED")
	})

	t.Run("admins cannot lock themselves out", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/users/"+root.ID.String()+"/deactivate", admin, nil)
		requireError(t, w, http.StatusBadRequest, "INVALID_OPERATION")
	})

	t.Run("customers are forbidden", func(t *testing.T) {
		other := env.createUser(t, "nosy", identity.RoleCustomer)
		w := env.do(http.MethodPost, "/api/users/"+root.ID.String()+"/deactivate", env.tokenFor(t, other), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/users/"+uuid.NewString()+"/deactivate", admin, nil)
		requireError(t, w, http.StatusNotFound, "USER_NOT_FOUND")
	})

	t.Run("invalid id", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/users/not-a-uuid/deactivate", admin, nil)
		requireError(t, w, http.StatusBadRequest, "INVALID_ID")
	})
}

func TestUserHandler_Activate(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	user := env.createUser(t, "returning", identity.RoleCustomer)

	w := env.do(http.MethodPost, "/api/users/"+user.ID.String()+"/activate", admin, nil)
	requireError(t, w, http.StatusConflict, "ALREADY_ACTIVE")

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/users/"+user.ID.String()+"/deactivate", admin, nil).Code)

	w = env.do(http.MethodPost, "/api/users/"+user.ID.String()+"/activate", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "active", decodeData[AccountResponse](t, w).Status)

	w = env.do(http.MethodPost, "/api/token", "", map[string]string{
		"username": "returning",
		"password": "s3cret-pass",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUserHandler_ChangeRole(t *testing.T) {
	env := newTestEnv(t)
	root := env.createUser(t, "root", identity.RoleAdmin)
	admin := env.tokenFor(t, root)

	t.Run("promotion revokes tokens carrying the old role", func(t *testing.T) {
		clerk := env.createUser(t, "clerk", identity.RoleCustomer)
		token := env.tokenFor(t, clerk)

		w := env.do(http.MethodPut, "/api/users/"+clerk.ID.String()+"/role", admin, map[string]string{"role": "admin"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "admin", decodeData[AccountResponse](t, w).Role)

		w = env.do(http.MethodGet, "/api/dashboard/stats", token, nil)
		requireError(t, w, http.StatusUnauthorized, "TOKEN_REVOKED")

		w = env.do(http.MethodGet, "/api/users/"+clerk.ID.String(), admin, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "admin", decodeData[AccountResponse](t, w).Role)
	})

	t.Run("unknown role is a validation error", func(t *testing.T) {
		other := env.createUser(t, "other", identity.RoleCustomer)
		w := env.do(http.MethodPut, "/api/users/"+other.ID.String()+"/role", admin, map[string]string{"role": "cashier"})
		requireError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
	})

	t.Run("admins cannot demote themselves", func(t *testing.T) {
		w := env.do(http.MethodPut, "/api/users/"+root.ID.String()+"/role", admin, map[string]string{"role": "customer"})
		requireError(t, w, http.StatusBadRequest, "INVALID_OPERATION")
	})
}
