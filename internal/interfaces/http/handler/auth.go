package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/grocery/backend/internal/application/identity"
	"github.com/grocery/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// ObtainToken godoc
// @ID           obtainToken
// @Summary      Obtain a token pair
// @Description  Authenticate with username and password. The access token carries role, username and user_id claims.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body TokenObtainRequest true "Login credentials"
// @Success      200 {object} APIResponse[TokenObtainResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /token [post]
func (h *AuthHandler) ObtainToken(c *gin.Context) {
	var req TokenObtainRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, TokenObtainResponse{
		Access:           result.AccessToken,
		Refresh:          result.RefreshToken,
		Role:             result.Role,
		Username:         result.Username,
		AccessExpiresAt:  result.AccessTokenExpiresAt,
		RefreshExpiresAt: result.RefreshTokenExpiresAt,
		TokenType:        result.TokenType,
	})
}

// RefreshToken godoc
// @ID           refreshToken
// @Summary      Refresh access token
// @Description  Exchange a refresh token for a new access token and a rotated refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body TokenRefreshRequest true "Refresh token"
// @Success      200 {object} APIResponse[TokenRefreshResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /token/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req TokenRefreshRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), identity.RefreshTokenInput{
		RefreshToken: req.Refresh,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, TokenRefreshResponse{
		Access:           result.AccessToken,
		Refresh:          result.RefreshToken,
		AccessExpiresAt:  result.AccessTokenExpiresAt,
		RefreshExpiresAt: result.RefreshTokenExpiresAt,
		TokenType:        result.TokenType,
	})
}

// Register godoc
// @ID           registerCustomer
// @Summary      Register a customer account
// @Description  Create a user with the customer role. username, email and password are required.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration"
// @Success      201 {object} APIResponse[RegisterResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	// missing fields, body included, are reported by the service
	var req RegisterRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.authService.Register(c.Request.Context(), identity.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, RegisterResponse{
		ID:       result.ID,
		Username: result.Username,
		Email:    result.Email,
		Role:     result.Role,
		Message:  result.Message,
	})
}

// GetCurrentUser godoc
// @ID           getCurrentUser
// @Summary      Get current user
// @Description  Get the currently authenticated user's information
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[CurrentUserResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	user, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CurrentUserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
	})
}

// Logout godoc
// @ID           logout
// @Summary      Logout
// @Description  Revoke the presented access token and, when given, the refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest false "Refresh token to revoke"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}
	userID, err := claims.GetUserUUID()
	if err != nil {
		h.Unauthorized(c, "Invalid user ID in token")
		return
	}

	var req LogoutRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}

	err = h.authService.Logout(c.Request.Context(), identity.LogoutInput{
		UserID:       userID,
		TokenJTI:     claims.ID,
		TokenTTL:     claims.GetRemainingTTL(),
		RefreshToken: req.Refresh,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MessageData{Message: "Logged out successfully"})
}
