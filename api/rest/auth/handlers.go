package auth

import (
	"errors"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"

	authsvc "codeberg.org/gatekeep/server/internal/auth"
	resterrors "codeberg.org/gatekeep/server/internal/errors"
	"codeberg.org/gatekeep/server/internal/logger"
)

// RegisterHandler godoc
// @Summary Register a new account
// @Description Create an account with email and password. The response never contains the password or its hash.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration payload"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/auth/register [post]
func RegisterHandler(service *authsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			resterrors.ValidationError(c, err)
			return
		}

		if err := req.validate(); err != nil {
			resterrors.ValidationError(c, err)
			return
		}

		user, err := service.Register(c.Request.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			if errors.Is(err, authsvc.ErrDuplicateEmail) {
				resterrors.Conflict(c, "email already registered")
				return
			}

			resterrors.InternalError(c, "failed to register", err)
			return
		}

		c.JSON(http.StatusCreated, RegisterResponse{
			Message: "account created",
			User:    user,
		})
	}
}

// LoginHandler godoc
// @Summary Log in with email and password
// @Description Verify credentials and return an access/refresh token pair. Invalid email and invalid password are indistinguishable in the response.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login payload"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/auth/login [post]
func LoginHandler(service *authsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest

		if err := c.ShouldBindJSON(&req); err != nil {
			resterrors.ValidationError(c, err)
			return
		}

		pair, err := service.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, authsvc.ErrInvalidCredentials) {
				resterrors.Unauthorized(c, "invalid email or password")
				return
			}

			resterrors.InternalError(c, "failed to log in", err)
			return
		}

		c.JSON(http.StatusOK, TokenResponse{
			Message:      "logged in",
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}

// RefreshHandler godoc
// @Summary Exchange a refresh token
// @Description Rotate a refresh token for a new access/refresh pair. A token can be exchanged once; any failure requires a fresh login.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh payload"
// @Success 200 {object} TokenResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func RefreshHandler(service *authsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RefreshRequest

		// an unreadable body simply means no token was presented; the
		// service rejects the empty string before any verification
		_ = c.ShouldBindJSON(&req) //nolint:errcheck

		pair, err := service.Refresh(c.Request.Context(), req.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, authsvc.ErrMissingToken):
				resterrors.Unauthorized(c, "refresh token required")
			case errors.Is(err, authsvc.ErrInvalidOrExpired),
				errors.Is(err, authsvc.ErrTokenRevoked):
				resterrors.Unauthorized(c, "session expired, please log in again")
			default:
				resterrors.InternalError(c, "failed to refresh session", err)
			}
			return
		}

		c.JSON(http.StatusOK, TokenResponse{
			Message:      "session refreshed",
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}

// BeginAuthHandler godoc
// @Summary Start OAuth authentication
// @Description Begin the OAuth flow with the specified provider (google, github)
// @Tags auth
// @Param provider path string true "OAuth provider" Enums(google, github)
// @Success 302 {string} string "Redirect to OAuth provider"
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/auth/{provider} [get]
func BeginAuthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")

		if !isValidProvider(provider) {
			resterrors.BadRequest(c, "invalid provider", nil)
			return
		}

		// set provider in query for gothic
		q := c.Request.URL.Query()
		q.Add("provider", provider)
		c.Request.URL.RawQuery = q.Encode()

		gothic.BeginAuthHandler(c.Writer, c.Request)
	}
}

// CallbackHandler godoc
// @Summary OAuth callback
// @Description OAuth provider callback. Resolves or creates the account for the social identity and returns a token pair.
// @Tags auth
// @Produce json
// @Param provider path string true "OAuth provider" Enums(google, github)
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/auth/{provider}/callback [get]
func CallbackHandler(service *authsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := c.Param("provider")

		q := c.Request.URL.Query()
		q.Add("provider", provider)
		c.Request.URL.RawQuery = q.Encode()

		gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
		if err != nil {
			resterrors.InternalError(c, "authentication failed", err)
			return
		}

		if gothUser.Email == "" {
			resterrors.BadRequest(c, "provider did not supply an email address", nil)
			return
		}

		user, pair, err := service.SocialLogin(c.Request.Context(), gothUser.Email, gothUser.Name)
		if err != nil {
			resterrors.InternalError(c, "failed to log in", err)
			return
		}

		c.JSON(http.StatusOK, AuthResponse{
			Message:      "logged in",
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			User:         user,
		})
	}
}

// GetCurrentUserHandler godoc
// @Summary Get current user
// @Description Get the authenticated user's profile
// @Tags auth
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/auth/me [get]
// @Security BearerAuth
func GetCurrentUserHandler(service *authsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := authsvc.GetUserID(c)

		if !exists {
			resterrors.Unauthorized(c, "")
			return
		}

		user, err := service.CurrentUser(c.Request.Context(), userID)
		if err != nil {
			resterrors.NotFound(c, "user")
			return
		}

		c.JSON(http.StatusOK, UserResponse{User: user})
	}
}

// LogoutHandler godoc
// @Summary Logout
// @Description Clear the stored refresh token so the session can no longer be refreshed
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/logout [post]
// @Security BearerAuth
func LogoutHandler(service *authsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := authsvc.GetUserID(c)

		if !exists {
			resterrors.Unauthorized(c, "")
			return
		}

		if err := service.Logout(c.Request.Context(), userID); err != nil {
			resterrors.InternalError(c, "failed to log out", err)
			return
		}

		if err := gothic.Logout(c.Writer, c.Request); err != nil {
			logger.ErrorErr(err, "failed to clear gothic session")
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
	}
}

func isValidProvider(provider string) bool {
	validProviders := []string{"google", "github"}
	return slices.Contains(validProviders, provider)
}
