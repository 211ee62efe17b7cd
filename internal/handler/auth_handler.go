package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/storeit/internal/domain"
	"github.com/mansoorceksport/storeit/internal/middleware"
	"github.com/mansoorceksport/storeit/internal/service"
)

const refreshCookieName = "storeit-refresh-token"

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService   *service.AuthService
	tokenService  *service.TokenService
	secureCookies bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, tokenService *service.TokenService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		tokenService:  tokenService,
		secureCookies: secureCookies,
	}
}

type signUpRequest struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

type signInRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyRequest struct {
	ChallengeID string `json:"challenge_id" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

// SignUp handles POST /v1/auth/sign-up
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	challenge, err := h.authService.SignUp(c.UserContext(), req.FullName, req.Email)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    challenge,
	})
}

// SignIn handles POST /v1/auth/sign-in
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	challenge, err := h.authService.SignIn(c.UserContext(), req.Email)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    challenge,
	})
}

// Verify handles POST /v1/auth/verify and opens a session
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	user, err := h.authService.VerifyCode(c.UserContext(), req.ChallengeID, req.Code)
	if err != nil {
		return respondError(c, err)
	}

	return h.openSession(c, user, fiber.Map{})
}

// Firebase handles POST /v1/auth/firebase with a Firebase ID token as bearer
func (h *AuthHandler) Firebase(c *fiber.Ctx) error {
	idToken, ok := middleware.BearerToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "missing authorization header",
		})
	}

	user, isNew, err := h.authService.LoginWithFirebase(c.UserContext(), idToken)
	if err != nil {
		if statusFor(err) == fiber.StatusInternalServerError {
			// Verification failures are the client's problem
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "invalid token",
			})
		}
		return respondError(c, err)
	}

	return h.openSession(c, user, fiber.Map{"is_new_user": isNew})
}

// Refresh handles POST /v1/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Cookies(refreshCookieName)
	if refreshToken == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "no refresh token provided",
		})
	}

	tokenPair, err := h.tokenService.RefreshAccessToken(c.UserContext(), refreshToken, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		h.clearRefreshCookie(c)
		return respondError(c, err)
	}

	h.setRefreshCookie(c, tokenPair.RefreshToken)
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"token":      tokenPair.AccessToken,
			"expires_in": tokenPair.ExpiresIn,
		},
	})
}

// Logout handles POST /v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if refreshToken := c.Cookies(refreshCookieName); refreshToken != "" {
		_ = h.tokenService.RevokeRefreshToken(c.UserContext(), refreshToken)
	}
	h.clearRefreshCookie(c)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// LogoutAll handles POST /v1/auth/logout-all and revokes every session of the caller
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	if err := h.tokenService.RevokeAllUserTokens(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return respondError(c, err)
	}
	h.clearRefreshCookie(c)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out from all devices",
	})
}

// Me handles GET /v1/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.authService.GetUser(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

func (h *AuthHandler) openSession(c *fiber.Ctx, user *domain.User, extra fiber.Map) error {
	tokenPair, err := h.tokenService.GenerateTokenPair(c.UserContext(), user, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		return respondError(c, err)
	}
	h.setRefreshCookie(c, tokenPair.RefreshToken)

	data := fiber.Map{
		"token":      tokenPair.AccessToken,
		"expires_in": tokenPair.ExpiresIn,
		"user":       user,
	}
	for k, v := range extra {
		data[k] = v
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Expires:  time.Now().Add(h.tokenService.RefreshTokenTTL()),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
	})
}
