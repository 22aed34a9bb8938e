package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"sift_server/adapter/out/provider"
	"sift_server/pkg/apperr"
	"sift_server/pkg/logger"
	"sift_server/pkg/response"
)

type OAuthHandler struct {
	gmail *provider.GmailAdapter
}

func NewOAuthHandler(gmail *provider.GmailAdapter) *OAuthHandler {
	return &OAuthHandler{gmail: gmail}
}

func (h *OAuthHandler) Register(app fiber.Router) {
	oauth := app.Group("/oauth")
	oauth.Get("/url", h.AuthURL)
	oauth.Get("/callback", h.Callback)
	oauth.Get("/status", h.Status)
}

func generateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// AuthURL returns the Google consent URL to visit.
// GET /oauth/url
func (h *OAuthHandler) AuthURL(c *fiber.Ctx) error {
	state, err := generateState()
	if err != nil {
		return apperr.Internal("failed to generate state", err)
	}
	return response.OK(c, fiber.Map{
		"auth_url": h.gmail.GetAuthURL(state),
		"state":    state,
	})
}

// Callback exchanges the authorization code and stores the token.
// GET /oauth/callback?code=...
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		logger.WithField("oauth_error", errParam).Warn("OAuth consent denied")
		return response.Error(c, fiber.StatusBadRequest, apperr.CodeOAuthFailed, "consent was denied: "+errParam)
	}

	code := c.Query("code")
	if code == "" {
		return response.BadRequest(c, "authorization code is required")
	}

	if err := h.gmail.ExchangeToken(c.Context(), code); err != nil {
		logger.WithError(err).Error("OAuth code exchange failed")
		return apperr.New(apperr.CodeOAuthFailed, "failed to exchange authorization code", fiber.StatusBadGateway).Wrap(err)
	}

	logger.Info("Gmail account connected")
	return response.OK(c, fiber.Map{"status": "connected"})
}

// Status reports whether a Gmail token is stored.
// GET /oauth/status
func (h *OAuthHandler) Status(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{"connected": h.gmail.HasToken()})
}
