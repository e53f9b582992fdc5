package handlers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/apperrors"
	"github.com/omnipost/omnipost-api/internal/service"
	"github.com/omnipost/omnipost-api/internal/transfer"
)

// PlatformHandler exposes the generic connection routes; the platform name
// is a path parameter and all provider specifics stay behind ConnectService.
type PlatformHandler struct {
	cs  service.ConnectService
	ps  service.PublishService
	cfg config.Config
}

func NewPlatformHandler(cfg config.Config, cs service.ConnectService, ps service.PublishService) *PlatformHandler {
	return &PlatformHandler{
		cs:  cs,
		ps:  ps,
		cfg: cfg,
	}
}

func (h *PlatformHandler) GetAuthLink(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Params("platform")

	link, err := h.cs.AuthLink(c.Context(), userID, platform)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(link)
}

// CallbackHandler receives the provider redirect. On success the browser is
// sent back to the frontend with a one-time completion token; a user denial
// redirects with an error flag instead of an error page.
func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	platform := c.Params("platform")

	params := transfer.CallbackParams{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		OAuthToken:       c.Query("oauth_token"),
		OAuthVerifier:    c.Query("oauth_verifier"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
		Denied:           c.Query("denied"),
	}

	token, err := h.cs.HandleCallback(c.Context(), platform, params)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindAuthorizationDenied {
			return c.Redirect(h.connectRedirect(platform, url.Values{
				"error": {string(apperrors.KindAuthorizationDenied)},
			}), fiber.StatusTemporaryRedirect)
		}
		return respondError(c, err)
	}

	return c.Redirect(h.connectRedirect(platform, url.Values{
		"token": {token},
	}), fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) connectRedirect(platform string, params url.Values) string {
	return fmt.Sprintf("%s/connect/%s?%s", h.cfg.FrontendURL, platform, params.Encode())
}

func (h *PlatformHandler) CompleteAuth(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Params("platform")

	var req transfer.CompleteAuthRequest
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "token is required",
		})
	}

	account, err := h.cs.CompleteAuth(c.Context(), userID, platform, req.Token)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(account)
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.cs.List(c.Context(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) Disconnect(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Params("platform")

	if err := h.cs.Disconnect(c.Context(), userID, platform); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PlatformHandler) GetStats(c *fiber.Ctx) error {
	userID := GetUserID(c)
	platform := c.Params("platform")

	stats, err := h.ps.Stats(c.Context(), userID, platform)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(stats)
}
