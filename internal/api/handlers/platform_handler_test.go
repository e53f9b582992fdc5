package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/omnipost/omnipost-api/configs"
	"github.com/omnipost/omnipost-api/internal/transfer"
)

type stubConnectService struct {
	disconnectCalls int
	lastPlatform    string
	lastUserID      int64
}

func (s *stubConnectService) AuthLink(ctx context.Context, userID int64, platform string) (*transfer.AuthLinkResponse, error) {
	return &transfer.AuthLinkResponse{AuthURL: "https://provider.example.com/authorize"}, nil
}

func (s *stubConnectService) HandleCallback(ctx context.Context, platform string, params transfer.CallbackParams) (string, error) {
	return "completion-token", nil
}

func (s *stubConnectService) CompleteAuth(ctx context.Context, userID int64, platform, completionToken string) (*transfer.ConnectedAccount, error) {
	return &transfer.ConnectedAccount{Platform: platform, IsConnected: true}, nil
}

func (s *stubConnectService) List(ctx context.Context, userID int64) ([]*transfer.ConnectedAccount, error) {
	return nil, nil
}

func (s *stubConnectService) Disconnect(ctx context.Context, userID int64, platform string) error {
	s.disconnectCalls++
	s.lastPlatform = platform
	s.lastUserID = userID
	return nil
}

// newPlatformApp mounts the platform routes the way the server does.
func newPlatformApp(cs *stubConnectService) *fiber.App {
	h := NewPlatformHandler(config.Config{}, cs, nil)

	app := fiber.New()
	api := app.Group("/api")
	api.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "7")
		return c.Next()
	})
	api.Get("/:platform/auth", h.GetAuthLink)
	api.Delete("/:platform/disconnect", h.Disconnect)
	api.Post("/:platform/disconnect", h.Disconnect)
	return app
}

func TestDisconnectRoute(t *testing.T) {
	cs := &stubConnectService{}
	app := newPlatformApp(cs)

	req := httptest.NewRequest(http.MethodDelete, "/api/twitter/disconnect", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, cs.disconnectCalls)
	assert.Equal(t, "twitter", cs.lastPlatform)
	assert.Equal(t, int64(7), cs.lastUserID)

	// The POST alias stays routed for older clients.
	req = httptest.NewRequest(http.MethodPost, "/api/twitter/disconnect", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, cs.disconnectCalls)
}
