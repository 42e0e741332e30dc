package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/VolunteerHub/internal/config"
	"github.com/saeid-a/VolunteerHub/pkg/utils"
)

func newTestApp(t *testing.T, enableMetrics bool) *fiber.App {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	app := fiber.New()
	cfg := &config.Config{
		JWTSecret:         "routes-secret",
		EnableMetrics:     enableMetrics,
		SendRatePerSecond: 1,
		SendBurst:         1,
	}
	if err := RegisterRoutes(ctx, app, cfg, nil, nil); err != nil {
		t.Fatalf("RegisterRoutes: %v", err)
	}
	return app
}

func TestRegisterRoutesRequiresConfig(t *testing.T) {
	if err := RegisterRoutes(context.Background(), fiber.New(), nil, nil, nil); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestProtectedRoutesRejectAnonymousRequests(t *testing.T) {
	app := newTestApp(t, false)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/conversations"},
		{http.MethodGet, "/api/v1/conversations/3/messages"},
		{http.MethodPost, "/api/v1/conversations/3/read"},
		{http.MethodPost, "/api/v1/messages"},
		{http.MethodGet, "/api/v1/ws"},
	}
	for _, p := range paths {
		resp, err := app.Test(httptest.NewRequest(p.method, p.path, nil))
		if err != nil {
			t.Fatalf("app.Test %s %s: %v", p.method, p.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", p.method, p.path, resp.StatusCode)
		}
	}
}

func TestWebSocketRouteAcceptsQueryToken(t *testing.T) {
	app := newTestApp(t, false)
	token, err := utils.GenerateToken("5", "volunteer", "routes-secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ws?token="+token, nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426 for authenticated plain request, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !strings.Contains(string(body), "volunteerhub_ws_clients") {
		t.Fatalf("expected volunteerhub metrics in output")
	}

	disabled := newTestApp(t, false)
	resp, err = disabled.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 with metrics disabled, got %d", resp.StatusCode)
	}
}
