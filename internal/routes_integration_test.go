package internal

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	v1 "pulseboard/api/v1"
	"pulseboard/internal/config"
	"pulseboard/internal/events"
	dashboard "pulseboard/internal/http"
	"pulseboard/internal/summary"
	"pulseboard/internal/testsupport"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*fiber.App, *gorm.DB) {
	t.Helper()
	cfg := testsupport.TestConfig(t)
	if mutate != nil {
		mutate(cfg)
	}

	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)
	testsupport.CreateTestSite(t, db, "S1", "Cafe")

	store := events.NewGormStore(dbManager, logger)
	handlers := Handlers{
		Collector: v1.NewCollector(store),
		Dashboard: dashboard.NewDashboard(dashboard.DashboardOptions{
			Store:   store,
			Summary: summary.NewService(summary.NewOpenAIClient(summary.OpenAIOptions{}), time.UTC, time.Second, logger),
		}),
	}
	app := testsupport.NewTestServer(t, cfg, db, func(srv *cartridge.Server) {
		MountAppRoutes(srv, cfg, handlers)
	})
	return app, db
}

func TestRoutesRegistered(t *testing.T) {
	app, _ := newTestServer(t, nil)

	want := map[string]bool{
		fiber.MethodPost + " /x/api/v1/events":        false,
		fiber.MethodOptions + " /x/api/v1/events":     false,
		fiber.MethodPost + " /x/api/v1/events/beacon": false,
		fiber.MethodPost + " /x/api/v1/clicks":        false,
		fiber.MethodOptions + " /x/api/v1/clicks":     false,
		fiber.MethodGet + " /y/api/v1/sdk.js":         false,
		fiber.MethodGet + " /api/v1/sites":            false,
		fiber.MethodGet + " /api/v1/sites/:id/stats":  false,
		fiber.MethodGet + " /api/v1/overview":         false,
		fiber.MethodPost + " /api/v1/summary":         false,
		fiber.MethodGet + " /_health":                 false,
	}
	for _, route := range app.GetRoutes(true) {
		key := route.Method + " " + route.Path
		if _, ok := want[key]; ok {
			want[key] = true
		}
	}
	for route, found := range want {
		assert.Truef(t, found, "expected route %s", route)
	}
}

func TestCollectorPreflightAllowsAnyOrigin(t *testing.T) {
	app, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/x/api/v1/events", nil)
	req.Header.Set("Origin", "https://cafe.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Content-Type")
}

func TestCollectorBareOptionsCarriesCORSHeaders(t *testing.T) {
	app, _ := newTestServer(t, nil)

	for _, path := range []string{"/x/api/v1/events", "/x/api/v1/events/beacon", "/x/api/v1/clicks"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodOptions, path, nil))
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode, path)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"), path)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST", path)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Content-Type", path)
	}
}

func TestCollectorAcceptsServerSideCallers(t *testing.T) {
	app, _ := newTestServer(t, nil)

	// No Origin and no Sec-Fetch-Site, as sent by curl or a backend.
	req := httptest.NewRequest(http.MethodPost, "/x/api/v1/events", strings.NewReader(`{"site_id":"S1","path":"/"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCollectorErrorsCarryCORSHeaders(t *testing.T) {
	app, _ := newTestServer(t, nil)

	for _, body := range []string{`{"path":"/"}`, `{"site_id":"NOPE","path":"/"}`} {
		req := httptest.NewRequest(http.MethodPost, "/x/api/v1/events", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", "https://cafe.example.org")
		resp, err := app.Test(req)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, resp.StatusCode, 400)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

func TestCollectorRestrictedOrigins(t *testing.T) {
	app, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.AllowedOrigins = "https://cafe.example.org"
	})

	req := httptest.NewRequest(http.MethodPost, "/x/api/v1/events", strings.NewReader(`{"site_id":"S1","path":"/"}`))
	req.Header.Set("Origin", "https://cafe.example.org")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "https://cafe.example.org", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/x/api/v1/events", strings.NewReader(`{"site_id":"S1","path":"/"}`))
	req.Header.Set("Origin", "https://other.example.org")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCollectorRateLimit(t *testing.T) {
	app, _ := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimitPerMinute = 2
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x/api/v1/events", strings.NewReader(`{"site_id":"S1","path":"/"}`))
		resp, err := app.Test(req)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, statuses)
}

func TestIngestThenStats(t *testing.T) {
	app, _ := newTestServer(t, nil)

	for _, body := range []string{
		`{"site_id":"S1","path":"/a"}`,
		`{"site_id":"S1","path":"/a"}`,
		`{"site_id":"S1","path":"/menu?qr=door"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/x/api/v1/events", strings.NewReader(body))
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/sites/S1/stats?window=1d", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"totalPeriod":3`)
	assert.Contains(t, string(body), `"totalQRScans":1`)
	assert.Contains(t, string(body), `"hasBaseline":false`)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestSummaryWithoutAPIKey(t *testing.T) {
	app, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/summary", strings.NewReader(`{"events":[],"userQuestion":"Hi?"}`))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
