package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "pulseboard/api/v1"
	"pulseboard/internal/config"
	"pulseboard/internal/http"
	"pulseboard/internal/http/middleware"
)

// Handlers groups the route targets mounted by MountAppRoutes.
type Handlers struct {
	Collector *v1.Collector
	Dashboard *http.Dashboard
}

// publicCORSConfig is the permissive setup for the collector. The collector is a
// public write sink, so any configured origin (default "*") may post to it.
func publicCORSConfig(cfg *config.Config) *cors.Config {
	return &cors.Config{
		AllowOrigins: cfg.CORSOrigins(),
		AllowMethods: "POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}
}

// MountAppRoutes mounts the collector, the SDK, the dashboard API and the
// health check on srv.
func MountAppRoutes(srv *cartridge.Server, cfg *config.Config, h Handlers) {
	db := srv.GetDBManager().GetConnection()
	logger := srv.GetLogger()

	srv.App().Use(middleware.RequestID())

	// ============================================
	// PUBLIC COLLECTOR PROTECTION
	// - CORS first, so rate limit, timeout and error responses still carry the
	//   headers a browser needs to surface the real status
	// - Rate limiting per client IP when configured
	// - A deadline on the store write
	// Beacons come from any page and from server-side callers, so Sec-Fetch-Site
	// validation is off.
	// ============================================
	collectorMiddleware := []fiber.Handler{}
	if cfg.RateLimitPerMinute > 0 {
		collectorMiddleware = append(collectorMiddleware, cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(cfg.RateLimitPerMinute),
			cartridgemiddleware.WithDuration(time.Minute),
		))
	}
	collectorMiddleware = append(collectorMiddleware, middleware.Deadline(cfg.IngestTimeout()))

	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         publicCORSConfig(cfg),
		CustomMiddleware:   collectorMiddleware,
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// SDK delivery: GET only, cacheable, loaded by <script> tags on any origin
	sdkConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		CORSConfig:         publicCORSConfig(cfg),
		EnableSecFetchSite: cartridge.Bool(false),
	}

	// Dashboard API: read-mostly JSON consumed by the dashboard and by scripts
	dashboardAPIConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
	}

	siteAPIConfig := &cartridge.RouteConfig{
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware: []fiber.Handler{
			middleware.SiteFilter(db, logger),
		},
	}

	// === PUBLIC COLLECTOR ROUTES ===
	srv.Post("/x/api/v1/events", h.Collector.CreateEventAction, publicAPIConfig)
	srv.Options("/x/api/v1/events", h.Collector.PreflightAction, publicAPIConfig)
	srv.Post("/x/api/v1/events/beacon", h.Collector.CreateEventBeaconAction, publicAPIConfig)
	srv.Options("/x/api/v1/events/beacon", h.Collector.PreflightAction, publicAPIConfig)
	srv.Post("/x/api/v1/clicks", h.Collector.CreateClickAction, publicAPIConfig)
	srv.Options("/x/api/v1/clicks", h.Collector.PreflightAction, publicAPIConfig)

	// === SDK ROUTES ===
	srv.Get("/y/api/v1/sdk.js", v1.GetSDKAction, sdkConfig)

	// === DASHBOARD API ===
	srv.Get("/api/v1/sites", h.Dashboard.SitesIndexAction, dashboardAPIConfig)
	srv.Get("/api/v1/sites/:id/stats", h.Dashboard.SiteStatsAction, siteAPIConfig)
	srv.Get("/api/v1/overview", h.Dashboard.OverviewAction, dashboardAPIConfig)
	srv.Post("/api/v1/summary", h.Dashboard.SummaryAction, dashboardAPIConfig)

	// Health check endpoint
	srv.Get("/_health", h.Dashboard.HealthIndexAction)
	srv.Head("/_health", h.Dashboard.HealthIndexAction)
}
