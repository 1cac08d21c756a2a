package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pulseboard/internal/http/middleware"
	"pulseboard/internal/timeframe"
	"pulseboard/internal/websites"
)

// SitesIndexAction lists registered sites.
func (d *Dashboard) SitesIndexAction(ctx *cartridge.Context) error {
	sites, err := websites.GetAllSites(ctx.DB().WithContext(ctx.UserContext()))
	if err != nil {
		ctx.Logger.Error("Failed to list sites", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list sites"})
	}
	return ctx.JSON(fiber.Map{"sites": sites})
}

// SiteStatsAction aggregates one site over the ?window= query parameter.
// Requires middleware.SiteFilter.
func (d *Dashboard) SiteStatsAction(ctx *cartridge.Context) error {
	window, err := timeframe.ParseWindow(ctx.Query("window"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	site := middleware.CurrentSite(ctx.Ctx)
	stats, err := d.siteStats(ctx.UserContext(), site, window)
	if err != nil {
		ctx.Logger.Error("Failed to load site stats",
			slog.String("site_id", site.ID),
			slog.String("window", window.String()),
			slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load stats"})
	}

	return ctx.JSON(fiber.Map{"site": site, "stats": stats})
}
