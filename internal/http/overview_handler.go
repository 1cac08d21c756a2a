package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pulseboard/internal/analytics"
	"pulseboard/internal/pkg/async"
	"pulseboard/internal/timeframe"
	"pulseboard/internal/websites"
)

type overviewEntry struct {
	Site  websites.Site      `json:"site"`
	Stats *analytics.Summary `json:"stats,omitempty"`
	Error string             `json:"error,omitempty"`
}

type overviewTotals struct {
	TotalPeriod  int     `json:"totalPeriod"`
	TotalQRScans int     `json:"totalQRScans"`
	QRShare      float64 `json:"qrShare"`
}

// OverviewAction aggregates every site concurrently. A failing site is reported
// inline and does not fail the whole response.
func (d *Dashboard) OverviewAction(ctx *cartridge.Context) error {
	window, err := timeframe.ParseWindow(ctx.Query("window"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	reqCtx := ctx.UserContext()
	sites, err := websites.GetAllSites(ctx.DB().WithContext(reqCtx))
	if err != nil {
		ctx.Logger.Error("Failed to list sites", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list sites"})
	}

	tasks := make([]async.Task[analytics.Summary], len(sites))
	for i := range sites {
		site := &sites[i]
		tasks[i] = async.Task[analytics.Summary]{
			Name: site.ID,
			Execute: func(ctx context.Context) (analytics.Summary, error) {
				return d.siteStats(ctx, site, window)
			},
		}
	}
	results := async.Execute(reqCtx, d.pool, tasks)

	entries := make([]overviewEntry, len(sites))
	totals := overviewTotals{}
	for i, site := range sites {
		entries[i] = overviewEntry{Site: site}
		result := results[site.ID]
		if result.Err != nil {
			ctx.Logger.Error("Failed to aggregate site",
				slog.String("site_id", site.ID),
				slog.Any("error", result.Err))
			entries[i].Error = "Failed to load stats"
			continue
		}
		stats := result.Data
		entries[i].Stats = &stats
		totals.TotalPeriod += stats.TotalPeriod
		totals.TotalQRScans += stats.TotalQRScans
	}
	totals.QRShare = analytics.QRShare(totals.TotalQRScans, totals.TotalPeriod)

	return ctx.JSON(fiber.Map{
		"window": window.String(),
		"totals": totals,
		"sites":  entries,
	})
}
