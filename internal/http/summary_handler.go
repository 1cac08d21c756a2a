package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pulseboard/internal/events"
	"pulseboard/internal/summary"
	"pulseboard/internal/timeframe"
	"pulseboard/internal/websites"
)

const (
	errSummaryRateLimited = "The summary service is busy right now. Please try again later."
	errSummaryTimeout     = "The summary service took too long to answer. Please try again."
	errSummaryFailed      = "Failed to generate summary"
)

// summaryRequest carries either the events themselves or a site and window to
// load them from.
type summaryRequest struct {
	Events       []events.TrackingEvent `json:"events"`
	SiteName     string                 `json:"siteName"`
	UserQuestion string                 `json:"userQuestion"`
	SiteID       string                 `json:"siteId"`
	Window       string                 `json:"window"`
}

// SummaryAction answers the owner's question about recent traffic.
func (d *Dashboard) SummaryAction(ctx *cartridge.Context) error {
	var req summaryRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if strings.TrimSpace(req.UserQuestion) == "" {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userQuestion is required"})
	}

	reqCtx := ctx.UserContext()

	if req.Events == nil && req.SiteID != "" {
		window, err := timeframe.ParseWindow(req.Window)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		site, err := websites.GetSiteOrNotFound(ctx.DB().WithContext(reqCtx), req.SiteID)
		if err != nil {
			var notFound *websites.SiteNotFoundError
			if errors.As(err, &notFound) {
				return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Site not found"})
			}
			ctx.Logger.Error("Failed to load site", slog.String("site_id", req.SiteID), slog.Any("error", err))
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errSummaryFailed})
		}
		if req.SiteName == "" {
			req.SiteName = site.Name
		}

		current := window.Bounds(d.clock.Now(d.loc), d.loc).Current
		req.Events, err = d.store.QueryRange(reqCtx, site.ID, current.From, current.To)
		if err != nil {
			ctx.Logger.Error("Failed to load events for summary", slog.String("site_id", site.ID), slog.Any("error", err))
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errSummaryFailed})
		}
	}

	text, err := d.summary.Summarize(reqCtx, summary.Request{
		Events:   req.Events,
		SiteName: req.SiteName,
		Question: req.UserQuestion,
	})
	if err != nil {
		status, message := summaryErrorResponse(err)
		if status == fiber.StatusInternalServerError {
			ctx.Logger.Error("Summary failed", slog.Any("error", err))
		}
		return ctx.Status(status).JSON(fiber.Map{"error": message})
	}

	return ctx.JSON(fiber.Map{"text": text})
}

// summaryErrorResponse maps adapter errors to a status and a message safe to show.
func summaryErrorResponse(err error) (int, string) {
	var validationErr *events.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return fiber.StatusBadRequest, validationErr.Error()
	case errors.Is(err, summary.ErrRateLimited):
		return fiber.StatusTooManyRequests, errSummaryRateLimited
	case errors.Is(err, summary.ErrTimeout):
		return fiber.StatusGatewayTimeout, errSummaryTimeout
	default:
		return fiber.StatusInternalServerError, errSummaryFailed
	}
}
