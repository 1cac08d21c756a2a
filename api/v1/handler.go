package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pulseboard/internal/config"
	"pulseboard/internal/events"
)

const (
	errRecordFailed = "Failed to record event"

	collectorAllowMethods = "POST,OPTIONS"
	collectorAllowHeaders = "Content-Type"
)

// Collector is the public write path for tracking beacons.
type Collector struct {
	store events.Store
}

func NewCollector(store events.Store) *Collector {
	return &Collector{store: store}
}

// CreateEventAction records one page view.
func (col *Collector) CreateEventAction(ctx *cartridge.Context) error {
	return col.record(ctx, events.EventTypePageView)
}

// CreateClickAction records one click.
func (col *Collector) CreateClickAction(ctx *cartridge.Context) error {
	return col.record(ctx, events.EventTypeClick)
}

// PreflightAction answers OPTIONS with 204. A real preflight is answered by the
// CORS middleware before reaching here; a bare OPTIONS (no Origin or no
// Access-Control-Request-Method) still gets the collector's CORS headers.
func (col *Collector) PreflightAction(ctx *cartridge.Context) error {
	cfg := ctx.Config.(*config.Config)
	if ctx.GetRespHeader(fiber.HeaderAccessControlAllowOrigin) == "" {
		if origin := preflightOrigin(cfg.CORSOrigins(), ctx.Get(fiber.HeaderOrigin)); origin != "" {
			ctx.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		}
	}
	ctx.Set(fiber.HeaderAccessControlAllowMethods, collectorAllowMethods)
	ctx.Set(fiber.HeaderAccessControlAllowHeaders, collectorAllowHeaders)
	return ctx.SendStatus(http.StatusNoContent)
}

// preflightOrigin picks the Allow-Origin value for a bare OPTIONS. With a
// restricted list only a listed Origin is echoed back.
func preflightOrigin(allowed, origin string) string {
	if allowed == "*" {
		return "*"
	}
	for _, o := range strings.Split(allowed, ",") {
		if origin != "" && strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}

func (col *Collector) record(ctx *cartridge.Context, eventType events.EventType) error {
	event, err := parseEvent(ctx.Body(), eventType)
	if err != nil {
		ctx.Logger.Debug("Rejected beacon",
			slog.String("path", ctx.Path()),
			slog.Any("error", err))
		return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := col.store.Append(ctx.UserContext(), event); err != nil {
		ctx.Logger.Error("Failed to record event",
			slog.String("site_id", event.SiteID),
			slog.String("event_type", string(eventType)),
			slog.String("client_ip", clientIP(ctx.Ctx)),
			slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": errRecordFailed})
	}

	ctx.Logger.Debug("Recorded event",
		slog.String("site_id", event.SiteID),
		slog.String("event_type", string(eventType)))
	return ctx.Status(http.StatusCreated).JSON(fiber.Map{"ok": true})
}

// CreateEventBeaconAction handles navigator.sendBeacon calls. Beacons cannot read
// the response, so it always answers 202.
func (col *Collector) CreateEventBeaconAction(ctx *cartridge.Context) error {
	event, err := parseEvent(ctx.Body(), events.EventTypePageView)
	if err != nil {
		ctx.Logger.Debug("Failed to parse beacon request", slog.Any("error", err))
		return ctx.SendStatus(http.StatusAccepted)
	}

	if err := col.store.Append(ctx.UserContext(), event); err != nil {
		ctx.Logger.Error("Failed to record beacon event",
			slog.String("site_id", event.SiteID),
			slog.String("client_ip", clientIP(ctx.Ctx)),
			slog.Any("error", err))
	}
	return ctx.SendStatus(http.StatusAccepted)
}

func parseEvent(body []byte, eventType events.EventType) (*events.TrackingEvent, error) {
	payload, err := events.ParsePayload(body)
	if err != nil {
		return nil, err
	}
	event, err := payload.ToEvent(eventType)
	if err != nil {
		var validationErr *events.ValidationError
		if errors.As(err, &validationErr) {
			return nil, validationErr
		}
		return nil, err
	}
	return event, nil
}
