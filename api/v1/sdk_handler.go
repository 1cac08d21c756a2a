package v1

import (
	"bytes"
	_ "embed"
	"log/slog"
	"text/template"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"pulseboard/internal/config"
)

//go:embed sdk.js
var sdkTemplate string

var sdkTmpl = template.Must(template.New("sdk.js").Parse(sdkTemplate))

// GetSDKAction serves the tracking snippet with the collector's base URL baked in.
// The configured public URL wins; otherwise the request's own base URL is used,
// escaped for the JS string literal it lands in.
func GetSDKAction(ctx *cartridge.Context) error {
	cfg := ctx.Config.(*config.Config)

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = template.JSEscapeString(ctx.BaseURL())
		ctx.Vary(fiber.HeaderHost)
	}

	var buf bytes.Buffer
	if err := sdkTmpl.Execute(&buf, map[string]string{"BaseURL": baseURL}); err != nil {
		ctx.Logger.Error("Failed to render SDK template", slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	content := buf.Bytes()
	etag := generateETag(content)
	if ctx.Get(fiber.HeaderIfNoneMatch) == etag {
		ctx.Logger.Debug("ETag match, returning 304", slog.String("etag", etag))
		return ctx.Status(fiber.StatusNotModified).Send(nil)
	}

	ctx.Set(fiber.HeaderContentType, "application/javascript")
	ctx.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	ctx.Set(fiber.HeaderETag, etag)
	ctx.Set("Cross-Origin-Resource-Policy", "cross-origin")
	return ctx.Send(content)
}
