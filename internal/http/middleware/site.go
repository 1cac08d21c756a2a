package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"pulseboard/internal/websites"
)

// SiteLocalKey is the fiber.Ctx local holding the *websites.Site loaded by SiteFilter.
const SiteLocalKey = "site"

// SiteFilter loads the site named by the :id route parameter and stores it in the
// request locals. Unknown sites get a 404.
func SiteFilter(db *gorm.DB, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		siteID := c.Params("id")
		site, err := websites.GetSiteOrNotFound(db.WithContext(c.UserContext()), siteID)
		if err != nil {
			var notFound *websites.SiteNotFoundError
			if errors.As(err, &notFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Site not found"})
			}
			logger.Error("Failed to load site", slog.String("site_id", siteID), slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load site"})
		}

		c.Locals(SiteLocalKey, site)
		return c.Next()
	}
}

// CurrentSite returns the site stored by SiteFilter.
func CurrentSite(c *fiber.Ctx) *websites.Site {
	site, _ := c.Locals(SiteLocalKey).(*websites.Site)
	return site
}
