// Package seeder fills a database with demo sites and plausible traffic,
// including QR-code scans, so dashboards have something to show.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pulseboard/internal/events"
	"pulseboard/internal/websites"
)

const batchSize = 500

// DemoSites are created by SeedDemoSites when missing.
var DemoSites = []websites.Site{
	{ID: "cafe-luna", Name: "Cafe Luna", URL: "https://cafe-luna.example.com"},
	{ID: "bakery-sol", Name: "Bakery Sol", URL: "https://bakery-sol.example.com"},
	{ID: "bookshop-9", Name: "Bookshop Nine", URL: "https://bookshop-9.example.com"},
}

// Seeder writes synthetic events through the configured event store, so the
// traffic lands where the dashboard reads it. Sites always live in DB.
// Timestamps are spread over Days before Now.
type Seeder struct {
	DB         *gorm.DB
	Store      events.BulkWriter
	Logger     *slog.Logger
	EventCount int
	Days       int
	Now        func() time.Time
	rand       *rand.Rand
}

// NewSeeder creates a seeder writing eventCount events per site over the last 30 days.
func NewSeeder(db *gorm.DB, store events.BulkWriter, logger *slog.Logger, eventCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DB:         db,
		Store:      store,
		Logger:     logger,
		EventCount: eventCount,
		Days:       30,
		Now:        time.Now,
		rand:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 42)),
	}
}

// WithSeed makes the generated traffic reproducible.
func (s *Seeder) WithSeed(seed uint64) *Seeder {
	s.rand = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return s
}

// SeedDemoSites creates the demo sites and seeds each of them.
func (s *Seeder) SeedDemoSites(ctx context.Context) error {
	start := time.Now()
	for _, demo := range DemoSites {
		site := demo
		if _, err := websites.GetSiteOrNotFound(s.DB, site.ID); err != nil {
			if err := websites.CreateSite(s.DB, &site); err != nil {
				return fmt.Errorf("failed to create site %s: %w", site.ID, err)
			}
			s.Logger.Info("Site created", slog.String("site_id", site.ID))
		}
		if err := s.SeedSite(ctx, site.ID); err != nil {
			return err
		}
	}
	s.Logger.Info("Demo seeding completed", slog.Int("sites", len(DemoSites)), slog.Duration("elapsed", time.Since(start)))
	return nil
}

// SeedSite writes EventCount events for an existing site.
func (s *Seeder) SeedSite(ctx context.Context, siteID string) error {
	if _, err := websites.GetSiteOrNotFound(s.DB.WithContext(ctx), siteID); err != nil {
		return err
	}

	generated := s.generate(siteID)
	for startIdx := 0; startIdx < len(generated); startIdx += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := generated[startIdx:min(startIdx+batchSize, len(generated))]
		if err := s.Store.Import(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert events for %s: %w", siteID, err)
		}
	}

	s.Logger.Info("Site seeded", slog.String("site_id", siteID), slog.Int("events", len(generated)))
	return nil
}

// generate builds visitor journeys until EventCount events exist. Paths and
// referrers go through the same payload rules the collector applies.
func (s *Seeder) generate(siteID string) []events.TrackingEvent {
	journeys := [][]string{
		{"/", "/menu", "/contact"},
		{"/", "/about"},
		{"/menu", "/menu/drinks", "/menu/desserts"},
		{"/", "/events", "/events/open-mic"},
		{"/opening-hours"},
		{"/", "/menu", "/order", "/order/confirmed"},
	}
	referrers := []string{
		"",
		"",
		"https://google.com",
		"https://maps.example.com",
		"https://instagram.com",
		"https://facebook.com",
		"android-app://com.google.android.gm",
	}
	qrLabels := []string{"table-1", "table-2", "table-4", "window-poster", "flyer-a", ""}

	now := s.Now()
	window := time.Duration(s.Days) * 24 * time.Hour
	out := make([]events.TrackingEvent, 0, s.EventCount)

	for len(out) < s.EventCount {
		journey := journeys[s.rand.IntN(len(journeys))]
		visitor := uuid.NewString()
		at := now.Add(-time.Duration(s.rand.Int64N(int64(window))))

		for i, path := range journey {
			if len(out) >= s.EventCount {
				break
			}
			referrer := ""
			if i == 0 {
				referrer = referrers[s.rand.IntN(len(referrers))]
				if s.rand.Float64() < 0.3 {
					path = withQR(path, qrLabels[s.rand.IntN(len(qrLabels))])
				}
			}

			event, err := s.toEvent(siteID, path, visitor, referrer, i > 0 && s.rand.Float64() < 0.15)
			if err != nil {
				s.Logger.Warn("Skipping generated event", slog.String("path", path), slog.Any("error", err))
				continue
			}
			if at.After(now) {
				at = now
			}
			event.CreatedAt = at.UTC()
			out = append(out, *event)

			at = at.Add(time.Duration(s.rand.IntN(110)+10) * time.Second)
		}
	}
	return out
}

func (s *Seeder) toEvent(siteID, path, visitor, referrer string, click bool) (*events.TrackingEvent, error) {
	payload := events.Payload{
		SiteID:       []byte(fmt.Sprintf("%q", siteID)),
		Path:         &path,
		VisitorToken: &visitor,
		Referrer:     &referrer,
	}
	eventType := events.EventTypePageView
	if click {
		eventType = events.EventTypeClick
	}
	return payload.ToEvent(eventType)
}

func withQR(path, label string) string {
	params := url.Values{}
	params.Set(events.QRQueryParam, label)
	return path + "?" + params.Encode()
}
