// Package http holds the dashboard's JSON handlers.
package http

import (
	"context"
	"time"

	"pulseboard/internal/analytics"
	"pulseboard/internal/events"
	"pulseboard/internal/pkg/async"
	"pulseboard/internal/summary"
	"pulseboard/internal/timeframe"
	"pulseboard/internal/websites"
)

const defaultOverviewWorkers = 4

type DashboardOptions struct {
	Store    events.Store
	Summary  *summary.Service
	Catalog  *events.QRCatalog
	Clock    timeframe.TimeProvider
	Location *time.Location
	Workers  int
}

// Dashboard serves read-side requests: site listings, per-site stats, the
// multi-site overview and language model summaries. Sites are read through
// the request's cartridge DB connection.
type Dashboard struct {
	store   events.Store
	summary *summary.Service
	catalog *events.QRCatalog
	clock   timeframe.TimeProvider
	loc     *time.Location
	pool    *async.Pool
}

func NewDashboard(opts DashboardOptions) *Dashboard {
	if opts.Clock == nil {
		opts.Clock = &timeframe.DefaultTimeProvider{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultOverviewWorkers
	}
	return &Dashboard{
		store:   opts.Store,
		summary: opts.Summary,
		catalog: opts.Catalog,
		clock:   opts.Clock,
		loc:     opts.Location,
		pool:    async.NewPool(opts.Workers),
	}
}

// siteStats loads the window's events for site and aggregates them.
func (d *Dashboard) siteStats(ctx context.Context, site *websites.Site, window timeframe.Window) (analytics.Summary, error) {
	now := d.clock.Now(d.loc)
	r := window.QueryRange(now, d.loc)

	evts, err := d.store.QueryRange(ctx, site.ID, r.From, r.To)
	if err != nil {
		return analytics.Summary{}, err
	}

	stats := analytics.Aggregate(evts, window, now, d.loc)
	stats.ApplyCatalog(d.catalog)
	return stats, nil
}
