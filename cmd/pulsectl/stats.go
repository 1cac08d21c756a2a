package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pulseboard/internal"
	"pulseboard/internal/analytics"
	"pulseboard/internal/events"
	"pulseboard/internal/timeframe"
	"pulseboard/internal/websites"
)

func newStatsCmd() *cobra.Command {
	var window string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats SITE_ID",
		Short: "Print a site's metrics for a window (7d, 30d, all, 2024-03-15)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := timeframe.ParseWindow(window)
			if err != nil {
				return err
			}

			return withApp(func(app *internal.Application) error {
				ctx := cmd.Context()
				site, err := websites.GetSiteOrNotFound(app.DBManager.GetConnection().WithContext(ctx), args[0])
				if err != nil {
					return err
				}

				loc := app.Config.Location()
				now := time.Now().In(loc)
				r := w.QueryRange(now, loc)
				evts, err := app.Store.QueryRange(ctx, site.ID, r.From, r.To)
				if err != nil {
					return err
				}
				stats := analytics.Aggregate(evts, w, now, loc)
				if err := applyCatalog(&stats, app.Config.QRCatalogPath); err != nil {
					return err
				}

				if asJSON || !isTerminal(cmd.OutOrStdout()) {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(stats)
				}
				renderStats(cmd.OutOrStdout(), site, stats)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&window, "window", "w", timeframe.DefaultWindow.String(), "time window")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON even on a terminal")
	return cmd
}

// applyCatalog names the QR codes in stats from the catalog at path. An empty
// path leaves labels as they are.
func applyCatalog(stats *analytics.Summary, path string) error {
	catalog, err := events.LoadQRCatalog(path)
	if err != nil {
		return fmt.Errorf("failed to load qr catalog: %w", err)
	}
	stats.ApplyCatalog(catalog)
	return nil
}

func renderStats(w io.Writer, site *websites.Site, s analytics.Summary) {
	fmt.Fprintf(w, "%s (%s), window %s\n\n", site.Name, site.ID, s.Window)
	fmt.Fprintf(w, "  Visits:          %d\n", s.TotalPeriod)
	if s.HasBaseline {
		fmt.Fprintf(w, "  Previous period: %d (%+.1f%%)\n", s.PreviousPeriod, s.Growth)
	} else {
		fmt.Fprintf(w, "  Previous period: %d (no baseline)\n", s.PreviousPeriod)
	}
	fmt.Fprintf(w, "  Unique visitors: %d\n", s.UniqueVisitors)
	fmt.Fprintf(w, "  QR scans:        %d (%.1f%% of visits)\n", s.TotalQRScans, s.QRShare)

	if top, ok := s.MostUsedQRCode(); ok {
		name := top.Label
		if top.Name != "" {
			name = top.Name
		}
		fmt.Fprintf(w, "  Top QR code:     %s (%d)\n", name, top.Count)
	}

	if len(s.TopPaths) > 0 {
		fmt.Fprintln(w, "\n  Top paths:")
		for _, p := range s.TopPaths {
			fmt.Fprintf(w, "    %-30s %d\n", p.Label, p.Count)
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
