package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pulseboard/internal"
	"pulseboard/internal/events"
	"pulseboard/internal/seeder"
	"pulseboard/internal/websites"
)

func newSiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Register and list tracked sites",
	}
	cmd.AddCommand(newSiteAddCmd(), newSiteListCmd())
	return cmd
}

func newSiteAddCmd() *cobra.Command {
	var id, name, siteURL string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *internal.Application) error {
				site := websites.Site{ID: id, Name: name, URL: siteURL}
				if err := websites.CreateSite(app.DBManager.GetConnection().WithContext(cmd.Context()), &site); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Site %s created (id %s)\n", site.Name, site.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "site id used by the tracking snippet (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&siteURL, "url", "", "public URL of the site")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("url")
	return cmd
}

func newSiteListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *internal.Application) error {
				sites, err := websites.GetAllSites(app.DBManager.GetConnection().WithContext(cmd.Context()))
				if err != nil {
					return err
				}
				if asJSON || !isTerminal(cmd.OutOrStdout()) {
					return json.NewEncoder(cmd.OutOrStdout()).Encode(sites)
				}
				return renderSites(cmd.OutOrStdout(), sites)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON even on a terminal")
	return cmd
}

func renderSites(w io.Writer, sites []websites.Site) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDOMAIN\tCREATED")
	for _, s := range sites {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Domain, s.CreatedAt.Format("2006-01-02"))
	}
	return tw.Flush()
}

func newSeedCmd() *cobra.Command {
	var siteID string
	var count int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write demo traffic (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(app *internal.Application) error {
				if app.Config.IsProduction() {
					return fmt.Errorf("refusing to seed a production database")
				}
				writer, ok := app.Store.(events.BulkWriter)
				if !ok {
					return fmt.Errorf("event store %T does not support bulk import", app.Store)
				}
				s := seeder.NewSeeder(app.DBManager.GetConnection(), writer, app.Logger, count)
				if siteID != "" {
					return s.SeedSite(cmd.Context(), siteID)
				}
				return s.SeedDemoSites(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&siteID, "site", "", "seed only this existing site")
	cmd.Flags().IntVar(&count, "events", 2000, "events to write per site")
	return cmd
}
