package websites_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseboard/internal/testsupport"
	"pulseboard/internal/websites"
)

func TestCreateSite(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	t.Run("Explicit id is kept", func(t *testing.T) {
		site := websites.Site{ID: "S1", Name: " Bakery ", URL: "https://www.bakery.co.uk/menu"}
		require.NoError(t, websites.CreateSite(db, &site))

		assert.Equal(t, "S1", site.ID)
		assert.Equal(t, "Bakery", site.Name)
		assert.Equal(t, "bakery.co.uk", site.Domain)
		assert.False(t, site.CreatedAt.IsZero())
	})

	t.Run("Missing id is generated", func(t *testing.T) {
		site := websites.Site{Name: "Cafe", URL: "https://cafe.example.com"}
		require.NoError(t, websites.CreateSite(db, &site))
		assert.Len(t, site.ID, 36)
	})

	t.Run("Invalid input is rejected", func(t *testing.T) {
		assert.Error(t, websites.CreateSite(db, &websites.Site{Name: "", URL: "https://x.com"}))
		assert.Error(t, websites.CreateSite(db, &websites.Site{Name: "No host", URL: "not a url"}))
	})

	t.Run("Duplicate id fails", func(t *testing.T) {
		site := websites.Site{ID: "S1", Name: "Again", URL: "https://again.com"}
		assert.Error(t, websites.CreateSite(db, &site))
	})

	t.Run("Listing is in creation order", func(t *testing.T) {
		sites, err := websites.GetAllSites(db)
		require.NoError(t, err)
		require.Len(t, sites, 2)
		assert.Equal(t, "S1", sites[0].ID)
		assert.Equal(t, "Cafe", sites[1].Name)
	})
}

func TestGetSiteOrNotFound(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	created := testsupport.CreateTestSite(t, db, "S1", "Site one")

	t.Run("Known id", func(t *testing.T) {
		site, err := websites.GetSiteOrNotFound(db, "S1")
		require.NoError(t, err)
		assert.Equal(t, created.ID, site.ID)
		assert.Equal(t, "example.com", site.Domain)
	})

	t.Run("Unknown id", func(t *testing.T) {
		site, err := websites.GetSiteOrNotFound(db, "S9")
		assert.Nil(t, site)

		var notFound *websites.SiteNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "S9", notFound.SiteID)
	})
}

func TestBaseDomainForHost(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		expected string
	}{
		{"Simple subdomain", "www.example.com", "example.com"},
		{"Multiple subdomains", "api.v1.example.com", "example.com"},
		{"No subdomain", "example.com", "example.com"},
		{"Country code TLD", "www.example.co.uk", "example.co.uk"},
		{"Uppercase host", "WWW.Example.COM", "example.com"},
		{"Localhost", "localhost", "localhost"},
		{"Single part domain", "example", "example"},
		{"Localhost subdomain", "sub.localhost", "localhost"},
		{"Deep localhost subdomain", "api.v1.localhost", "localhost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, websites.BaseDomainForHost(tt.hostname))
		})
	}
}
