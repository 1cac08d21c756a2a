package websites

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SiteNotFoundError represents an error when a site id has no registered site
type SiteNotFoundError struct {
	SiteID string
}

func (e *SiteNotFoundError) Error() string {
	return fmt.Sprintf("site not found: %s", e.SiteID)
}

// NewSiteNotFoundError creates a new SiteNotFoundError
func NewSiteNotFoundError(siteID string) *SiteNotFoundError {
	return &SiteNotFoundError{SiteID: siteID}
}

// Site represents a tenant's tracked website
type Site struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	URL       string    `gorm:"not null" json:"url"`
	Domain    string    `gorm:"index" json:"domain"` // Base domain derived from URL, e.g. "example.com"
	CreatedAt time.Time `json:"created_at"`
}

// CreateSite validates and stores a new site. An empty ID gets a generated one.
func CreateSite(db *gorm.DB, site *Site) error {
	site.Name = strings.TrimSpace(site.Name)
	if site.Name == "" {
		return fmt.Errorf("site name is required")
	}

	parsed, err := url.Parse(strings.TrimSpace(site.URL))
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("invalid site url: %q", site.URL)
	}

	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	site.URL = parsed.String()
	site.Domain = BaseDomainForHost(parsed.Hostname())
	site.CreatedAt = time.Now().UTC()

	return db.Create(site).Error
}

// GetSiteOrNotFound retrieves a Site by id.
// It accepts a transaction to be used as part of a larger write.
func GetSiteOrNotFound(tx *gorm.DB, siteID string) (*Site, error) {
	var site Site
	if err := tx.Where("id = ?", siteID).First(&site).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewSiteNotFoundError(siteID)
		}
		return nil, fmt.Errorf("unexpected error querying site: %w", err)
	}
	return &site, nil
}

// GetAllSites retrieves all sites ordered by creation
func GetAllSites(db *gorm.DB) ([]Site, error) {
	var sites []Site
	if err := db.Order("created_at ASC, id ASC").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("failed to get sites: %w", err)
	}
	return sites, nil
}

// BaseDomainForHost returns the canonical base domain for a hostname, preserving localhost
// semantics while collapsing known subdomain patterns (e.g. foo.example.com -> example.com).
func BaseDomainForHost(host string) string {
	return stripSubdomains(host)
}

// stripSubdomains extracts the base domain from a hostname
func stripSubdomains(host string) string {
	parts := strings.Split(strings.ToLower(host), ".")
	if len(parts) < 2 {
		return host // e.g., "localhost" -> "localhost"
	}

	lastPart := parts[len(parts)-1]
	if lastPart == "localhost" {
		return "localhost"
	}

	secondLast := parts[len(parts)-2]

	// Country TLDs that use a two-part suffix
	ccTLDPatterns := map[string]bool{
		"co.uk":  true,
		"co.jp":  true,
		"co.za":  true,
		"co.nz":  true,
		"co.in":  true,
		"com.au": true,
		"com.br": true,
		"org.uk": true,
		"gov.uk": true,
		"edu.au": true,
		"ac.uk":  true,
		"ne.jp":  true,
		"or.jp":  true,
	}

	if len(parts) > 2 {
		twoPartTLD := fmt.Sprintf("%s.%s", secondLast, lastPart)
		if ccTLDPatterns[twoPartTLD] {
			thirdLast := parts[len(parts)-3]
			return fmt.Sprintf("%s.%s.%s", thirdLast, secondLast, lastPart) // e.g., "example.co.uk"
		}
	}

	return fmt.Sprintf("%s.%s", secondLast, lastPart)
}
