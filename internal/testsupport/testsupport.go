package testsupport

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pulseboard/internal/config"
	"pulseboard/internal/database"
	"pulseboard/internal/events"
	"pulseboard/internal/websites"
)

// testDBCache caches test databases by root test name so subtests share one database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager around a fixed connection.
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates a migrated, named in-memory SQLite database.
// cache=shared lets multiple pool connections see the same database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.NewReplacer("/", "_", " ", "_").Replace(rootName)
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager and a quiet logger.
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	return NewTestDBManager(SetupTestDB(t)), GetLogger()
}

// TestConfig returns a validated config for the test environment.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("PULSEBOARD_ENV", config.Test)
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

// NewTestServer builds a cartridge server over db, lets mount register routes and
// returns the fiber app for app.Test. Sec-Fetch-Site validation is on as in
// production, so routes must opt out explicitly.
func NewTestServer(t *testing.T, cfg *config.Config, db *gorm.DB, mount func(*cartridge.Server)) *fiber.App {
	t.Helper()

	serverCfg := cartridge.DefaultServerConfig()
	serverCfg.Config = cfg
	serverCfg.Logger = GetLogger()
	serverCfg.DBManager = NewTestDBManager(db)
	serverCfg.EnableSecFetchSite = true
	serverCfg.SecFetchSiteAllowedValues = []string{"cross-site", "same-site", "same-origin"}

	srv, err := cartridge.NewServer(serverCfg)
	require.NoError(t, err)

	mount(srv)
	return srv.App()
}

// CleanAllTables clears every application table.
func CleanAllTables(db *gorm.DB) {
	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"tracking_events", "sites"} {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreateTestSite registers a site with the given id unless it already exists.
func CreateTestSite(t *testing.T, db *gorm.DB, id, name string) websites.Site {
	t.Helper()
	if site, err := websites.GetSiteOrNotFound(db, id); err == nil {
		return *site
	}
	site := websites.Site{ID: id, Name: name, URL: "https://" + strings.ToLower(id) + ".example.com"}
	require.NoError(t, websites.CreateSite(db, &site))
	return site
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// FixedClock returns a clock that always reads t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// InsertEventAt stores an event with an explicit created_at, bypassing the store clock.
func InsertEventAt(t *testing.T, db *gorm.DB, siteID, path, referrer string, createdAt time.Time) events.TrackingEvent {
	t.Helper()
	event := events.TrackingEvent{
		SiteID:      siteID,
		Path:        path,
		VisitorHash: "visitor-" + path,
		EventType:   events.EventTypePageView,
		Referrer:    referrer,
		CreatedAt:   createdAt.UTC(),
	}
	require.NoError(t, db.Create(&event).Error)
	return event
}

// NewEvent builds an in-memory event for pure aggregation tests.
func NewEvent(siteID, path, referrer string, createdAt time.Time) events.TrackingEvent {
	return events.TrackingEvent{
		SiteID:      siteID,
		Path:        path,
		VisitorHash: "v-" + path,
		EventType:   events.EventTypePageView,
		Referrer:    referrer,
		CreatedAt:   createdAt,
	}
}

// AppendPayloads runs raw JSON payloads through validation and the store.
func AppendPayloads(t *testing.T, store events.Store, payloads ...string) {
	t.Helper()
	for _, body := range payloads {
		p, err := events.ParsePayload([]byte(body))
		require.NoError(t, err)
		event, err := p.ToEvent(events.EventTypePageView)
		require.NoError(t, err)
		require.NoError(t, store.Append(context.Background(), event))
	}
}
