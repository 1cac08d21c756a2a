package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"pulseboard/internal/websites"
)

const importBatchSize = 500

// Store is the append-only event log. Implementations assign CreatedAt at write
// time and return ranges ordered by CreatedAt ascending. Duplicates are kept.
type Store interface {
	Append(ctx context.Context, event *TrackingEvent) error
	QueryRange(ctx context.Context, siteID string, from, to time.Time) ([]TrackingEvent, error)
}

// BulkWriter imports events that already carry their CreatedAt. The caller
// checks that the sites exist.
type BulkWriter interface {
	Import(ctx context.Context, evts []TrackingEvent) error
}

// StorageError reports a failed persistence operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("event store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DBManager hands out the shared gorm connection.
type DBManager interface {
	GetConnection() *gorm.DB
}

// GormStore keeps events in the application database.
type GormStore struct {
	dbManager DBManager
	logger    *slog.Logger
	now       func() time.Time
}

// NewGormStore creates a store on top of dbManager's connection.
func NewGormStore(dbManager DBManager, logger *slog.Logger) *GormStore {
	return &GormStore{dbManager: dbManager, logger: logger, now: time.Now}
}

// WithClock replaces the write-time clock; used by tests and the seeder.
func (s *GormStore) WithClock(now func() time.Time) *GormStore {
	s.now = now
	return s
}

// Append inserts event after checking its site exists. ID and CreatedAt are
// overwritten by the store.
func (s *GormStore) Append(ctx context.Context, event *TrackingEvent) error {
	event.ID = 0
	event.CreatedAt = s.now().UTC()
	if err := event.Validate(); err != nil {
		return &StorageError{Op: "append", Err: err}
	}

	db := s.dbManager.GetConnection().WithContext(ctx)

	var siteErr error
	err := sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		if _, err := websites.GetSiteOrNotFound(tx, event.SiteID); err != nil {
			siteErr = err
			return err
		}
		return tx.Create(event).Error
	})
	if siteErr != nil {
		return &StorageError{Op: "append", Err: siteErr}
	}
	if err != nil {
		return &StorageError{Op: "append", Err: err}
	}
	return nil
}

// Import inserts evts in batches, keeping their CreatedAt.
func (s *GormStore) Import(ctx context.Context, evts []TrackingEvent) error {
	if err := validateImport(evts); err != nil {
		return &StorageError{Op: "import", Err: err}
	}
	if len(evts) == 0 {
		return nil
	}

	db := s.dbManager.GetConnection().WithContext(ctx)
	err := sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		return tx.CreateInBatches(&evts, importBatchSize).Error
	})
	if err != nil {
		return &StorageError{Op: "import", Err: err}
	}
	return nil
}

// validateImport rejects the whole batch when one event is invalid.
func validateImport(evts []TrackingEvent) error {
	for i := range evts {
		evts[i].ID = 0
		evts[i].CreatedAt = evts[i].CreatedAt.UTC()
		if err := evts[i].Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

// QueryRange returns the site's events with from <= created_at < to. A zero bound
// leaves that side open.
func (s *GormStore) QueryRange(ctx context.Context, siteID string, from, to time.Time) ([]TrackingEvent, error) {
	query := s.dbManager.GetConnection().WithContext(ctx).Where("site_id = ?", siteID)
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from.UTC())
	}
	if !to.IsZero() {
		query = query.Where("created_at < ?", to.UTC())
	}

	var rows []TrackingEvent
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}

	return dropInvalid(s.logger, rows), nil
}

// dropInvalid filters rows that fail validation on the way out of the store.
func dropInvalid(logger *slog.Logger, rows []TrackingEvent) []TrackingEvent {
	valid := rows[:0]
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			logger.Warn("Skipping malformed stored event",
				slog.Uint64("id", uint64(rows[i].ID)),
				slog.Any("error", err))
			continue
		}
		valid = append(valid, rows[i])
	}
	return valid
}
