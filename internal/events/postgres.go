package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tracking_events (
    id           BIGSERIAL PRIMARY KEY,
    site_id      VARCHAR(64)  NOT NULL,
    path         TEXT         NOT NULL,
    visitor_hash VARCHAR(128) NOT NULL DEFAULT '',
    event_type   VARCHAR(16)  NOT NULL DEFAULT 'page_view',
    referrer     TEXT         NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_tracking_events_site_created ON tracking_events (site_id, created_at, id);
`

var postgresColumns = []string{"site_id", "path", "visitor_hash", "event_type", "referrer", "created_at"}

// SiteChecker returns an error when siteID does not reference a registered site.
type SiteChecker func(ctx context.Context, siteID string) error

// PgxConn is the part of *pgxpool.Pool the store uses.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// PostgresStore keeps events in PostgreSQL. Sites stay in the application
// database and are resolved through a SiteChecker.
type PostgresStore struct {
	conn      PgxConn
	close     func()
	checkSite SiteChecker
	logger    *slog.Logger
	now       func() time.Time
}

// NewPostgresStore connects a pool to dsn.
func NewPostgresStore(ctx context.Context, dsn string, checkSite SiteChecker, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := NewPostgresStoreWithConn(pool, checkSite, logger)
	store.close = pool.Close
	return store, nil
}

// NewPostgresStoreWithConn builds a store on an existing connection. Close is a
// no-op; the caller owns conn.
func NewPostgresStoreWithConn(conn PgxConn, checkSite SiteChecker, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		conn:      conn,
		close:     func() {},
		checkSite: checkSite,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the write-time clock.
func (s *PostgresStore) WithClock(now func() time.Time) *PostgresStore {
	s.now = now
	return s
}

// Migrate creates the events table if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.close()
}

// Append validates event, checks its site and inserts it. ID and CreatedAt are
// overwritten by the store.
func (s *PostgresStore) Append(ctx context.Context, event *TrackingEvent) error {
	event.ID = 0
	event.CreatedAt = s.now().UTC()
	if err := event.Validate(); err != nil {
		return &StorageError{Op: "append", Err: err}
	}

	if s.checkSite != nil {
		if err := s.checkSite(ctx, event.SiteID); err != nil {
			return &StorageError{Op: "append", Err: err}
		}
	}

	row := s.conn.QueryRow(ctx,
		`INSERT INTO tracking_events (site_id, path, visitor_hash, event_type, referrer, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		event.SiteID, event.Path, event.VisitorHash, string(event.EventType), event.Referrer, event.CreatedAt)

	var id int64
	if err := row.Scan(&id); err != nil {
		return &StorageError{Op: "append", Err: err}
	}

	event.ID = uint(id)
	return nil
}

// Import copies evts with COPY FROM, keeping their CreatedAt.
func (s *PostgresStore) Import(ctx context.Context, evts []TrackingEvent) error {
	if err := validateImport(evts); err != nil {
		return &StorageError{Op: "import", Err: err}
	}
	if len(evts) == 0 {
		return nil
	}

	_, err := s.conn.CopyFrom(ctx, pgx.Identifier{"tracking_events"}, postgresColumns,
		pgx.CopyFromSlice(len(evts), func(i int) ([]any, error) {
			e := evts[i]
			return []any{e.SiteID, e.Path, e.VisitorHash, string(e.EventType), e.Referrer, e.CreatedAt}, nil
		}))
	if err != nil {
		return &StorageError{Op: "import", Err: err}
	}
	return nil
}

// QueryRange returns the site's events with from <= created_at < to.
func (s *PostgresStore) QueryRange(ctx context.Context, siteID string, from, to time.Time) ([]TrackingEvent, error) {
	sql := `SELECT id, site_id, path, visitor_hash, event_type, referrer, created_at
	        FROM tracking_events WHERE site_id = $1`
	args := []any{siteID}
	if !from.IsZero() {
		args = append(args, from.UTC())
		sql += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !to.IsZero() {
		args = append(args, to.UTC())
		sql += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	sql += " ORDER BY created_at ASC, id ASC"

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}

	result, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TrackingEvent, error) {
		var e TrackingEvent
		var id int64
		var eventType string
		if err := row.Scan(&id, &e.SiteID, &e.Path, &e.VisitorHash, &eventType, &e.Referrer, &e.CreatedAt); err != nil {
			return e, err
		}
		e.ID = uint(id)
		e.EventType = EventType(eventType)
		e.CreatedAt = e.CreatedAt.UTC()
		return e, nil
	})
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}

	return dropInvalid(s.logger, result), nil
}
