package events_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulseboard/internal/events"
	"pulseboard/internal/testsupport"
	"pulseboard/internal/websites"
)

// fakeConn records the statements the store sends instead of talking to PostgreSQL.
type fakeConn struct {
	inserts [][]any
	copied  [][]any
	nextID  int64
}

func (c *fakeConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("CREATE TABLE"), nil
}

func (c *fakeConn) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("query not supported by fakeConn")
}

func (c *fakeConn) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	c.inserts = append(c.inserts, args)
	c.nextID++
	return fakeRow{id: c.nextID}
}

func (c *fakeConn) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	for src.Next() {
		values, err := src.Values()
		if err != nil {
			return 0, err
		}
		c.copied = append(c.copied, values)
	}
	return int64(len(c.copied)), src.Err()
}

type fakeRow struct{ id int64 }

func (r fakeRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.id
	return nil
}

func knownSites(ids ...string) events.SiteChecker {
	return func(_ context.Context, siteID string) error {
		for _, id := range ids {
			if id == siteID {
				return nil
			}
		}
		return &websites.SiteNotFoundError{SiteID: siteID}
	}
}

func TestPostgresStoreAppend(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("valid event is inserted with the store clock", func(t *testing.T) {
		conn := &fakeConn{}
		store := events.NewPostgresStoreWithConn(conn, knownSites("S1"), testsupport.GetLogger()).
			WithClock(testsupport.FixedClock(now))

		event := &events.TrackingEvent{SiteID: "S1", Path: "/menu", EventType: events.EventTypePageView}
		require.NoError(t, store.Append(context.Background(), event))

		assert.Equal(t, uint(1), event.ID)
		assert.Equal(t, now, event.CreatedAt)
		require.Len(t, conn.inserts, 1)
		assert.Equal(t, []any{"S1", "/menu", "", "page_view", "", now}, conn.inserts[0])
	})

	t.Run("invalid event never reaches the database", func(t *testing.T) {
		conn := &fakeConn{}
		store := events.NewPostgresStoreWithConn(conn, knownSites("S1"), testsupport.GetLogger())

		for _, event := range []*events.TrackingEvent{
			{SiteID: "S1", Path: "", EventType: events.EventTypePageView},
			{SiteID: "S1", Path: "/a?b=c", EventType: events.EventTypePageView},
			{SiteID: "S1", Path: "/", EventType: "scroll"},
			{SiteID: " ", Path: "/", EventType: events.EventTypePageView},
		} {
			err := store.Append(context.Background(), event)

			var storageErr *events.StorageError
			require.ErrorAs(t, err, &storageErr)
			var validationErr *events.ValidationError
			assert.ErrorAs(t, err, &validationErr)
		}
		assert.Empty(t, conn.inserts)
	})

	t.Run("unknown site is rejected", func(t *testing.T) {
		conn := &fakeConn{}
		store := events.NewPostgresStoreWithConn(conn, knownSites("S1"), testsupport.GetLogger())

		err := store.Append(context.Background(), &events.TrackingEvent{SiteID: "NOPE", Path: "/", EventType: events.EventTypePageView})

		var notFound *websites.SiteNotFoundError
		assert.ErrorAs(t, err, &notFound)
		assert.Empty(t, conn.inserts)
	})
}

func TestPostgresStoreImport(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("copies events keeping their timestamps", func(t *testing.T) {
		conn := &fakeConn{}
		store := events.NewPostgresStoreWithConn(conn, nil, testsupport.GetLogger())

		err := store.Import(context.Background(), []events.TrackingEvent{
			testsupport.NewEvent("S1", "/", "", at),
			testsupport.NewEvent("S1", "/menu", "qr:table-4", at.Add(time.Minute)),
		})
		require.NoError(t, err)

		require.Len(t, conn.copied, 2)
		assert.Equal(t, at, conn.copied[0][5])
		assert.Equal(t, "qr:table-4", conn.copied[1][4])
	})

	t.Run("one invalid event rejects the batch", func(t *testing.T) {
		conn := &fakeConn{}
		store := events.NewPostgresStoreWithConn(conn, nil, testsupport.GetLogger())

		err := store.Import(context.Background(), []events.TrackingEvent{
			testsupport.NewEvent("S1", "/", "", at),
			testsupport.NewEvent("S1", "/", "", time.Time{}),
		})

		var validationErr *events.ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Empty(t, conn.copied)
	})
}

// TestPostgresStoreRoundTrip runs against a real server when
// PULSEBOARD_TEST_POSTGRES_DSN is set.
func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("PULSEBOARD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PULSEBOARD_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	siteID := "pg-" + uuid.NewString()[:8]
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	store, err := events.NewPostgresStore(ctx, dsn, knownSites(siteID), testsupport.GetLogger())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(ctx))
	store.WithClock(testsupport.FixedClock(now))

	require.NoError(t, store.Append(ctx, &events.TrackingEvent{SiteID: siteID, Path: "/", EventType: events.EventTypePageView}))
	require.NoError(t, store.Import(ctx, []events.TrackingEvent{
		testsupport.NewEvent(siteID, "/menu", "qr:door", now.Add(-time.Hour)),
	}))

	got, err := store.QueryRange(ctx, siteID, now.Add(-2*time.Hour), now.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/menu", got[0].Path)
	assert.Equal(t, "/", got[1].Path)
	assert.Equal(t, now, got[1].CreatedAt)
}
