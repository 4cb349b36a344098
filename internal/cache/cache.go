// Package cache persists timestamped collection snapshots so the dashboard
// survives restarts without refetching everything. One row per collection,
// holding a JSON envelope of the form {<collection>: [...], lastFetched: ms}.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultTTL is how long a persisted snapshot stays valid.
const DefaultTTL = 5 * time.Minute

const lastFetchedField = "lastFetched"

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides the snapshot time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithLogger sets the logger used for cache misses and corruption reports.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithClock overrides the time source. Tests use it to pin TTL boundaries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithObserver registers a callback invoked with the result of every lookup
// ("hit", "miss", or "expired").
func WithObserver(observe func(result string)) Option {
	return func(s *Store) {
		s.observe = observe
	}
}

// Store is a SQLite-backed envelope cache. Its operations never fail past
// their boundary: a corrupt or missing entry is a cache miss, logged and
// swallowed, so callers fall through to a remote fetch.
type Store struct {
	db      *sql.DB
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	observe func(result string)
}

// Open opens (and initializes) the cache database at the given path.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS cache_envelopes (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		last_fetched INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	s := &Store{
		db:      db,
		ttl:     DefaultTTL,
		logger:  slog.Default(),
		now:     time.Now,
		observe: func(string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the snapshot time-to-live.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Load reads the envelope under key and unmarshals the named collection into
// out. It returns the envelope's fetch time and true only when the entry is
// present, well formed, and still inside its TTL window; freshness is checked
// at read time, not just at write time.
func (s *Store) Load(key, collection string, out any) (time.Time, bool) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM cache_envelopes WHERE key = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		s.observe("miss")
		return time.Time{}, false
	}
	if err != nil {
		s.logger.Warn("cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		s.observe("miss")
		return time.Time{}, false
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		s.logger.Warn("corrupt cache envelope, treating as miss", slog.String("key", key), slog.String("error", err.Error()))
		s.observe("miss")
		return time.Time{}, false
	}

	var fetchedMS int64
	if err := json.Unmarshal(envelope[lastFetchedField], &fetchedMS); err != nil {
		s.logger.Warn("cache envelope missing lastFetched, treating as miss", slog.String("key", key))
		s.observe("miss")
		return time.Time{}, false
	}
	fetchedAt := time.UnixMilli(fetchedMS)

	// Valid for [T, T+TTL); expired at exactly T+TTL.
	if s.now().Sub(fetchedAt) >= s.ttl {
		s.observe("expired")
		return time.Time{}, false
	}

	items, ok := envelope[collection]
	if !ok {
		s.logger.Warn("cache envelope missing collection, treating as miss",
			slog.String("key", key), slog.String("collection", collection))
		s.observe("miss")
		return time.Time{}, false
	}
	if err := json.Unmarshal(items, out); err != nil {
		s.logger.Warn("corrupt cache collection, treating as miss",
			slog.String("key", key), slog.String("error", err.Error()))
		s.observe("miss")
		return time.Time{}, false
	}
	s.observe("hit")
	return fetchedAt, true
}

// Save serializes the collection into an envelope and stores it
// unconditionally, overwriting any prior value. Failures are logged, never
// returned.
func (s *Store) Save(key, collection string, items any, fetchedAt time.Time) {
	payload, err := json.Marshal(map[string]any{
		collection:       items,
		lastFetchedField: fetchedAt.UnixMilli(),
	})
	if err != nil {
		s.logger.Warn("cache serialize failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}

	_, err = s.db.Exec(`
	INSERT INTO cache_envelopes (key, payload, last_fetched)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET payload=excluded.payload, last_fetched=excluded.last_fetched;
	`, key, string(payload), fetchedAt.UnixMilli())
	if err != nil {
		s.logger.Warn("cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Invalidate removes the entry under key.
func (s *Store) Invalidate(key string) {
	if _, err := s.db.Exec(`DELETE FROM cache_envelopes WHERE key = ?`, key); err != nil {
		s.logger.Warn("cache invalidate failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
