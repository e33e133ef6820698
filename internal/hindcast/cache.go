package hindcast

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/metoceanlab/metocean/internal/series"
)

// Cache stores fetched hindcast series in a local SQLite database so that
// repeated analyses of the same node and period do not hit the remote
// service. Payloads are msgpack-encoded.
type Cache struct {
	db *sql.DB
}

// cachedSeries is the stored payload: millisecond timestamps and values.
type cachedSeries struct {
	Times  []int64   `msgpack:"t"`
	Values []float64 `msgpack:"v"`
}

// OpenCache opens (and if needed initializes) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS hindcast_cache (
			key        TEXT PRIMARY KEY,
			fetched_at INTEGER NOT NULL,
			payload    BLOB NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached series for key, if present.
func (c *Cache) Get(key string) (*series.Series, bool) {
	var payload []byte
	err := c.db.QueryRow(`SELECT payload FROM hindcast_cache WHERE key = ?`, key).Scan(&payload)
	if err != nil {
		return nil, false
	}

	var stored cachedSeries
	if err := msgpack.Unmarshal(payload, &stored); err != nil {
		return nil, false
	}
	s := &series.Series{
		Times:  make([]time.Time, len(stored.Times)),
		Values: stored.Values,
	}
	for i, ms := range stored.Times {
		s.Times[i] = time.UnixMilli(ms).UTC()
	}
	return s, true
}

// Put stores a series under key, replacing any previous entry.
func (c *Cache) Put(key string, s *series.Series) error {
	stored := cachedSeries{
		Times:  make([]int64, len(s.Times)),
		Values: s.Values,
	}
	for i, t := range s.Times {
		stored.Times[i] = t.UnixMilli()
	}
	payload, err := msgpack.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding cache payload: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO hindcast_cache (key, fetched_at, payload) VALUES (?, ?, ?)`,
		key, time.Now().Unix(), payload,
	)
	return err
}
