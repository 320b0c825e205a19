// Package sqlite persists computed engine results keyed by content hash, so
// page reloads and scheduler reruns do not recompute unchanged tables.
package sqlite

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS result_cache (
		cache_key  TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_result_cache_created_at ON result_cache(created_at);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// CacheKey builds a deterministic cache key from the cache version, the
// operation name, the content hash of the input table, and the scalar
// parameters. Callers that already know a table is unchanged may reuse its
// hash instead of recomputing it.
func CacheKey(version, operation, tableHash string, params ...string) string {
	parts := append([]string{version, operation, tableHash}, params...)
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// GetCached returns the stored payload and whether the key was present.
func GetCached(db *sql.DB, key string) (string, bool, error) {
	var payload string
	err := db.QueryRow(`SELECT payload FROM result_cache WHERE cache_key = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return payload, true, nil
}

// PutCached stores or replaces a payload under the key.
func PutCached(db *sql.DB, key, payload string) error {
	_, err := db.Exec(
		`INSERT INTO result_cache (cache_key, payload) VALUES (?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET payload = excluded.payload, created_at = CURRENT_TIMESTAMP`,
		key, payload,
	)
	return err
}

// ClearCache drops every cached result. Called after a data refresh.
func ClearCache(db *sql.DB) error {
	_, err := db.Exec(`DELETE FROM result_cache`)
	return err
}
