// Package cache persists finished chunk translations in SQLite so that
// re-running a job never re-spends model calls on text it has already
// translated. Entries are keyed by the NFC-normalized source text and
// the model that produced the translation.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

type Cache struct {
	db *sql.DB
}

// New opens (creating if needed) the cache database at dbPath.
func New(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return c, nil
}

func (c *Cache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		model TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		usage_count INTEGER DEFAULT 1,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, model)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_text, model);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached translation for (sourceText, model) and
// whether one exists. A hit bumps the usage counter.
func (c *Cache) Get(ctx context.Context, sourceText, model string) (string, bool, error) {
	var translated string

	err := c.db.QueryRowContext(ctx,
		`SELECT translated_text FROM translation_memory WHERE source_text = ? AND model = ?`,
		normalizeText(sourceText), model).Scan(&translated)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	_, err = c.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND model = ?`,
		time.Now(), normalizeText(sourceText), model)

	return translated, true, err
}

// Save stores a finished translation, replacing any previous entry for
// the same source and model.
func (c *Cache) Save(ctx context.Context, sourceText, model, translatedText string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translation_memory (id, source_text, model, translated_text, usage_count, last_used, created_at) VALUES (?, ?, ?, ?, 1, ?, ?)`,
		uuid.NewString(), normalizeText(sourceText), model, translatedText, time.Now(), time.Now())
	return err
}

// Entry is a row from the translation memory.
type Entry struct {
	ID             string
	SourceText     string
	Model          string
	TranslatedText string
	UsageCount     int
	LastUsed       time.Time
}

// Stats summarizes cache usage.
type Stats struct {
	TotalEntries int
	TotalUsage   int
}

// List returns all entries ordered by most recently used.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, source_text, model, translated_text, usage_count, last_used FROM translation_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.Model, &e.TranslatedText, &e.UsageCount, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// GetStats returns summary statistics for the cache.
func (c *Cache) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(usage_count), 0) FROM translation_memory`).
		Scan(&stats.TotalEntries, &stats.TotalUsage)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Clear removes all entries and reports how many were deleted.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// normalizeText applies NFC so that visually identical Japanese text
// with different code point sequences hits the same cache row.
func normalizeText(s string) string {
	return norm.NFC.String(s)
}
