package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // Import for side-effects only

	"mspro-labs/treedb/internal/models"
)

// Connect opens the SQLite database and ensures the schema exists.
// WAL mode and a busy timeout keep `serve` and `scrape` from locking each other out.
func Connect(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err = CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

// CreateSchema creates the species and search history tables if missing.
func CreateSchema(db *sql.DB) error {
	speciesTable := `
	CREATE TABLE IF NOT EXISTS species (
	  id INTEGER PRIMARY KEY,
	  name TEXT NOT NULL,
	  native_range TEXT NOT NULL DEFAULT '[]',
	  products_and_services TEXT NOT NULL DEFAULT '[]',
	  nativity TEXT NOT NULL DEFAULT '',
	  source_url TEXT,
	  first_scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  last_scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	  description_embedding BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_species_name ON species(name);
	`
	if _, err := db.Exec(speciesTable); err != nil {
		return err
	}

	// Local cache of query embeddings
	historyTable := `
	CREATE TABLE IF NOT EXISTS search_history (
		query_text TEXT PRIMARY KEY,
		embedding BLOB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(historyTable); err != nil {
		return err
	}

	return nil
}

// SavedSpecies is a stored record plus bookkeeping columns.
type SavedSpecies struct {
	models.SpeciesRecord
	SourceURL     string
	LastScrapedAt time.Time
}

// SaveSpecies upserts records keyed by species id. A re-scraped species
// loses its embedding, since the text it was built from may have changed.
func SaveSpecies(db *sql.DB, records []models.SpeciesRecord, sourceURL func(id int) string) (int64, error) {
	upsertSQL := `
	INSERT INTO species (
	  id, name, native_range, products_and_services, nativity, source_url,
	  last_scraped_at
	) VALUES (
	  ?, ?, ?, ?, ?, ?,
	  CURRENT_TIMESTAMP
	) ON CONFLICT(id) DO UPDATE SET
	  name = excluded.name,
	  native_range = excluded.native_range,
	  products_and_services = excluded.products_and_services,
	  nativity = excluded.nativity,
	  source_url = excluded.source_url,
	  last_scraped_at = CURRENT_TIMESTAMP,
	  description_embedding = NULL;
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var totalAffected int64 = 0
	for _, rec := range records {
		nativeRange, err := encodeList(rec.NativeRange)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		products, err := encodeList(rec.ProductsAndServices)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		var src sql.NullString
		if sourceURL != nil {
			src = sql.NullString{String: sourceURL(rec.SpeciesID), Valid: true}
		}

		res, err := stmt.ExecContext(ctx,
			rec.SpeciesID,
			rec.SpeciesName,
			nativeRange,
			products,
			rec.Nativity,
			src,
		)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to upsert species %d: %w", rec.SpeciesID, err)
		}
		rows, _ := res.RowsAffected()
		totalAffected += rows
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return totalAffected, nil
}

// GetSpecies loads one species by id. It returns sql.ErrNoRows if absent.
func GetSpecies(db *sql.DB, id int) (SavedSpecies, error) {
	row := db.QueryRow(`
		SELECT id, name, native_range, products_and_services, nativity, source_url, last_scraped_at
		FROM species WHERE id = ?`, id)
	return scanSpecies(row)
}

// ListSpecies returns every stored species ordered by id.
func ListSpecies(db *sql.DB) ([]SavedSpecies, error) {
	rows, err := db.Query(`
		SELECT id, name, native_range, products_and_services, nativity, source_url, last_scraped_at
		FROM species
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SavedSpecies
	for rows.Next() {
		s, err := scanSpecies(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpecies(row scanner) (SavedSpecies, error) {
	var (
		s                     SavedSpecies
		nativeRange, products string
		src                   sql.NullString
	)
	err := row.Scan(&s.SpeciesID, &s.SpeciesName, &nativeRange, &products, &s.Nativity, &src, &s.LastScrapedAt)
	if err != nil {
		return SavedSpecies{}, err
	}
	if s.NativeRange, err = decodeList(nativeRange); err != nil {
		return SavedSpecies{}, fmt.Errorf("species %d native_range: %w", s.SpeciesID, err)
	}
	if s.ProductsAndServices, err = decodeList(products); err != nil {
		return SavedSpecies{}, fmt.Errorf("species %d products_and_services: %w", s.SpeciesID, err)
	}
	s.SourceURL = src.String
	return s, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	items := []string{}
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// --- Embedding & Search Helpers ---

// GetUnembeddedSpecies returns species id -> text to embed for rows missing a vector.
func GetUnembeddedSpecies(db *sql.DB) (map[int]string, error) {
	rows, err := db.Query(`SELECT id, name, native_range FROM species WHERE description_embedding IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[int]string)
	for rows.Next() {
		var (
			id                int
			name, nativeRange string
		)
		if err := rows.Scan(&id, &name, &nativeRange); err != nil {
			return nil, err
		}
		regions, err := decodeList(nativeRange)
		if err != nil {
			return nil, fmt.Errorf("species %d native_range: %w", id, err)
		}
		results[id] = EmbeddingText(name, regions)
	}
	return results, rows.Err()
}

// EmbeddingText is the text a species vector is generated from.
func EmbeddingText(name string, nativeRange []string) string {
	return fmt.Sprintf("Species: %s\nNative range: %s", name, strings.Join(nativeRange, ","))
}

// UpdateEmbedding stores the vector blob for a species.
func UpdateEmbedding(db *sql.DB, id int, embedding []byte) error {
	_, err := db.Exec("UPDATE species SET description_embedding = ? WHERE id = ?", embedding, id)
	return err
}

// SpeciesVector is the slice of a species needed to rank search results.
type SpeciesVector struct {
	ID          int
	Name        string
	NativeRange []string
	Vector      []byte
}

// GetSpeciesVectors returns all species that have embeddings.
func GetSpeciesVectors(db *sql.DB) ([]SpeciesVector, error) {
	rows, err := db.Query(`SELECT id, name, native_range, description_embedding FROM species WHERE description_embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SpeciesVector
	for rows.Next() {
		var (
			sv          SpeciesVector
			nativeRange string
		)
		if err := rows.Scan(&sv.ID, &sv.Name, &nativeRange, &sv.Vector); err != nil {
			return nil, err
		}
		if sv.NativeRange, err = decodeList(nativeRange); err != nil {
			return nil, fmt.Errorf("species %d native_range: %w", sv.ID, err)
		}
		results = append(results, sv)
	}
	return results, rows.Err()
}

// GetCachedQuery tries to find a previously searched query vector.
func GetCachedQuery(db *sql.DB, text string) ([]byte, error) {
	var blob []byte
	err := db.QueryRow("SELECT embedding FROM search_history WHERE query_text = ?", text).Scan(&blob)
	return blob, err
}

// SaveCachedQuery saves a new query and its vector to the history table.
func SaveCachedQuery(db *sql.DB, text string, blob []byte) error {
	_, err := db.Exec("INSERT OR IGNORE INTO search_history (query_text, embedding) VALUES (?, ?)", text, blob)
	return err
}

// --- History Management for search ---

type HistoryEntry struct {
	QueryText string
	CreatedAt time.Time
}

// ListSearchHistory returns all cached queries, newest first.
func ListSearchHistory(db *sql.DB) ([]HistoryEntry, error) {
	rows, err := db.Query("SELECT query_text, created_at FROM search_history ORDER BY created_at DESC, query_text")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.QueryText, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClearSearchHistory removes a specific query from the cache.
func ClearSearchHistory(db *sql.DB, queryText string) (int64, error) {
	res, err := db.Exec("DELETE FROM search_history WHERE query_text = ?", queryText)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearAllSearchHistory wipes the entire cache.
func ClearAllSearchHistory(db *sql.DB) (int64, error) {
	res, err := db.Exec("DELETE FROM search_history")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
