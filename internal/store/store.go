// Package store persists inventory items. The sqlite store is the
// durable backend; MemRepo covers tests and ephemeral runs. Both
// satisfy lifecycle.Repository.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/guarzo/crosslist/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id            TEXT PRIMARY KEY,
	sku           TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	brand         TEXT NOT NULL DEFAULT '',
	size          TEXT NOT NULL DEFAULT '',
	condition     TEXT NOT NULL DEFAULT '',
	category      TEXT NOT NULL DEFAULT '',
	notes         TEXT NOT NULL DEFAULT '',
	qty           INTEGER NOT NULL DEFAULT 0,
	price_cents   INTEGER NOT NULL DEFAULT 0,
	cost_cents    INTEGER NOT NULL DEFAULT 0,
	description   TEXT NOT NULL DEFAULT '',
	images        TEXT NOT NULL DEFAULT '[]',
	platforms     TEXT NOT NULL DEFAULT '[]',
	status_map    TEXT NOT NULL DEFAULT '{}',
	listing_dates TEXT NOT NULL DEFAULT '{}',
	expiry_dates  TEXT NOT NULL DEFAULT '{}',
	last_relisted TEXT NOT NULL DEFAULT '{}',
	external_refs TEXT NOT NULL DEFAULT '{}',
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_sku ON items(sku);
`

// DB is a sqlite-backed item repository.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and
// bootstraps the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the underlying database.
func (s *DB) Close() error { return s.db.Close() }

// Insert adds a new item, assigning an id when none is set.
func (s *DB) Insert(item *model.InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	return s.write(item, `INSERT INTO items
		(id, sku, title, brand, size, condition, category, notes,
		 qty, price_cents, cost_cents, description, images, platforms,
		 status_map, listing_dates, expiry_dates, last_relisted, external_refs, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
}

// Update upserts the item's current state.
func (s *DB) Update(item *model.InventoryItem) error {
	if item.ID == "" {
		return fmt.Errorf("updating item: empty id")
	}
	return s.write(item, `INSERT OR REPLACE INTO items
		(id, sku, title, brand, size, condition, category, notes,
		 qty, price_cents, cost_cents, description, images, platforms,
		 status_map, listing_dates, expiry_dates, last_relisted, external_refs, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
}

func (s *DB) write(item *model.InventoryItem, query string) error {
	images, err := encodeJSON(item.Images)
	if err != nil {
		return err
	}
	platforms, err := encodeJSON(item.Platforms)
	if err != nil {
		return err
	}
	statuses, err := encodeJSON(item.PlatformStatus)
	if err != nil {
		return err
	}
	dates, err := encodeJSON(item.PlatformListingDates)
	if err != nil {
		return err
	}
	expiry, err := encodeJSON(item.PlatformListingExpiry)
	if err != nil {
		return err
	}
	relisted, err := encodeJSON(item.LastRelisted)
	if err != nil {
		return err
	}
	refs, err := encodeJSON(item.ExternalRefs)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(query,
		item.ID, item.SKU, item.Title, item.Brand, item.Size,
		item.Condition, item.Category, item.Notes,
		item.Qty, item.PriceCents, item.CostCents, item.Description,
		images, platforms, statuses, dates, expiry, relisted, refs,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("writing item %s: %w", item.ID, err)
	}
	return nil
}

const selectCols = `id, sku, title, brand, size, condition, category, notes,
	qty, price_cents, cost_cents, description, images, platforms,
	status_map, listing_dates, expiry_dates, last_relisted, external_refs`

// Find returns the item with the given id, or nil when absent.
func (s *DB) Find(id string) (*model.InventoryItem, error) {
	row := s.db.QueryRow(`SELECT `+selectCols+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding item %s: %w", id, err)
	}
	return item, nil
}

// FindBySKU returns the first item with the given SKU, or nil.
func (s *DB) FindBySKU(sku string) (*model.InventoryItem, error) {
	row := s.db.QueryRow(`SELECT `+selectCols+` FROM items WHERE sku = ? LIMIT 1`, sku)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding item by sku %s: %w", sku, err)
	}
	return item, nil
}

// All returns every stored item.
func (s *DB) All() ([]*model.InventoryItem, error) {
	rows, err := s.db.Query(`SELECT ` + selectCols + ` FROM items ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []*model.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete removes an item permanently.
func (s *DB) Delete(id string) error {
	if _, err := s.db.Exec(`DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scannable) (*model.InventoryItem, error) {
	item := &model.InventoryItem{}
	var images, platforms, statuses, dates, expiry, relisted, refs string

	err := row.Scan(&item.ID, &item.SKU, &item.Title, &item.Brand, &item.Size,
		&item.Condition, &item.Category, &item.Notes,
		&item.Qty, &item.PriceCents, &item.CostCents, &item.Description,
		&images, &platforms, &statuses, &dates, &expiry, &relisted, &refs)
	if err != nil {
		return nil, err
	}

	if err := decodeJSON(images, &item.Images); err != nil {
		return nil, err
	}
	if err := decodeJSON(platforms, &item.Platforms); err != nil {
		return nil, err
	}
	if err := decodeJSON(statuses, &item.PlatformStatus); err != nil {
		return nil, err
	}
	if err := decodeJSON(dates, &item.PlatformListingDates); err != nil {
		return nil, err
	}
	if err := decodeJSON(expiry, &item.PlatformListingExpiry); err != nil {
		return nil, err
	}
	if err := decodeJSON(relisted, &item.LastRelisted); err != nil {
		return nil, err
	}
	if err := decodeJSON(refs, &item.ExternalRefs); err != nil {
		return nil, err
	}
	return item, nil
}

func encodeJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding column: %w", err)
	}
	return string(data), nil
}

func decodeJSON(data string, v interface{}) error {
	if data == "" || data == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("decoding column: %w", err)
	}
	return nil
}
