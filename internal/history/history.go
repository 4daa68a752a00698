// Package history keeps an append-only CSV log of recorded sales. The
// file is the durable audit trail; lifecycle status on the item itself
// only reflects the latest state.
package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// SaleRecord is one row in the sales log.
type SaleRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	ItemID     string    `json:"itemId"`
	SKU        string    `json:"sku"`
	Platform   string    `json:"platform"`
	PriceCents int       `json:"priceCents"`
}

var header = []string{"Timestamp", "ItemID", "SKU", "Platform", "PriceCents"}

// Log appends sale records to a CSV file. Safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	path string
}

// NewLog creates a sales log backed by the given file path. The file
// is created on first write.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// RecordSale appends one sale to the log.
func (l *Log) RecordSale(itemID, sku, platform string, priceCents int, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	needsHeader := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		needsHeader = true
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening sales log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if needsHeader {
		if err := writer.Write(escapeRow(header)); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	record := []string{
		at.Format(time.RFC3339),
		itemID,
		sku,
		platform,
		strconv.Itoa(priceCents),
	}
	if err := writer.Write(escapeRow(record)); err != nil {
		return fmt.Errorf("writing sale record: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// Load reads all sale records from the log. A missing file yields an
// empty slice.
func (l *Log) Load() ([]SaleRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening sales log: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading sales log: %w", err)
	}

	var sales []SaleRecord
	for i, row := range records {
		if i == 0 && len(row) > 0 && row[0] == "Timestamp" {
			continue
		}
		rec, err := parseRecord(row)
		if err != nil {
			continue // skip malformed rows
		}
		sales = append(sales, rec)
	}
	return sales, nil
}

func parseRecord(row []string) (SaleRecord, error) {
	if len(row) < 5 {
		return SaleRecord{}, fmt.Errorf("short row: %d fields", len(row))
	}
	ts, err := time.Parse(time.RFC3339, unescapeCell(row[0]))
	if err != nil {
		return SaleRecord{}, fmt.Errorf("parsing timestamp: %w", err)
	}
	cents, err := strconv.Atoi(unescapeCell(row[4]))
	if err != nil {
		return SaleRecord{}, fmt.Errorf("parsing price: %w", err)
	}
	return SaleRecord{
		Timestamp:  ts,
		ItemID:     unescapeCell(row[1]),
		SKU:        unescapeCell(row[2]),
		Platform:   unescapeCell(row[3]),
		PriceCents: cents,
	}, nil
}

// escapeCell protects against CSV formula injection by prefixing cells
// that start with a formula indicator.
func escapeCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '|', '%', '\t', '\r', '\n':
		return "'" + value
	}
	return value
}

func escapeRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = escapeCell(cell)
	}
	return escaped
}

func unescapeCell(value string) string {
	if strings.HasPrefix(value, "'") && len(value) > 1 {
		switch value[1] {
		case '=', '+', '-', '@', '|', '%', '\t', '\r', '\n':
			return value[1:]
		}
	}
	return value
}
