package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"simtrade/internal/domain"
)

// ParquetArchive exports the fill log to Parquet files on disk, one file per
// calendar day. The archive is append-only from the trader's point of view
// and is read back by the audit tool.
type ParquetArchive struct {
	DataDir string
}

// NewParquetArchive creates an archive rooted at the given data directory.
func NewParquetArchive(dataDir string) *ParquetArchive {
	return &ParquetArchive{DataDir: dataDir}
}

// FillRecord is the Parquet schema for archived fills.
type FillRecord struct {
	FillID    string  `parquet:"fill_id"`
	OrderID   string  `parquet:"order_id"`
	Symbol    string  `parquet:"symbol"`
	Side      string  `parquet:"side"`
	Quantity  int64   `parquet:"quantity"`
	Price     float64 `parquet:"price"`
	Timestamp float64 `parquet:"timestamp"` // Unix seconds, fractional
}

// ArchiveFills writes fills to the archive, grouped by calendar day. Existing
// day files are merged (deduplicated by fill id), so re-archiving the same
// fills is idempotent.
func (a *ParquetArchive) ArchiveFills(fills []domain.Fill) error {
	if len(fills) == 0 {
		return nil
	}

	groups := make(map[string][]FillRecord)
	for _, f := range fills {
		date := time.Unix(int64(f.Timestamp), 0).UTC().Format("2006-01-02")
		groups[date] = append(groups[date], FillRecord{
			FillID:    f.ID,
			OrderID:   f.OrderID,
			Symbol:    f.Symbol,
			Side:      string(f.Side),
			Quantity:  f.Quantity,
			Price:     f.Price,
			Timestamp: f.Timestamp,
		})
	}

	for date, records := range groups {
		path := a.fillPath(date)

		existing, _ := readParquetFile[FillRecord](path)
		merged := mergeFillRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("archiving fills for %s: %w", date, err)
		}
	}
	return nil
}

// ReadFills reads archived fills for the given day range (inclusive), in
// chronological order.
func (a *ParquetArchive) ReadFills(start, end time.Time) ([]domain.Fill, error) {
	var fills []domain.Fill
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		path := a.fillPath(d.UTC().Format("2006-01-02"))
		records, err := readParquetFile[FillRecord](path)
		if err != nil {
			// No archive for this day.
			continue
		}
		for _, r := range records {
			fills = append(fills, domain.Fill{
				ID:        r.FillID,
				OrderID:   r.OrderID,
				Symbol:    r.Symbol,
				Side:      domain.Side(r.Side),
				Quantity:  r.Quantity,
				Price:     r.Price,
				Timestamp: r.Timestamp,
			})
		}
	}
	sort.Slice(fills, func(i, j int) bool {
		return fills[i].Timestamp < fills[j].Timestamp
	})
	return fills, nil
}

// fillPath returns the archive path for one day of fills.
// Layout: <dataDir>/fills/<YYYY-MM-DD>.parquet
func (a *ParquetArchive) fillPath(date string) string {
	return filepath.Join(a.DataDir, "fills", date+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeFillRecords deduplicates records by fill id, preferring incoming over
// existing. Results are sorted by timestamp.
func mergeFillRecords(existing, incoming []FillRecord) []FillRecord {
	seen := make(map[string]FillRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.FillID] = r
	}
	for _, r := range incoming {
		seen[r.FillID] = r
	}

	merged := make([]FillRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
