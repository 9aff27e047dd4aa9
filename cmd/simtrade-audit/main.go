// simtrade-audit replays the durable fill log through the position
// accounting core and reports realized PnL per symbol. When a Parquet
// archive is available it cross-checks the two fill sources.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"time"

	"simtrade/internal/domain"
	"simtrade/internal/portfolio"
	"simtrade/internal/store"
)

func main() {
	dbPath := flag.String("db", "simtrade.db", "path to the SQLite order/fill history")
	archiveDir := flag.String("archive", "", "Parquet fill archive directory to cross-check (optional)")
	days := flag.Int("days", 30, "how many days back to read from the archive")
	flag.Parse()

	history, err := store.NewSQLiteStore(*dbPath)
	if err != nil {
		log.Fatalf("opening fill history: %v", err)
	}
	defer history.Close()

	ctx := context.Background()
	fills, err := history.Fills(ctx)
	if err != nil {
		log.Fatalf("reading fills: %v", err)
	}
	if len(fills) == 0 {
		fmt.Println("no fills recorded")
		return
	}

	realized := portfolio.ReplayRealized(fills)
	report(fills, realized)

	if *archiveDir != "" {
		crossCheck(*archiveDir, *days, realized)
	}
}

func report(fills []domain.Fill, realized map[string]float64) {
	symbols := make([]string, 0, len(realized))
	for s := range realized {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	fmt.Printf("replayed %d fills\n\n", len(fills))
	fmt.Printf("%-8s %14s\n", "SYMBOL", "REALIZED PNL")
	var total float64
	for _, s := range symbols {
		fmt.Printf("%-8s %14.2f\n", s, realized[s])
		total += realized[s]
	}
	fmt.Printf("%-8s %14.2f\n", "TOTAL", total)
}

// crossCheck replays the Parquet archive over the same window and compares
// per-symbol realized PnL against the SQLite replay.
func crossCheck(archiveDir string, days int, want map[string]float64) {
	archive := store.NewParquetArchive(archiveDir)
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	fills, err := archive.ReadFills(start, end)
	if err != nil {
		log.Fatalf("reading archive: %v", err)
	}
	got := portfolio.ReplayRealized(fills)

	var mismatches int
	for s, w := range want {
		if math.Abs(got[s]-w) > 1e-6 {
			fmt.Fprintf(os.Stderr, "MISMATCH %s: db=%.2f archive=%.2f\n", s, w, got[s])
			mismatches++
		}
	}
	for s := range got {
		if _, ok := want[s]; !ok {
			fmt.Fprintf(os.Stderr, "MISMATCH %s: present only in archive\n", s)
			mismatches++
		}
	}

	if mismatches > 0 {
		fmt.Fprintf(os.Stderr, "\narchive cross-check FAILED: %d mismatched symbols\n", mismatches)
		os.Exit(1)
	}
	fmt.Printf("\narchive cross-check OK (%d archived fills)\n", len(fills))
}
