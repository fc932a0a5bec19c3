package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"islandlimits.dev/internal/persistence/indexdb"
)

// countsCmd prints the stored block counts of an island straight from the
// index database. The server may keep running; writes are batched.
func countsCmd(args []string) {
	fs := flag.NewFlagSet("counts", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	island := fs.String("island", "", "island id")
	asJSON := fs.Bool("json", false, "print as json")
	_ = fs.Parse(args)

	if strings.TrimSpace(*island) == "" {
		fmt.Fprintln(os.Stderr, "missing -island")
		os.Exit(2)
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "blocks.sqlite")
	}

	counts, err := indexdb.ReadIslandCounts(path, *island)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read counts:", err)
		os.Exit(1)
	}
	if *asJSON {
		printJSON(counts)
		return
	}
	blocks := make([]string, 0, len(counts))
	total := 0
	for b, n := range counts {
		blocks = append(blocks, b)
		total += n
	}
	sort.Strings(blocks)
	for _, b := range blocks {
		fmt.Printf("%-24s %10s\n", b, humanize.Comma(int64(counts[b])))
	}
	fmt.Printf("%-24s %10s\n", "TOTAL", humanize.Comma(int64(total)))
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
