package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	persistlog "islandlimits.dev/internal/persistence/log"
	"islandlimits.dev/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "limits":
			limitsCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "save":
			saveCmd(os.Args[2:])
			return
		case "counts":
			countsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "reports":
			reportsCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the worlds that have runtime data.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(filepath.Join(*dataDir, "worlds"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		if e.IsDir() {
			fmt.Println(e.Name())
		}
	}
}

// snapshotCmd prints the header of a snapshot file without decoding its body.
func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	path := fs.String("path", "", "snapshot path (optional; defaults to latest)")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		p = snapshot.Latest(filepath.Join(*dataDir, "snapshots"))
	}
	if p == "" {
		fmt.Fprintln(os.Stderr, "no snapshots found")
		os.Exit(2)
	}
	h, err := snapshot.ReadHeader(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read header:", err)
		os.Exit(1)
	}
	age := h.SavedAt
	if h.SavedAt != "" {
		if t, err := parseTime(h.SavedAt); err == nil {
			age = humanize.Time(t)
		}
	}
	fmt.Printf("%s\n  version  %d\n  saved    %s\n  islands  %s\n  entities %s\n",
		p, h.Version, age, humanize.Comma(int64(h.Islands)), humanize.Comma(int64(h.Entities)))
}

func reportsCmd(args []string) {
	fs := flag.NewFlagSet("reports", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	requester := fs.String("requester", "", "requester filter (optional)")
	target := fs.String("target", "", "target player filter (optional)")
	asJSON := fs.Bool("json", false, "print raw entries")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	recs, err := persistlog.ReadReports(filepath.Join(*dataDir, "worlds", *worldID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "read reports:", err)
		os.Exit(1)
	}
	for _, r := range recs {
		if *requester != "" && r.Requester != *requester {
			continue
		}
		if *target != "" && r.Panel.Target != *target {
			continue
		}
		if *asJSON {
			printJSON(r)
			continue
		}
		full := 0
		for _, row := range r.Panel.Rows {
			if row.AtLimit {
				full++
			}
		}
		fmt.Printf("%s requester=%s target=%s status=%s rows=%d at_limit=%d\n",
			r.Time, r.Requester, r.Panel.Target, r.Panel.Status, len(r.Panel.Rows), full)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
