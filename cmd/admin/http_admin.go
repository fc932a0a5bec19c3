package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"islandlimits.dev/internal/protocol"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state"
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

// saveCmd asks the server to write a snapshot.
func saveCmd(args []string) {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/snapshot"
	req, _ := http.NewRequest(http.MethodPost, u, nil)
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}

// limitsCmd fetches and prints the limits panel of a player's island.
func limitsCmd(args []string) {
	fs := flag.NewFlagSet("limits", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	worldID := fs.String("world", "", "world id")
	player := fs.String("player", "", "player uuid")
	requester := fs.String("requester", "", "requester uuid (optional; defaults to -player)")
	asJSON := fs.Bool("json", false, "print the raw panel")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" || strings.TrimSpace(*player) == "" {
		fmt.Fprintln(os.Stderr, "missing -world or -player")
		os.Exit(2)
	}
	q := url.Values{}
	q.Set("world", *worldID)
	q.Set("player", *player)
	if *requester != "" {
		q.Set("requester", *requester)
	}
	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/limits?" + q.Encode()
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(string(b)))
		os.Exit(1)
	}
	if *asJSON {
		fmt.Println(string(b))
		return
	}
	var p protocol.LimitsPanel
	if err := json.Unmarshal(b, &p); err != nil {
		fmt.Fprintln(os.Stderr, "decode:", err)
		os.Exit(1)
	}
	printPanel(os.Stdout, p)
}

func printPanel(w io.Writer, p protocol.LimitsPanel) {
	switch p.Status {
	case protocol.PanelNoIsland, protocol.PanelNoLimits:
		fmt.Fprintf(w, "%s (%s)\n", p.Status, p.MessageKey)
		return
	}
	fmt.Fprintf(w, "island %s in %s\n", p.Island, p.World)
	for _, r := range p.Rows {
		mark := " "
		if r.AtLimit {
			mark = "!"
		}
		fmt.Fprintf(w, "%s %-24s %-28s %8s / %-8s\n", mark, r.Label, r.Icon,
			humanize.Comma(int64(r.Count)), humanize.Comma(int64(r.Limit)))
	}
}
