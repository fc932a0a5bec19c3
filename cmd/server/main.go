package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"islandlimits.dev/internal/persistence/indexdb"
	persistlog "islandlimits.dev/internal/persistence/log"
	"islandlimits.dev/internal/persistence/snapshot"
	"islandlimits.dev/internal/protocol"
	"islandlimits.dev/internal/sim/catalogs"
	"islandlimits.dev/internal/sim/entities"
	"islandlimits.dev/internal/sim/islands"
	"islandlimits.dev/internal/sim/limits"
	"islandlimits.dev/internal/sim/textfmt"
	"islandlimits.dev/internal/sim/tuning"
	"islandlimits.dev/internal/transport/admin"
	"islandlimits.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		limitsPath = flag.String("limits", "", "path to limits.yaml (default: <configs>/limits.yaml)")
		dbPath     = flag.String("db", "", "block count database (default: <data>/index/blocks.sqlite)")
		snapPath   = flag.String("snapshot", "", "path to snapshot to load (default: latest in <data>/snapshots)")
		noReports  = flag.Bool("disable_reports", false, "do not log served panels")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	lp := strings.TrimSpace(*limitsPath)
	if lp == "" {
		lp = filepath.Join(*configDir, "limits.yaml")
	}
	cfg, err := tuning.Load(lp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load limits: %v", err)
		}
		logger.Printf("limits not found (%s); using defaults", lp)
		cfg = tuning.Defaults()
	}
	static, err := cfg.StaticLimits(cats)
	if err != nil {
		logger.Fatalf("limits: %v", err)
	}

	dp := strings.TrimSpace(*dbPath)
	if dp == "" {
		dp = filepath.Join(*dataDir, "index", "blocks.sqlite")
	}
	store, err := indexdb.OpenBlockStore(dp, cfg)
	if err != nil {
		logger.Fatalf("open block store: %v", err)
	}
	defer store.Close()

	snapDir := filepath.Join(*dataDir, "snapshots")
	isl, ents := islands.NewRegistry(), entities.NewRegistry()
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" {
		snapshotToLoad = snapshot.Latest(snapDir)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("load snapshot: %v", err)
		}
		isl, ents, err = snapshot.Restore(snap)
		if err != nil {
			logger.Fatalf("restore snapshot: %v", err)
		}
		logger.Printf("loaded snapshot %s (islands=%d entities=%d)", snapshotToLoad, isl.Len(), ents.Len())
	}

	icons := limits.NewIconResolver(cats, cfg.IconOverrides)
	builder := limits.NewBuilder(limits.Sources{
		Territories: isl,
		Blocks:      store,
		Config:      static,
		Entities:    ents,
		Text:        textfmt.New(),
	}, icons)

	wsCfg := ws.Config{
		Worlds: worldIDs(cfg, isl),
		Catalogs: protocol.CatalogDigests{
			BlockPalette:   protocol.DigestRef{Digest: cats.Blocks.PaletteDigest, Count: len(cats.Blocks.Palette)},
			ItemPalette:    protocol.DigestRef{Digest: cats.Items.PaletteDigest, Count: len(cats.Items.Palette)},
			EntitiesDigest: cats.Entities.DefsDigest,
		},
	}
	if !*noReports {
		reports := persistlog.NewWorldReports(*dataDir)
		defer reports.Close()
		wsCfg.Reports = reports
	}
	logger.Printf("worlds: %s", strings.Join(wsCfg.Worlds, ","))
	wsSrv := ws.NewServer(builder, wsCfg, logger)

	ctx, cancel := signalContext()
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", wsSrv.Handler())
	if envBool("IL_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only admin endpoints.
		admin.NewServer(wsSrv, admin.Config{
			Islands:      isl,
			Entities:     ents,
			Store:        store,
			SnapshotDir:  snapDir,
			Worlds:       wsCfg.Worlds,
			DefaultRange: cfg.IslandRange,
			Registrar:    wsSrv,
		}, logger).Register(mux)
	} else {
		logger.Printf("admin endpoints disabled (IL_ENABLE_ADMIN_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	ctx3, cancel3 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel3()
	if err := store.Flush(ctx3); err != nil {
		logger.Printf("flush block store: %v", err)
	}
	path := snapshot.PathFor(snapDir, time.Now())
	if err := snapshot.WriteSnapshot(path, snapshot.Capture(isl, ents)); err != nil {
		logger.Printf("write snapshot: %v", err)
	} else {
		logger.Printf("wrote snapshot %s", path)
	}
}

// worldIDs lists the configured worlds plus any world an island lives in.
func worldIDs(cfg tuning.Config, isl *islands.Registry) []string {
	set := map[string]struct{}{}
	for w := range cfg.Worlds {
		set[w] = struct{}{}
	}
	for _, is := range isl.All() {
		set[is.World()] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}
