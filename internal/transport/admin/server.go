package admin

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"islandlimits.dev/internal/persistence/snapshot"
	"islandlimits.dev/internal/protocol"
	"islandlimits.dev/internal/sim/entities"
	"islandlimits.dev/internal/sim/islands"
)

// PanelServer answers limits requests; *ws.Server satisfies it.
type PanelServer interface {
	Serve(req protocol.LimitsReq, requester uuid.UUID) any
}

// BlockTracker is the block count store; *indexdb.BlockStore satisfies it.
type BlockTracker interface {
	RecordPlace(islandID, block string) int
	RecordBreak(islandID, block string) int
	SetCount(islandID, block string, n int)
	SetIslandLimit(islandID, block string, limit int) error
	ClearIslandLimit(islandID, block string)
	DropIsland(islandID string)
	Flush(ctx context.Context) error
}

// WorldRegistrar learns worlds introduced by admin-created islands;
// *ws.Server satisfies it.
type WorldRegistrar interface {
	AddWorld(world string) bool
}

type Config struct {
	Islands     *islands.Registry
	Entities    *entities.Registry
	Store       BlockTracker
	SnapshotDir string

	// Worlds restricts where islands may be created; empty allows any, and
	// Registrar then learns the new world.
	Worlds       []string
	DefaultRange int // for islands created without a range
	// Registrar, when set, is told the world of every created island.
	Registrar WorldRegistrar
}

// Server exposes loopback-only admin endpoints.
type Server struct {
	panels PanelServer
	cfg    Config
	log    *log.Logger
}

func NewServer(panels PanelServer, cfg Config, logger *log.Logger) *Server {
	return &Server{panels: panels, cfg: cfg, log: logger}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/v1/limits", s.LimitsHandler())
	mux.HandleFunc("/admin/v1/state", s.StateHandler())
	mux.HandleFunc("/admin/v1/snapshot", s.SnapshotHandler())
	mux.HandleFunc("/admin/v1/islands", s.IslandsHandler())
	mux.HandleFunc("/admin/v1/entities", s.EntitiesHandler())
	mux.HandleFunc("/admin/v1/blocks", s.BlocksHandler())
	mux.HandleFunc("/admin/v1/island_limits", s.IslandLimitsHandler())
}

// LimitsHandler serves GET /admin/v1/limits?world=W&player=UUID[&requester=UUID].
// The requester defaults to the player.
func (s *Server) LimitsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		q := r.URL.Query()
		player, err := uuid.Parse(strings.TrimSpace(q.Get("player")))
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, "bad player"))
			return
		}
		requester := player
		if v := strings.TrimSpace(q.Get("requester")); v != "" {
			if requester, err = uuid.Parse(v); err != nil {
				writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, "bad requester"))
				return
			}
		}

		out := s.panels.Serve(protocol.LimitsReq{
			Type:            protocol.TypeLimits,
			ProtocolVersion: protocol.Version,
			World:           q.Get("world"),
			Target:          player.String(),
		}, requester)
		writeJSON(rw, statusFor(out), out)
	}
}

func (s *Server) StateHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := struct {
			Islands  int `json:"islands"`
			Entities int `json:"entities"`
		}{}
		if s.cfg.Islands != nil {
			resp.Islands = s.cfg.Islands.Len()
		}
		if s.cfg.Entities != nil {
			resp.Entities = s.cfg.Entities.Len()
		}
		writeJSON(rw, http.StatusOK, resp)
	}
}

func (s *Server) SnapshotHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		if s.cfg.SnapshotDir == "" {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "snapshots disabled"})
			return
		}
		if s.cfg.Store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if err := s.cfg.Store.Flush(ctx); err != nil {
				s.logf("flush store: %v", err)
				writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
				return
			}
		}
		snap := snapshot.Capture(s.cfg.Islands, s.cfg.Entities)
		path := snapshot.PathFor(s.cfg.SnapshotDir, time.Now())
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			s.logf("write snapshot: %v", err)
			writeJSON(rw, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{
			"ok":       true,
			"path":     path,
			"islands":  snap.Header.Islands,
			"entities": snap.Header.Entities,
		})
	}
}

func statusFor(out any) int {
	e, ok := out.(protocol.ErrorMsg)
	if !ok {
		return http.StatusOK
	}
	switch e.Code {
	case protocol.ErrWorldNotFound:
		return http.StatusNotFound
	case protocol.ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
