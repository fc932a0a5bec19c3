package admin

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"

	"islandlimits.dev/internal/protocol"
	"islandlimits.dev/internal/sim/entities"
	"islandlimits.dev/internal/sim/islands"
)

type IslandReq struct {
	ID      string      `json:"id"`
	World   string      `json:"world"`
	Owner   uuid.UUID   `json:"owner"`
	Members []uuid.UUID `json:"members,omitempty"`
	Center  [3]int      `json:"center"`
	Range   int         `json:"range,omitempty"`
}

type EntityReq struct {
	ID    uuid.UUID `json:"id,omitempty"`
	Type  string    `json:"type"`
	World string    `json:"world"`
	Pos   [3]int    `json:"pos"`
}

// Block ops.
const (
	BlockPlace = "place"
	BlockBreak = "break"
	BlockSet   = "set"
)

type BlockReq struct {
	Island string `json:"island"`
	Block  string `json:"block"`
	Op     string `json:"op"`
	Count  int    `json:"count,omitempty"`
}

// IslandLimitReq sets a per-island block cap; a nil Limit clears it.
type IslandLimitReq struct {
	Island string `json:"island"`
	Block  string `json:"block"`
	Limit  *int   `json:"limit"`
}

// IslandsHandler: POST creates an island, DELETE ?id= removes it together
// with its stored counts.
func (s *Server) IslandsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.guard(rw, r, http.MethodPost, http.MethodDelete) {
			return
		}
		if s.cfg.Islands == nil {
			writeJSON(rw, http.StatusServiceUnavailable, protocol.NewError("", protocol.ErrInternal, "no island registry"))
			return
		}
		if r.Method == http.MethodDelete {
			id := strings.TrimSpace(r.URL.Query().Get("id"))
			if !s.cfg.Islands.Remove(id) {
				writeJSON(rw, http.StatusNotFound, protocol.NewError("", protocol.ErrBadRequest, "unknown island "+id))
				return
			}
			if s.cfg.Store != nil {
				s.cfg.Store.DropIsland(id)
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
			return
		}

		var req IslandReq
		if !decodeBody(rw, r, &req) {
			return
		}
		if len(s.cfg.Worlds) > 0 && !slices.Contains(s.cfg.Worlds, req.World) {
			writeJSON(rw, http.StatusNotFound, protocol.NewError("", protocol.ErrWorldNotFound, "unknown world "+req.World))
			return
		}
		if req.Range == 0 {
			req.Range = s.cfg.DefaultRange
		}
		is, err := islands.New(islands.Spec{
			ID:      req.ID,
			World:   req.World,
			Owner:   req.Owner,
			Members: req.Members,
			Center:  req.Center,
			Range:   req.Range,
		})
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, err.Error()))
			return
		}
		if err := s.cfg.Islands.Add(is); err != nil {
			writeJSON(rw, http.StatusConflict, protocol.NewError("", protocol.ErrBadRequest, err.Error()))
			return
		}
		if s.cfg.Registrar != nil && s.cfg.Registrar.AddWorld(is.World()) {
			s.logf("world added: %s", is.World())
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "id": is.ID()})
	}
}

// EntitiesHandler: POST spawns, DELETE ?id= despawns.
func (s *Server) EntitiesHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.guard(rw, r, http.MethodPost, http.MethodDelete) {
			return
		}
		if s.cfg.Entities == nil {
			writeJSON(rw, http.StatusServiceUnavailable, protocol.NewError("", protocol.ErrInternal, "no entity registry"))
			return
		}
		if r.Method == http.MethodDelete {
			id, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("id")))
			if err != nil {
				writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, "bad id"))
				return
			}
			if !s.cfg.Entities.Despawn(id) {
				writeJSON(rw, http.StatusNotFound, protocol.NewError("", protocol.ErrBadRequest, "unknown entity "+id.String()))
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
			return
		}

		var req EntityReq
		if !decodeBody(rw, r, &req) {
			return
		}
		id, err := s.cfg.Entities.Spawn(entities.Entity{ID: req.ID, Type: req.Type, World: req.World, Pos: req.Pos})
		if err != nil {
			writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, err.Error()))
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "id": id})
	}
}

func (s *Server) BlocksHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.guard(rw, r, http.MethodPost) {
			return
		}
		if s.cfg.Store == nil {
			writeJSON(rw, http.StatusServiceUnavailable, protocol.NewError("", protocol.ErrInternal, "no block store"))
			return
		}
		var req BlockReq
		if !decodeBody(rw, r, &req) {
			return
		}
		if strings.TrimSpace(req.Island) == "" || strings.TrimSpace(req.Block) == "" {
			writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, "missing island/block"))
			return
		}
		var n int
		switch req.Op {
		case BlockPlace:
			n = s.cfg.Store.RecordPlace(req.Island, req.Block)
		case BlockBreak:
			n = s.cfg.Store.RecordBreak(req.Island, req.Block)
		case BlockSet:
			if req.Count < 0 {
				writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, "negative count"))
				return
			}
			s.cfg.Store.SetCount(req.Island, req.Block, req.Count)
			n = req.Count
		default:
			writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, "bad op "+req.Op))
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "count": n})
	}
}

func (s *Server) IslandLimitsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.guard(rw, r, http.MethodPost) {
			return
		}
		if s.cfg.Store == nil {
			writeJSON(rw, http.StatusServiceUnavailable, protocol.NewError("", protocol.ErrInternal, "no block store"))
			return
		}
		var req IslandLimitReq
		if !decodeBody(rw, r, &req) {
			return
		}
		if req.Limit == nil {
			s.cfg.Store.ClearIslandLimit(req.Island, req.Block)
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
			return
		}
		if err := s.cfg.Store.SetIslandLimit(req.Island, req.Block, *req.Limit); err != nil {
			writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrBadRequest, err.Error()))
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) guard(rw http.ResponseWriter, r *http.Request, methods ...string) bool {
	if !slices.Contains(methods, r.Method) {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func decodeBody(rw http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(rw, http.StatusBadRequest, protocol.NewError("", protocol.ErrProtoBadRequest, "bad json: "+err.Error()))
		return false
	}
	return true
}
