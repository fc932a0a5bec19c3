package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"islandlimits.dev/internal/protocol"
	"islandlimits.dev/internal/sim/limits"
)

// PanelBuilder is satisfied by *limits.Builder.
type PanelBuilder interface {
	Build(world string, owner uuid.UUID) (limits.Report, error)
}

// ReportSink receives every panel served; *log.ReportLogger satisfies it.
type ReportSink interface {
	WriteReport(requester string, p protocol.LimitsPanel) error
}

type Config struct {
	Worlds   []string
	Catalogs protocol.CatalogDigests
	Reports  ReportSink
}

type Server struct {
	builder PanelBuilder
	cfg     Config
	log     *log.Logger

	mu       sync.RWMutex
	worlds   map[string]struct{}
	worldIDs []string

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
}

func NewServer(b PanelBuilder, cfg Config, logger *log.Logger) *Server {
	s := &Server{
		builder: b,
		cfg:     cfg,
		log:     logger,
		worlds:  make(map[string]struct{}, len(cfg.Worlds)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	for _, w := range cfg.Worlds {
		s.AddWorld(w)
	}
	return s
}

// AddWorld makes world answerable; islands created at runtime may bring new
// worlds. Returns false if the world was already known.
func (s *Server) AddWorld(world string) bool {
	world = strings.TrimSpace(world)
	if world == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.worlds[world]; ok {
		return false
	}
	s.worlds[world] = struct{}{}
	s.worldIDs = append(s.worldIDs, world)
	return true
}

func (s *Server) Worlds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.worldIDs...)
}

func (s *Server) knownWorld(world string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.worlds[world]
	return ok
}

// Serve answers one LIMITS request. It returns a protocol.LimitsPanel or a
// protocol.ErrorMsg.
func (s *Server) Serve(req protocol.LimitsReq, requester uuid.UUID) any {
	world := strings.TrimSpace(req.World)
	if world == "" {
		return protocol.NewError(req.ReqID, protocol.ErrBadRequest, "missing world")
	}
	if !s.knownWorld(world) {
		return protocol.NewError(req.ReqID, protocol.ErrWorldNotFound, "unknown world "+world)
	}
	target := requester
	if t := strings.TrimSpace(req.Target); t != "" {
		id, err := uuid.Parse(t)
		if err != nil {
			return protocol.NewError(req.ReqID, protocol.ErrBadRequest, "bad target: "+err.Error())
		}
		target = id
	}
	if target == uuid.Nil {
		return protocol.NewError(req.ReqID, protocol.ErrBadRequest, "missing target")
	}

	rep, err := s.builder.Build(world, target)
	panel, err := protocol.NewLimitsPanel(req.ReqID, world, requester, target, rep, err)
	if err != nil {
		s.logf("limits world=%s target=%s: %v", world, target, err)
		return protocol.NewError(req.ReqID, protocol.ErrInternal, "internal error")
	}
	if s.cfg.Reports != nil {
		if err := s.cfg.Reports.WriteReport(requester.String(), panel); err != nil {
			s.logf("report log: %v", err)
		}
	}
	return panel
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		player, ok := s.handshake(conn)
		if !ok {
			return
		}

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				if writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "bad json")) != nil {
					break
				}
				continue
			}
			if base.Type != protocol.TypeLimits || base.ProtocolVersion != protocol.Version {
				if writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "expected LIMITS "+protocol.Version)) != nil {
					break
				}
				continue
			}
			var req protocol.LimitsReq
			if err := json.Unmarshal(msg, &req); err != nil {
				if writeJSON(conn, protocol.NewError("", protocol.ErrProtoBadRequest, "bad LIMITS")) != nil {
					break
				}
				continue
			}
			if err := writeJSON(conn, s.Serve(req, player)); err != nil {
				break
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

func (s *Server) handshake(conn *websocket.Conn) (uuid.UUID, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return uuid.Nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return uuid.Nil, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return uuid.Nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return uuid.Nil, false
	}
	player, err := uuid.Parse(strings.TrimSpace(hello.PlayerID))
	if err != nil || player == uuid.Nil {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad player_id"), time.Now().Add(time.Second))
		return uuid.Nil, false
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "S" + strconv.FormatUint(s.nextID.Add(1), 10),
		Worlds:          s.Worlds(),
		Catalogs:        s.cfg.Catalogs,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return uuid.Nil, false
	}
	return player, true
}

func (s *Server) logf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
