package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"islandlimits.dev/internal/protocol"
	"islandlimits.dev/internal/sim/limits"
)

var (
	owner    = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	stranger = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

type stubBuilder struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (b *stubBuilder) Calls() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uuid.UUID(nil), b.calls...)
}

func (b *stubBuilder) Build(world string, who uuid.UUID) (limits.Report, error) {
	b.mu.Lock()
	b.calls = append(b.calls, who)
	b.mu.Unlock()
	if who != owner {
		return limits.Report{}, fmt.Errorf("world %s player %s: %w", world, who, limits.ErrNoTerritory)
	}
	return limits.Report{
		Status: limits.StatusOK,
		World:  world,
		Island: "isl_1",
		Rows: []limits.Row{
			{Kind: limits.Block("HOPPER"), Label: "Hopper", Icon: "HOPPER", Count: 3, Limit: 3, AtOrOverLimit: true},
		},
	}, nil
}

type sinkRec struct {
	mu         sync.Mutex
	requesters []string
}

func (s *sinkRec) WriteReport(requester string, p protocol.LimitsPanel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requesters = append(s.requesters, requester)
	return nil
}

func (s *sinkRec) Requesters() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requesters...)
}

func newTestServer(t *testing.T) (*httptest.Server, *stubBuilder, *sinkRec) {
	t.Helper()
	b := &stubBuilder{}
	sink := &sinkRec{}
	srv := NewServer(b, Config{Worlds: []string{"skyblock_world"}, Reports: sink}, log.New(io.Discard, "", 0))
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", srv.Handler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, b, sink
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func hello(t *testing.T, conn *websocket.Conn, player uuid.UUID) protocol.WelcomeMsg {
	t.Helper()
	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerID: player.String()}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	var w protocol.WelcomeMsg
	readJSON(t, conn, &w)
	return w
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
}

func TestHandshake(t *testing.T) {
	ts, _, _ := newTestServer(t)
	conn := dial(t, ts)

	w := hello(t, conn, owner)
	if w.Type != protocol.TypeWelcome || w.ProtocolVersion != protocol.Version {
		t.Fatalf("welcome=%+v", w)
	}
	if w.SessionID == "" {
		t.Fatalf("missing session id")
	}
	if len(w.Worlds) != 1 || w.Worlds[0] != "skyblock_world" {
		t.Fatalf("worlds=%v", w.Worlds)
	}
}

func TestHandshake_RejectsBadPlayer(t *testing.T) {
	ts, _, _ := newTestServer(t)
	conn := dial(t, ts)

	if err := conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, PlayerID: "nope"}); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.ClosePolicyViolation {
		t.Fatalf("err=%v", err)
	}
}

func TestLimits_OwnIsland(t *testing.T) {
	ts, b, sink := newTestServer(t)
	conn := dial(t, ts)
	hello(t, conn, owner)

	if err := conn.WriteJSON(protocol.LimitsReq{Type: protocol.TypeLimits, ProtocolVersion: protocol.Version, ReqID: "r1", World: "skyblock_world"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var p protocol.LimitsPanel
	readJSON(t, conn, &p)
	if p.Type != protocol.TypeLimitsPanel || p.ReqID != "r1" || p.Status != protocol.PanelOK {
		t.Fatalf("panel=%+v", p)
	}
	if len(p.Rows) != 1 || p.Rows[0].ColorKey != protocol.KeyMaxColor {
		t.Fatalf("rows=%+v", p.Rows)
	}
	if calls := b.Calls(); len(calls) != 1 || calls[0] != owner {
		t.Fatalf("calls=%v", calls)
	}
	if reqs := sink.Requesters(); len(reqs) != 1 || reqs[0] != owner.String() {
		t.Fatalf("reports=%v", reqs)
	}
}

func TestLimits_OtherPlayerWithoutIsland(t *testing.T) {
	ts, _, _ := newTestServer(t)
	conn := dial(t, ts)
	hello(t, conn, owner)

	if err := conn.WriteJSON(protocol.LimitsReq{Type: protocol.TypeLimits, ProtocolVersion: protocol.Version, World: "skyblock_world", Target: stranger.String()}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var p protocol.LimitsPanel
	readJSON(t, conn, &p)
	if p.Status != protocol.PanelNoIsland || p.MessageKey != protocol.KeyPlayerNoIsland {
		t.Fatalf("panel=%+v", p)
	}
	if p.Target != stranger.String() {
		t.Fatalf("target=%q", p.Target)
	}
}

func TestLimits_Errors(t *testing.T) {
	ts, b, _ := newTestServer(t)
	conn := dial(t, ts)
	hello(t, conn, owner)

	cases := []struct {
		name string
		raw  string
		code string
	}{
		{"bad json", `{`, protocol.ErrProtoBadRequest},
		{"wrong type", `{"type":"HELLO","protocol_version":"1.0"}`, protocol.ErrProtoBadRequest},
		{"wrong version", `{"type":"LIMITS","protocol_version":"0.9","world":"skyblock_world"}`, protocol.ErrProtoBadRequest},
		{"missing world", `{"type":"LIMITS","protocol_version":"1.0"}`, protocol.ErrBadRequest},
		{"unknown world", `{"type":"LIMITS","protocol_version":"1.0","world":"nether"}`, protocol.ErrWorldNotFound},
		{"bad target", `{"type":"LIMITS","protocol_version":"1.0","world":"skyblock_world","target":"x"}`, protocol.ErrBadRequest},
	}
	for _, tc := range cases {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tc.raw)); err != nil {
			t.Fatalf("%s: write: %v", tc.name, err)
		}
		var e protocol.ErrorMsg
		readJSON(t, conn, &e)
		if e.Type != protocol.TypeError || e.Code != tc.code {
			t.Fatalf("%s: got %+v want code %s", tc.name, e, tc.code)
		}
	}
	if calls := b.Calls(); len(calls) != 0 {
		t.Fatalf("builder should not be called, got %v", calls)
	}
}

func TestServe_InternalError(t *testing.T) {
	srv := NewServer(failingBuilder{}, Config{Worlds: []string{"w"}}, nil)
	out := srv.Serve(protocol.LimitsReq{ReqID: "r", World: "w"}, owner)
	e, ok := out.(protocol.ErrorMsg)
	if !ok || e.Code != protocol.ErrInternal || e.ReqID != "r" {
		t.Fatalf("out=%+v", out)
	}
}

type failingBuilder struct{}

func (failingBuilder) Build(string, uuid.UUID) (limits.Report, error) {
	return limits.Report{}, fmt.Errorf("boom")
}

func TestAddWorld(t *testing.T) {
	srv := NewServer(failingBuilder{}, Config{Worlds: []string{"w"}}, nil)
	if out, ok := srv.Serve(protocol.LimitsReq{ReqID: "r", World: "late"}, owner).(protocol.ErrorMsg); !ok || out.Code != protocol.ErrWorldNotFound {
		t.Fatalf("unknown world: %+v", out)
	}
	if !srv.AddWorld(" late ") {
		t.Fatalf("AddWorld should report a new world")
	}
	if srv.AddWorld("late") || srv.AddWorld("w") || srv.AddWorld("") {
		t.Fatalf("AddWorld accepted a known or empty world")
	}
	if got := strings.Join(srv.Worlds(), ","); got != "w,late" {
		t.Fatalf("worlds=%s", got)
	}
	// Known now, so the request reaches the builder.
	if out, ok := srv.Serve(protocol.LimitsReq{ReqID: "r", World: "late"}, owner).(protocol.ErrorMsg); !ok || out.Code != protocol.ErrInternal {
		t.Fatalf("added world: %+v", out)
	}
}
