package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"islandlimits.dev/internal/protocol"
)

// bot is a ws client that asks for a limits panel, prints it, and optionally
// keeps polling.
func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		player   = flag.String("player", "", "player uuid to connect as")
		worldID  = flag.String("world", "", "world id (default: first world in WELCOME)")
		target   = flag.String("target", "", "player whose island to show (default: self)")
		interval = flag.Duration("every", 0, "repeat the request at this interval (0 = once)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	id, err := uuid.Parse(*player)
	if err != nil {
		logger.Fatalf("bad -player: %v", err)
	}
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerID:        id.String(),
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	logger.Printf("WELCOME session=%s worlds=%v blocks=%d items=%d", welcome.SessionID, welcome.Worlds,
		welcome.Catalogs.BlockPalette.Count, welcome.Catalogs.ItemPalette.Count)

	world := *worldID
	if world == "" {
		if len(welcome.Worlds) == 0 {
			logger.Fatalf("server announced no worlds")
		}
		world = welcome.Worlds[0]
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	for n := 1; ; n++ {
		req := protocol.LimitsReq{
			Type:            protocol.TypeLimits,
			ProtocolVersion: protocol.Version,
			ReqID:           fmt.Sprintf("L%d", n),
			World:           world,
			Target:          *target,
		}
		if err := conn.WriteJSON(req); err != nil {
			logger.Fatalf("send LIMITS: %v", err)
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.Fatalf("read: %v", err)
		}
		handleReply(logger, msg)

		if *interval <= 0 {
			return
		}
		select {
		case <-stop:
			return
		case <-time.After(*interval):
		}
	}
}

func handleReply(logger *log.Logger, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		logger.Printf("bad reply: %v", err)
		return
	}
	switch base.Type {
	case protocol.TypeLimitsPanel:
		var p protocol.LimitsPanel
		if err := json.Unmarshal(msg, &p); err != nil {
			logger.Printf("bad panel: %v", err)
			return
		}
		if p.Status != protocol.PanelOK {
			logger.Printf("%s %s: %s", p.ReqID, p.Status, p.MessageKey)
			return
		}
		logger.Printf("%s island=%s rows=%d", p.ReqID, p.Island, len(p.Rows))
		for _, r := range p.Rows {
			mark := ""
			if r.AtLimit {
				mark = " (max)"
			}
			logger.Printf("  %-22s %-26s %d/%d%s", r.Label, r.Icon, r.Count, r.Limit, mark)
		}
	case protocol.TypeError:
		var e protocol.ErrorMsg
		_ = json.Unmarshal(msg, &e)
		logger.Printf("%s ERROR %s: %s", e.ReqID, e.Code, e.Message)
	default:
		logger.Printf("unexpected %s", base.Type)
	}
}
