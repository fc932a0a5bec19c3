package protocol_test

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"islandlimits.dev/internal/protocol"
	"islandlimits.dev/internal/sim/limits"
)

func TestSchemas_ValidateSamples(t *testing.T) {
	compile := func(name string) *jsonschema.Schema {
		t.Helper()
		p := filepath.Join("..", "..", "schemas", name)
		s, err := jsonschema.Compile(p)
		if err != nil {
			t.Fatalf("compile %s: %v", name, err)
		}
		return s
	}

	// validate round-trips v through JSON so the schema sees the wire form.
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if err := s.Validate(doc); err != nil {
			t.Fatalf("validate %s: %v", b, err)
		}
	}

	reqSchema := compile("limits_req.schema.json")
	panelSchema := compile("limits_panel.schema.json")
	errSchema := compile("error.schema.json")
	helloSchema := compile("hello.schema.json")

	validate(helloSchema, protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerID:        uuid.NewString(),
	})

	validate(reqSchema, protocol.LimitsReq{
		Type:            protocol.TypeLimits,
		ProtocolVersion: protocol.Version,
		ReqID:           "R1",
		World:           "skyblock_world",
		Target:          uuid.NewString(),
	})

	owner := uuid.New()
	rep := limits.Report{
		Status: limits.StatusOK,
		Island: "I1",
		Rows: []limits.Row{
			{Kind: limits.Block("HOPPER"), Label: "Hopper", Icon: "HOPPER", Count: 10, Limit: 10, AtOrOverLimit: true},
			{Kind: limits.Entity("MINECART_HOPPER"), Label: "Minecart Hopper", Icon: "HOPPER_MINECART", Count: 0, Limit: 4},
		},
	}
	panel, err := protocol.NewLimitsPanel("R1", "skyblock_world", owner, owner, rep, nil)
	if err != nil {
		t.Fatalf("NewLimitsPanel: %v", err)
	}
	validate(panelSchema, panel)

	empty, err := protocol.NewLimitsPanel("R2", "skyblock_world", owner, owner, limits.Report{Status: limits.StatusNoLimits, Island: "I1"}, nil)
	if err != nil {
		t.Fatalf("NewLimitsPanel: %v", err)
	}
	validate(panelSchema, empty)

	missing, err := protocol.NewLimitsPanel("R4", "skyblock_world", owner, uuid.New(), limits.Report{}, fmt.Errorf("lookup: %w", limits.ErrNoTerritory))
	if err != nil {
		t.Fatalf("NewLimitsPanel: %v", err)
	}
	validate(panelSchema, missing)

	validate(errSchema, protocol.NewError("R3", protocol.ErrWorldNotFound, "unknown world"))
}
