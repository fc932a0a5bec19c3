package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"islandlimits.dev/internal/sim/limits"
)

func TestNewLimitsPanel_NoIslandWording(t *testing.T) {
	me, other := uuid.New(), uuid.New()
	noIsland := fmt.Errorf("world sky: %w", limits.ErrNoTerritory)

	self, err := NewLimitsPanel("r1", "sky", me, me, limits.Report{}, noIsland)
	if err != nil {
		t.Fatalf("NewLimitsPanel: %v", err)
	}
	if self.Status != PanelNoIsland || self.MessageKey != KeyNoIsland {
		t.Fatalf("unexpected self panel: %+v", self)
	}
	them, err := NewLimitsPanel("r2", "sky", me, other, limits.Report{}, noIsland)
	if err != nil {
		t.Fatalf("NewLimitsPanel: %v", err)
	}
	if them.MessageKey != KeyPlayerNoIsland || them.Target != other.String() {
		t.Fatalf("unexpected other panel: %+v", them)
	}
}

func TestNewLimitsPanel_PassesOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, err := NewLimitsPanel("r", "sky", uuid.Nil, uuid.Nil, limits.Report{}, boom); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestNewLimitsPanel_Rows(t *testing.T) {
	rep := limits.Report{
		Status: limits.StatusOK,
		Island: "I1",
		Rows: []limits.Row{
			{Kind: limits.Block("STONE"), Label: "Stone", Icon: "STONE", Count: 64, Limit: 64, AtOrOverLimit: true},
			{Kind: limits.Entity("COW"), Label: "Cow", Icon: "COW_SPAWN_EGG", Count: 3, Limit: 5},
		},
	}
	id := uuid.New()
	p, err := NewLimitsPanel("r", "sky", id, id, rep, nil)
	if err != nil {
		t.Fatalf("NewLimitsPanel: %v", err)
	}
	if p.Status != PanelOK || p.Island != "I1" || len(p.Rows) != 2 || p.MessageKey != "" {
		t.Fatalf("unexpected panel: %+v", p)
	}
	stone, cow := p.Rows[0], p.Rows[1]
	if stone.ColorKey != KeyMaxColor || stone.Vars[VarNumber] != "64" || stone.Vars[VarLimit] != "64" || stone.Kind != "block:STONE" {
		t.Fatalf("unexpected stone row: %+v", stone)
	}
	if cow.ColorKey != KeyRegularColor || cow.Vars[VarNumber] != "3" || cow.AtLimit {
		t.Fatalf("unexpected cow row: %+v", cow)
	}
}

func TestNewLimitsPanel_NoLimits(t *testing.T) {
	p, err := NewLimitsPanel("", "sky", uuid.Nil, uuid.Nil, limits.Report{Status: limits.StatusNoLimits, Island: "I1"}, nil)
	if err != nil {
		t.Fatalf("NewLimitsPanel: %v", err)
	}
	if p.Status != PanelNoLimits || p.MessageKey != KeyNoLimits || len(p.Rows) != 0 || p.Rows == nil {
		t.Fatalf("unexpected panel: %+v", p)
	}
}
