package protocol

import (
	"errors"
	"strconv"

	"github.com/google/uuid"

	"islandlimits.dev/internal/sim/limits"
)

// Localization keys understood by clients.
const (
	KeyPanelTitle       = "limits.panel-title"
	KeyNoIsland         = "general.errors.no-island"
	KeyPlayerNoIsland   = "general.errors.player-has-no-island"
	KeyNoLimits         = "island.limits.no-limits"
	KeyMaxColor         = "island.limits.max-color"
	KeyRegularColor     = "island.limits.regular-color"
	KeyBlockLimitSyntax = "island.limits.block-limit-syntax"

	VarNumber = "[number]"
	VarLimit  = "[limit]"
)

// NewLimitsPanel turns a build result into the panel message. A missing island
// becomes a NO_ISLAND panel worded for the requester; any other error is
// returned unchanged.
func NewLimitsPanel(reqID, world string, requester, target uuid.UUID, rep limits.Report, err error) (LimitsPanel, error) {
	p := LimitsPanel{
		Type:            TypeLimitsPanel,
		ProtocolVersion: Version,
		ReqID:           reqID,
		World:           world,
		Target:          target.String(),
		TitleKey:        KeyPanelTitle,
		Rows:            []PanelRow{},
	}
	if err != nil {
		if !errors.Is(err, limits.ErrNoTerritory) {
			return LimitsPanel{}, err
		}
		p.Status = PanelNoIsland
		if requester == target {
			p.MessageKey = KeyNoIsland
		} else {
			p.MessageKey = KeyPlayerNoIsland
		}
		return p, nil
	}

	p.Island = rep.Island
	if rep.Status == limits.StatusNoLimits {
		p.Status = PanelNoLimits
		p.MessageKey = KeyNoLimits
		return p, nil
	}
	p.Status = PanelOK
	for _, r := range rep.Rows {
		color := KeyRegularColor
		if r.AtOrOverLimit {
			color = KeyMaxColor
		}
		p.Rows = append(p.Rows, PanelRow{
			Kind:           r.Kind.String(),
			Label:          r.Label,
			Icon:           r.Icon,
			Count:          r.Count,
			Limit:          r.Limit,
			AtLimit:        r.AtOrOverLimit,
			ColorKey:       color,
			DescriptionKey: KeyBlockLimitSyntax,
			Vars: map[string]string{
				VarNumber: strconv.Itoa(r.Count),
				VarLimit:  strconv.Itoa(r.Limit),
			},
		})
	}
	return p, nil
}
