package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// PlayerID is the requesting player; panels for other players are
	// worded as "player has no island" rather than "you have no island".
	PlayerID string `json:"player_id"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	Worlds          []string       `json:"worlds"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	BlockPalette   DigestRef `json:"block_palette"`
	ItemPalette    DigestRef `json:"item_palette"`
	EntitiesDigest string    `json:"entities_digest"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// LIMITS (client -> server): show the limits panel of Target's island.
// An empty Target means the requester's own island.
type LimitsReq struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	World           string `json:"world"`
	Target          string `json:"target,omitempty"`
}

// Panel statuses.
const (
	PanelOK       = "OK"
	PanelNoLimits = "NO_LIMITS"
	PanelNoIsland = "NO_ISLAND"
)

// LIMITS_PANEL (server -> client)
type LimitsPanel struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	ReqID           string     `json:"req_id,omitempty"`
	World           string     `json:"world"`
	Target          string     `json:"target"`
	Island          string     `json:"island,omitempty"`
	Status          string     `json:"status"`
	TitleKey        string     `json:"title_key"`
	MessageKey      string     `json:"message_key,omitempty"`
	Rows            []PanelRow `json:"rows"`
}

type PanelRow struct {
	Kind           string            `json:"kind"`
	Label          string            `json:"label"`
	Icon           string            `json:"icon"`
	Count          int               `json:"count"`
	Limit          int               `json:"limit"`
	AtLimit        bool              `json:"at_limit"`
	ColorKey       string            `json:"color_key"`
	DescriptionKey string            `json:"description_key"`
	Vars           map[string]string `json:"vars"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(reqID, code, msg string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, ReqID: reqID, Code: code, Message: msg}
}
