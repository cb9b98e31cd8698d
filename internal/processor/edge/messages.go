package edge

import "github.com/fortuna/oddspipeline/internal/processor/filter"

// ClientMessage is one inbound WS frame (§6 "WS client protocol").
type ClientMessage struct {
	Type   string       `json:"type"`
	Filter *filter.Expr `json:"filter,omitempty"`
}

const (
	clientSubscribe    = "subscribe"
	clientUpdateFilter = "update_filter"
	clientRemoveFilter = "remove_filter"
)

// ServerMessage is one outbound WS frame: odds_snapshot, odds_update or
// odds_removed, all sharing the same envelope shape.
type ServerMessage struct {
	Type          string                 `json:"type"`
	FixtureID     int64                  `json:"fixture_id"`
	Timestamp     int64                  `json:"timestamp"`
	Start         int64                  `json:"start"`
	End           int64                  `json:"end"`
	Bookmakers    map[string]interface{} `json:"bookmakers"`
	FilterMatches []filter.MatchTrace    `json:"filter_matches,omitempty"`
}

const (
	serverSnapshot = "odds_snapshot"
	serverUpdate   = "odds_update"
	serverRemoved  = "odds_removed"
)
