// Package viewdto holds the wire types of the view feed.
package viewdto

import "time"

// Message types on the feed socket.
const (
	TypeView  = "view"
	TypeHello = "hello"
)

type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Status struct {
	Kind    string    `json:"kind"`
	Op      string    `json:"op,omitempty"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at,omitempty"`
}

// View mirrors what the client is displaying. Rows are eight strings of
// piece letters, row 0 (rank 8) first; '*' is a move marker and '.' empty.
type View struct {
	Version   uint64 `json:"version"`
	SessionID string `json:"session_id"`
	GameID    string `json:"game_id,omitempty"`

	Phase         string   `json:"phase"`
	Rows          []string `json:"rows,omitempty"`
	Placement     string   `json:"placement,omitempty"`
	Markers       []Coord  `json:"markers,omitempty"`
	Threatened    []Coord  `json:"threatened,omitempty"`
	Offset        int      `json:"offset"`
	Turn          int      `json:"turn"`
	CurrentPlayer string   `json:"current_player,omitempty"`
	Mode          string   `json:"mode,omitempty"`

	PromotionPending bool `json:"promotion_pending"`
	SetupInFlight    bool `json:"setup_in_flight"`
	ActionInFlight   bool `json:"action_in_flight"`
	AutoPlaying      bool `json:"auto_playing"`
	RemoteSnapshot   bool `json:"remote_snapshot"`

	Status Status `json:"status"`
}

// Envelope is one socket message.
type Envelope struct {
	Type string `json:"type"`
	View *View  `json:"view,omitempty"`
}
