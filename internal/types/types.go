// Package types defines the wire schema between client and server. The
// payload format is versioned: every snapshot carries the session's state
// version so clients can discard stale frames.
package types

import "github.com/Pamplemouss/eorguessr-backend/internal/engine"

type ClientMessage struct {
	Type string `json:"type"` // "StartGame" | "SubmitGuess" | "NextRound"
	X    int8   `json:"x,omitempty"`
	Y    int8   `json:"y,omitempty"`
}

type ServerMessage struct {
	Type      string             `json:"type"` // "StateSnapshot" | "GuessResult" | "Error"
	Version   int                `json:"version,omitempty"`
	State     *engine.ClientView `json:"state,omitempty"`
	Round     int                `json:"round,omitempty"`
	Score     *int8              `json:"score,omitempty"`
	Duplicate bool               `json:"duplicate,omitempty"`
	Code      string             `json:"code,omitempty"`
	Error     string             `json:"error,omitempty"`
}
