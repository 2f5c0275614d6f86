package ws

import (
	"testing"

	"github.com/Pamplemouss/eorguessr-backend/internal/engine"
	"github.com/Pamplemouss/eorguessr-backend/internal/session"
	"github.com/Pamplemouss/eorguessr-backend/internal/types"
)

func TestToEngineCommand(t *testing.T) {
	cases := []struct {
		name     string
		msgType  string
		wantType engine.CommandType
		wantOK   bool
	}{
		{name: "start", msgType: "StartGame", wantType: engine.CmdStartGame, wantOK: true},
		{name: "guess", msgType: "SubmitGuess", wantType: engine.CmdSubmitGuess, wantOK: true},
		{name: "next", msgType: "NextRound", wantType: engine.CmdNextRound, wantOK: true},
		{name: "leave is not a client message", msgType: "Leave", wantOK: false},
		{name: "timeout cannot be injected", msgType: "RoundTimeout", wantOK: false},
		{name: "garbage", msgType: "xyzzy", wantOK: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, ok := toEngineCommand(types.ClientMessage{Type: tc.msgType, X: 4, Y: 2})
			if ok != tc.wantOK {
				t.Fatalf("ok: want %v, got %v", tc.wantOK, ok)
			}
			if ok && cmd.Type != tc.wantType {
				t.Fatalf("type: want %s, got %s", tc.wantType, cmd.Type)
			}
		})
	}
}

func TestToServerMessageGuessResult(t *testing.T) {
	msg := toServerMessage(session.GuessResult{Round: 2, Score: 87, Duplicate: true})
	if msg.Type != "GuessResult" || msg.Round != 2 || msg.Score == nil || *msg.Score != 87 || !msg.Duplicate {
		t.Fatalf("bad mapping: %+v", msg)
	}
}
