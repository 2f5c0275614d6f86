package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Pamplemouss/eorguessr-backend/internal/engine"
	"github.com/Pamplemouss/eorguessr-backend/internal/geo"
	"github.com/Pamplemouss/eorguessr-backend/internal/hub"
	"github.com/Pamplemouss/eorguessr-backend/internal/session"
	"github.com/Pamplemouss/eorguessr-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
)

func Handler(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "missing name", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetSession{Code: code, Reply: reply}
		s := <-reply
		if s == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Out, 16)
		playerKey := uuid.NewString()

		joinReply := make(chan error, 1)
		s.Inbox() <- session.Join{PlayerKey: playerKey, DisplayName: name, Outbox: out, Reply: joinReply}
		if err := <-joinReply; err != nil {
			payload, _ := json.Marshal(types.ServerMessage{
				Type:  "Error",
				Code:  session.ErrorCode(err),
				Error: err.Error(),
			})
			_ = conn.Write(r.Context(), websocket.MessageText, payload)
			return
		}
		defer func() { s.Inbox() <- session.Leave{PlayerKey: playerKey} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(toServerMessage(msg))
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// A client has no business sending faster than this.
		limiter := rate.NewLimiter(10, 20)

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			if !limiter.Allow() {
				logger.Warn("dropping flooded command", zap.String("session", code))
				continue
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad_json", "malformed message")
				continue
			}

			cmd, ok := toEngineCommand(cm)
			if !ok {
				writeError(r.Context(), conn, "unknown_type", "unknown message type")
				continue
			}

			s.Inbox() <- session.FromClient{PlayerKey: playerKey, Cmd: cmd}
		}
	}
}

func toServerMessage(out session.Out) types.ServerMessage {
	switch msg := out.(type) {
	case session.Snapshot:
		view := msg.View
		return types.ServerMessage{Type: "StateSnapshot", Version: msg.Version, State: &view}
	case session.GuessResult:
		score := msg.Score
		return types.ServerMessage{Type: "GuessResult", Round: msg.Round, Score: &score, Duplicate: msg.Duplicate}
	case session.CmdError:
		return types.ServerMessage{Type: "Error", Code: msg.Code, Error: msg.Message}
	default:
		return types.ServerMessage{Type: "Error", Code: "internal", Error: "unknown server message"}
	}
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "StartGame":
		return engine.Command{Type: engine.CmdStartGame}, true
	case "SubmitGuess":
		return engine.Command{
			Type:       engine.CmdSubmitGuess,
			Coordinate: geo.Coordinate{X: m.X, Y: m.Y},
		}, true
	case "NextRound":
		return engine.Command{Type: engine.CmdNextRound}, true
	default:
		return engine.Command{}, false
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, code, msg string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Code: code, Error: msg})
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
