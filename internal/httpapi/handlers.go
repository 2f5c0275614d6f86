package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Pamplemouss/eorguessr-backend/internal/archive"
	"github.com/Pamplemouss/eorguessr-backend/internal/engine"
	"github.com/Pamplemouss/eorguessr-backend/internal/hub"
	"github.com/Pamplemouss/eorguessr-backend/internal/scenes"
	"github.com/Pamplemouss/eorguessr-backend/internal/session"
)

// Defaults applied when the create request leaves fields unset.
type Defaults struct {
	MaxRounds     int
	MinPlayers    int
	MaxPlayers    int
	ResultSeconds int
}

// RoundHistory reads archived rounds. Satisfied by *archive.Archive; nil
// when the server runs without a database.
type RoundHistory interface {
	Recent(ctx context.Context, sessionID string) ([]archive.RoundRecord, error)
}

type createRequest struct {
	MaxRounds  int      `json:"maxRounds,omitempty"`
	Expansions []string `json:"expansions,omitempty"`
	TimesOfDay []string `json:"timesOfDay,omitempty"`
}

type createResponse struct {
	Code string `json:"code"`
}

type listResponse struct {
	Sessions []string `json:"sessions"`
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateSession(h *hub.Hub, defaults Defaults, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if r.Body != nil {
			// An empty body means all defaults.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		settings := engine.Settings{
			MaxRounds:     defaults.MaxRounds,
			MinPlayers:    defaults.MinPlayers,
			MaxPlayers:    defaults.MaxPlayers,
			ResultSeconds: defaults.ResultSeconds,
			Filter: scenes.Filter{
				Expansions: req.Expansions,
				TimesOfDay: req.TimesOfDay,
			},
		}
		if req.MaxRounds > 0 {
			settings.MaxRounds = req.MaxRounds
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *session.Session, 1)
			h.Inbox() <- hub.GetSession{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			logger.Debug("session code collision, regenerating")
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.EnsureSession{Code: code, Settings: settings, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create session", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createResponse{Code: code})
	}
}

// ListSessions exposes the live session codes so clients can browse
// joinable games.
func ListSessions(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []string, 1)
		h.Inbox() <- hub.ListSessions{Reply: reply}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(listResponse{Sessions: <-reply})
	}
}

// SessionRounds serves a session's archived rounds, oldest first. Answers
// only appear here for rounds that already ended, so nothing is leaked.
func SessionRounds(history RoundHistory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			http.Error(w, "round archive disabled", http.StatusNotFound)
			return
		}

		code := chi.URLParam(r, "code")
		recs, err := history.Recent(r.Context(), code)
		if err != nil {
			logger.Error("load round history", zap.String("code", code), zap.Error(err))
			http.Error(w, "failed to load rounds", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(recs)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
