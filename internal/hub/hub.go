package hub

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Pamplemouss/eorguessr-backend/internal/engine"
	"github.com/Pamplemouss/eorguessr-backend/internal/scenes"
	"github.com/Pamplemouss/eorguessr-backend/internal/session"
)

type HubMsg interface{ isHubMsg() }

type CreateSession struct {
	Code     string
	Settings engine.Settings
	Reply    chan *session.Session
}

type GetSession struct {
	Code  string
	Reply chan *session.Session
}

// EnsureSession returns the existing session for Code or creates one.
type EnsureSession struct {
	Code     string
	Settings engine.Settings // only used if creation happens
	Reply    chan *session.Session
}

type RemoveSession struct {
	Code string
}

// ListSessions returns the codes of all live sessions, sorted.
type ListSessions struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (EnsureSession) isHubMsg() {}
func (RemoveSession) isHubMsg() {}
func (ListSessions) isHubMsg()  {}
func (ShutdownHub) isHubMsg()   {}

// Deps are shared across every session the hub creates.
type Deps struct {
	Source        scenes.Source
	Sink          session.RoundSink
	Logger        *zap.Logger
	RoundDuration time.Duration
}

// Hub is the session directory. It owns the code→session map; all access
// goes through its inbox.
type Hub struct {
	inbox    chan HubMsg
	sessions map[string]*session.Session
	deps     Deps
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, deps Deps) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		sessions: make(map[string]*session.Session),
		deps:     deps,
		logger:   deps.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.spawn(msg.Code, msg.Settings)

			case GetSession:
				msg.Reply <- h.sessions[msg.Code] // May be nil

			case EnsureSession:
				if s := h.sessions[msg.Code]; s != nil {
					msg.Reply <- s
					break
				}
				msg.Reply <- h.spawn(msg.Code, msg.Settings)

			case ListSessions:
				codes := make([]string, 0, len(h.sessions))
				for code := range h.sessions {
					codes = append(codes, code)
				}
				sort.Strings(codes)
				msg.Reply <- codes

			case RemoveSession:
				if s := h.sessions[msg.Code]; s != nil {
					delete(h.sessions, msg.Code)
					s.Stop()
					h.logger.Info("session removed", zap.String("code", msg.Code))
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) spawn(code string, settings engine.Settings) *session.Session {
	s := session.New(h.ctx, code, settings, session.Config{RoundDuration: h.deps.RoundDuration}, session.Deps{
		Source: h.deps.Source,
		Sink:   h.deps.Sink,
		Logger: h.deps.Logger,
		OnEmpty: func(id string) {
			// Runs on the session goroutine; hand off through the inbox so
			// the directory stays single-threaded.
			select {
			case h.inbox <- RemoveSession{Code: id}:
			case <-h.ctx.Done():
			}
		},
	})
	h.sessions[code] = s
	h.logger.Info("session created", zap.String("code", code))
	return s
}

func (h *Hub) shutdown() {
	for code, s := range h.sessions {
		s.Stop()
		delete(h.sessions, code)
	}
	h.cancel()
}
