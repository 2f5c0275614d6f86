package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Pamplemouss/eorguessr-backend/internal/engine"
	"github.com/Pamplemouss/eorguessr-backend/internal/scenes"
)

// Out is anything a session pushes to a connected client.
type Out interface{ isOut() }

// Snapshot carries one client's projection of the session state.
type Snapshot struct {
	Version int
	View    engine.ClientView
}

func (Snapshot) isOut() {}

// GuessResult is sent only to the player who submitted the guess.
type GuessResult struct {
	Round     int
	Score     int8
	Duplicate bool
}

func (GuessResult) isOut() {}

// CmdError tells the issuing client its command was rejected. Rejections
// never broadcast.
type CmdError struct {
	Code    string
	Message string
}

func (CmdError) isOut() {}

type Msg interface{ isSessionMsg() }

type Join struct {
	PlayerKey   string
	DisplayName string
	Outbox      chan Out
	Reply       chan error
}

func (Join) isSessionMsg() {}

type Leave struct{ PlayerKey string }

func (Leave) isSessionMsg() {}

type FromClient struct {
	PlayerKey string
	Cmd       engine.Command
}

func (FromClient) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// GetState reflects internal state without data races. Test-only.
type GetState struct{ Reply chan View }

func (GetState) isSessionMsg() {}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// timerFired is the synthetic round-timeout command. It travels through the
// same inbox as client commands, so it can never race a last-moment guess.
type timerFired struct{ round int }

func (timerFired) isSessionMsg() {}

// RoundSink receives finished rounds, e.g. for archival. Implementations
// must tolerate being called concurrently across sessions.
type RoundSink interface {
	SaveRound(ctx context.Context, sessionID string, result engine.RoundResult) error
}

type Config struct {
	RoundDuration time.Duration
}

// Deps are the collaborators a session needs from the outside.
type Deps struct {
	Source  scenes.Source
	Sink    RoundSink // optional
	Logger  *zap.Logger
	OnEmpty func(id string) // called once when the last player leaves
}

// Session owns one game's state exclusively. All access goes through the
// inbox; commands are applied strictly in arrival order.
type Session struct {
	id         string
	inbox      chan Msg
	state      engine.State
	version    int
	clients    map[string]chan Out
	cfg        Config
	deps       Deps
	roundTimer *time.Timer
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
}

func New(parent context.Context, id string, settings engine.Settings, cfg Config, deps Deps) *Session {
	ctx, cancel := context.WithCancel(parent)
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &Session{
		id:      id,
		inbox:   make(chan Msg, 64),
		state:   engine.NewLobbyState(id, settings),
		clients: make(map[string]chan Out),
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger.With(zap.String("session", id)),
		ctx:     ctx,
		cancel:  cancel,
	}
	go s.loop()
	return s
}

func (s *Session) ID() string { return s.id }

// Stop tears the session down. Safe to call from any goroutine, including
// after the session already stopped itself.
func (s *Session) Stop() { s.cancel() }

// Inbox is how the transport layer talks to the session.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.handleJoin(msg)
			case Leave:
				s.handleLeave(msg.PlayerKey)
			case FromClient:
				s.handleCommand(msg)
			case timerFired:
				s.handleTimeout(msg.round)
			case GetState:
				msg.Reply <- View{
					Version:    s.version,
					NumClients: len(s.clients),
					State:      s.state,
				}
			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleJoin(msg Join) {
	cmd := engine.Command{
		Type:        engine.CmdJoin,
		PlayerKey:   msg.PlayerKey,
		DisplayName: msg.DisplayName,
	}
	events, newState, err := engine.Apply(s.state, cmd)
	if err != nil {
		msg.Reply <- err
		return
	}

	s.state = newState
	s.version++
	s.clients[msg.PlayerKey] = msg.Outbox
	msg.Reply <- nil

	s.logger.Info("player joined",
		zap.String("player", msg.DisplayName),
		zap.Int("players", len(s.state.Players)))
	s.handleEvents(events)
	s.broadcast()
}

func (s *Session) handleLeave(key string) {
	events, newState, err := engine.Apply(s.state, engine.Command{Type: engine.CmdLeave, PlayerKey: key})
	if err != nil {
		// Already gone (e.g. dropped as a slow client); still detach.
		s.detachClient(key)
		return
	}

	s.state = newState
	s.version++
	s.detachClient(key)

	s.logger.Info("player left", zap.Int("players", len(s.state.Players)))
	s.handleEvents(events)

	if len(s.state.Players) == 0 {
		if s.deps.OnEmpty != nil {
			s.deps.OnEmpty(s.id)
		}
		s.shutdown()
		return
	}
	s.broadcast()
}

func (s *Session) handleCommand(msg FromClient) {
	cmd := msg.Cmd
	// The transport's identity wins over anything the client claims.
	cmd.PlayerKey = msg.PlayerKey

	if cmd.Type == engine.CmdStartGame {
		pool, err := s.deps.Source.DrawScenes(s.state.Settings.Filter, s.state.Settings.MaxRounds)
		if err != nil {
			// Session stays in lobby; report once, no retry.
			s.logger.Warn("scene draw failed", zap.Error(err))
			s.sendTo(msg.PlayerKey, CmdError{Code: "scene_source", Message: err.Error()})
			return
		}
		cmd.Pool = pool
	}

	events, newState, err := engine.Apply(s.state, cmd)
	if err != nil {
		s.sendTo(msg.PlayerKey, CmdError{Code: ErrorCode(err), Message: err.Error()})
		return
	}

	if evt, ok := engine.FindEvent(events, engine.EvtGuessAccepted); ok {
		s.sendTo(msg.PlayerKey, GuessResult{
			Round:     evt.Round,
			Score:     evt.Score,
			Duplicate: evt.Duplicate,
		})
		if evt.Duplicate {
			// No state change, nothing to replicate.
			return
		}
	}

	s.state = newState
	s.version++
	s.handleEvents(events)
	s.broadcast()
}

func (s *Session) handleTimeout(round int) {
	events, newState, err := engine.Apply(s.state, engine.Command{Type: engine.CmdRoundTimeout, Round: round})
	if err != nil {
		// Stale fire: the round ended before the timer was dequeued.
		s.logger.Debug("stale round timer", zap.Int("round", round))
		return
	}

	s.logger.Info("round timed out", zap.Int("round", round))
	s.state = newState
	s.version++
	s.handleEvents(events)
	s.broadcast()
}

// handleEvents reacts to lifecycle transitions: timers and archival.
func (s *Session) handleEvents(events []engine.Event) {
	for _, evt := range events {
		switch evt.Type {
		case engine.EvtRoundStarted:
			s.armRoundTimer(evt.Round)
		case engine.EvtRoundEnded:
			s.stopRoundTimer()
			s.archiveLastRound()
		case engine.EvtGameFinished:
			s.stopRoundTimer()
			s.logger.Info("game finished", zap.Int("rounds", len(s.state.History)))
		}
	}
}

func (s *Session) armRoundTimer(round int) {
	s.stopRoundTimer()
	if s.cfg.RoundDuration <= 0 {
		return
	}
	s.roundTimer = time.AfterFunc(s.cfg.RoundDuration, func() {
		select {
		case s.inbox <- timerFired{round: round}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) stopRoundTimer() {
	if s.roundTimer != nil {
		s.roundTimer.Stop()
		s.roundTimer = nil
	}
}

func (s *Session) archiveLastRound() {
	if s.deps.Sink == nil || len(s.state.History) == 0 {
		return
	}
	result := s.state.History[len(s.state.History)-1]
	// Best effort, off the command path.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deps.Sink.SaveRound(ctx, s.id, result); err != nil {
			s.logger.Warn("round archive failed",
				zap.Int("round", result.RoundNumber), zap.Error(err))
		}
	}()
}

// broadcast recomputes every client's projection and pushes it. A client
// whose outbox is full is dropped and removed from the game.
func (s *Session) broadcast() {
	for key, ch := range s.clients {
		view := engine.ViewFor(s.state, key)
		select {
		case ch <- Snapshot{Version: s.version, View: view}:
		default:
			s.logger.Warn("dropping slow client")
			s.dropClient(key)
		}
	}
}

func (s *Session) sendTo(key string, out Out) {
	ch, ok := s.clients[key]
	if !ok {
		return
	}
	select {
	case ch <- out:
	default:
		s.logger.Warn("dropping slow client")
		s.dropClient(key)
	}
}

// dropClient closes a stalled client's outbox and queues its departure from
// the game, so a zombie connection cannot hold a round open waiting for a
// guess that will never come.
func (s *Session) dropClient(key string) {
	ch, ok := s.clients[key]
	if !ok {
		return
	}
	close(ch)
	delete(s.clients, key)
	go func() {
		select {
		case s.inbox <- Leave{PlayerKey: key}:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Session) detachClient(key string) {
	if ch, ok := s.clients[key]; ok {
		close(ch)
		delete(s.clients, key)
	}
}

func (s *Session) shutdown() {
	s.stopRoundTimer()
	for key, ch := range s.clients {
		close(ch)
		delete(s.clients, key)
	}
	s.cancel()
}

// ErrorCode maps engine rejections to stable wire codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidPhase):
		return "invalid_phase"
	case errors.Is(err, engine.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, engine.ErrUnknownPlayer):
		return "unknown_player"
	case errors.Is(err, engine.ErrPlayerExists):
		return "player_exists"
	case errors.Is(err, engine.ErrSessionFull):
		return "session_full"
	case errors.Is(err, engine.ErrSessionAlreadyPlaying):
		return "session_already_playing"
	case errors.Is(err, engine.ErrNotEnoughPlayers):
		return "not_enough_players"
	case errors.Is(err, scenes.ErrNotEnoughScenes):
		return "scene_source"
	default:
		return "internal"
	}
}
