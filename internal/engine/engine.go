package engine

import (
	"errors"
	"time"

	"github.com/Pamplemouss/eorguessr-backend/internal/geo"
	"github.com/Pamplemouss/eorguessr-backend/internal/scenes"
)

var ErrInvalidPhase = errors.New("command not legal in current phase")
var ErrUnauthorized = errors.New("game master only")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrPlayerExists = errors.New("player key already in session")
var ErrSessionFull = errors.New("session full")
var ErrSessionAlreadyPlaying = errors.New("session already playing")
var ErrNotEnoughPlayers = errors.New("not enough players to start")
var ErrBadScenePool = errors.New("scene pool does not match round count")
var ErrUnsupportedCommand = errors.New("unsupported command")

// timeNow is swappable in tests.
var timeNow = time.Now

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseResult   Phase = "result"
	PhaseFinished Phase = "finished"
)

// Settings are fixed at session creation.
type Settings struct {
	MaxRounds     int
	MinPlayers    int
	MaxPlayers    int
	ResultSeconds int // how long clients display the round reveal
	Filter        scenes.Filter
}

// Player is one connected participant. SessionKey is assigned by the server
// and bound to the connection; the transport never trusts a client-claimed
// key. Scores are int8: the scoring function saturates into that range.
type Player struct {
	SessionKey     string
	DisplayName    string
	JoinedSeq      int
	HasGuessed     bool
	GuessesByRound map[int]geo.Coordinate
	ScoresByRound  []int8
}

// PlayerResult is one player's outcome for a finished round. Guess is nil
// when the player never submitted before the timeout.
type PlayerResult struct {
	DisplayName string          `json:"displayName"`
	Guess       *geo.Coordinate `json:"guess,omitempty"`
	Score       int8            `json:"score"`
}

// RoundResult is an immutable snapshot taken when a round ends. The scene
// inside carries the revealed true coordinate.
type RoundResult struct {
	RoundNumber int                     `json:"roundNumber"`
	Scene       scenes.Scene            `json:"scene"`
	Results     map[string]PlayerResult `json:"results"`
}

// State is the authoritative session state. Apply never mutates its input;
// a command either produces a new state or leaves everything untouched.
type State struct {
	SessionID       string
	Settings        Settings
	Phase           Phase
	GameMasterKey   string
	CurrentRound    int
	ScenePool       []scenes.Scene
	History         []RoundResult
	Players         map[string]Player
	ResultStartedAt time.Time
	NextJoinSeq     int
}

func NewLobbyState(sessionID string, settings Settings) State {
	return State{
		SessionID: sessionID,
		Settings:  settings,
		Phase:     PhaseLobby,
		Players:   map[string]Player{},
	}
}

// CurrentScene returns the scene of the round in progress or just finished.
func (s State) CurrentScene() (scenes.Scene, bool) {
	if s.CurrentRound < 1 || s.CurrentRound > len(s.ScenePool) {
		return scenes.Scene{}, false
	}
	return s.ScenePool[s.CurrentRound-1], true
}

type CommandType string

const (
	CmdJoin         CommandType = "Join"
	CmdLeave        CommandType = "Leave"
	CmdStartGame    CommandType = "StartGame"
	CmdSubmitGuess  CommandType = "SubmitGuess"
	CmdNextRound    CommandType = "NextRound"
	CmdRoundTimeout CommandType = "RoundTimeout"
)

type Command struct {
	Type        CommandType
	PlayerKey   string
	DisplayName string         // Join
	Coordinate  geo.Coordinate // SubmitGuess
	Round       int            // RoundTimeout: the round the timer was armed for
	Pool        []scenes.Scene // StartGame: scenes drawn by the caller
}

type EventType string

const (
	EvtPlayerJoined  EventType = "PlayerJoined"
	EvtPlayerLeft    EventType = "PlayerLeft"
	EvtMasterChanged EventType = "MasterChanged"
	EvtGameStarted   EventType = "GameStarted"
	EvtRoundStarted  EventType = "RoundStarted"
	EvtGuessAccepted EventType = "GuessAccepted"
	EvtRoundEnded    EventType = "RoundEnded"
	EvtGameFinished  EventType = "GameFinished"
)

type Event struct {
	Type      EventType
	PlayerKey string
	Round     int
	Score     int8
	Duplicate bool
}

// Apply runs one command against the state machine. On error the returned
// state is the input, unchanged. A duplicate guess is not an error: it
// returns the previously computed score with the Duplicate flag set and no
// state change.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		return applyJoin(s, cmd)
	case CmdLeave:
		return applyLeave(s, cmd)
	case CmdStartGame:
		return applyStartGame(s, cmd)
	case CmdSubmitGuess:
		return applySubmitGuess(s, cmd)
	case CmdNextRound:
		return applyNextRound(s, cmd)
	case CmdRoundTimeout:
		return applyRoundTimeout(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyJoin(s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhasePlaying || s.Phase == PhaseResult {
		return nil, s, ErrSessionAlreadyPlaying
	}
	if _, ok := s.Players[cmd.PlayerKey]; ok {
		return nil, s, ErrPlayerExists
	}
	if s.Settings.MaxPlayers > 0 && len(s.Players) >= s.Settings.MaxPlayers {
		return nil, s, ErrSessionFull
	}

	newState := s
	newState.Players = clonePlayers(s.Players)
	newState.Players[cmd.PlayerKey] = Player{
		SessionKey:     cmd.PlayerKey,
		DisplayName:    cmd.DisplayName,
		JoinedSeq:      s.NextJoinSeq,
		GuessesByRound: map[int]geo.Coordinate{},
	}
	newState.NextJoinSeq++

	events := []Event{{Type: EvtPlayerJoined, PlayerKey: cmd.PlayerKey}}
	if newState.GameMasterKey == "" {
		newState.GameMasterKey = cmd.PlayerKey
		events = append(events, Event{Type: EvtMasterChanged, PlayerKey: cmd.PlayerKey})
	}
	return events, newState, nil
}

func applyLeave(s State, cmd Command) ([]Event, State, error) {
	if _, ok := s.Players[cmd.PlayerKey]; !ok {
		return nil, s, ErrUnknownPlayer
	}

	newState := s
	newState.Players = clonePlayers(s.Players)
	delete(newState.Players, cmd.PlayerKey)

	events := []Event{{Type: EvtPlayerLeft, PlayerKey: cmd.PlayerKey}}

	if cmd.PlayerKey == s.GameMasterKey {
		newState.GameMasterKey = earliestJoined(newState.Players)
		if newState.GameMasterKey != "" {
			events = append(events, Event{Type: EvtMasterChanged, PlayerKey: newState.GameMasterKey})
		}
	}

	// The departed player may have been the last holdout.
	if newState.Phase == PhasePlaying && len(newState.Players) > 0 && allGuessed(newState.Players) {
		var endEvents []Event
		endEvents, newState = endRound(newState)
		events = append(events, endEvents...)
	}
	return events, newState, nil
}

func applyStartGame(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseLobby {
		return nil, s, ErrInvalidPhase
	}
	if cmd.PlayerKey != s.GameMasterKey {
		return nil, s, ErrUnauthorized
	}
	if len(s.Players) < s.Settings.MinPlayers {
		return nil, s, ErrNotEnoughPlayers
	}
	if len(cmd.Pool) != s.Settings.MaxRounds {
		return nil, s, ErrBadScenePool
	}

	newState := s
	newState.ScenePool = cmd.Pool
	newState.CurrentRound = 1
	newState.Phase = PhasePlaying
	newState.Players = clearGuesses(s.Players)

	events := []Event{
		{Type: EvtGameStarted},
		{Type: EvtRoundStarted, Round: 1},
	}
	return events, newState, nil
}

func applySubmitGuess(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhasePlaying {
		return nil, s, ErrInvalidPhase
	}
	p, ok := s.Players[cmd.PlayerKey]
	if !ok {
		return nil, s, ErrUnknownPlayer
	}

	// Idempotent: a second guess in the same round is a no-op that echoes
	// the score already on record.
	if p.HasGuessed {
		prior := p.ScoresByRound[len(p.ScoresByRound)-1]
		events := []Event{{
			Type:      EvtGuessAccepted,
			PlayerKey: cmd.PlayerKey,
			Round:     s.CurrentRound,
			Score:     prior,
			Duplicate: true,
		}}
		return events, s, nil
	}

	scene, ok := s.CurrentScene()
	if !ok {
		return nil, s, ErrInvalidPhase
	}
	score := geo.Score(cmd.Coordinate, scene.Coordinate)

	newState := s
	newState.Players = clonePlayers(s.Players)
	np := newState.Players[cmd.PlayerKey]
	np.HasGuessed = true
	np.GuessesByRound[s.CurrentRound] = cmd.Coordinate
	np.ScoresByRound = append(np.ScoresByRound, score)
	newState.Players[cmd.PlayerKey] = np

	events := []Event{{
		Type:      EvtGuessAccepted,
		PlayerKey: cmd.PlayerKey,
		Round:     s.CurrentRound,
		Score:     score,
	}}

	if allGuessed(newState.Players) {
		var endEvents []Event
		endEvents, newState = endRound(newState)
		events = append(events, endEvents...)
	}
	return events, newState, nil
}

func applyNextRound(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseResult {
		return nil, s, ErrInvalidPhase
	}
	if cmd.PlayerKey != s.GameMasterKey {
		return nil, s, ErrUnauthorized
	}

	newState := s
	newState.CurrentRound++
	newState.Phase = PhasePlaying
	newState.Players = clearGuesses(s.Players)

	events := []Event{{Type: EvtRoundStarted, Round: newState.CurrentRound}}
	return events, newState, nil
}

func applyRoundTimeout(s State, cmd Command) ([]Event, State, error) {
	// A stale fire (the round already ended via all-submitted, or the game
	// moved on) is rejected here; whichever command was dequeued first won.
	if s.Phase != PhasePlaying || cmd.Round != s.CurrentRound {
		return nil, s, ErrInvalidPhase
	}

	events, newState := endRound(s)
	return events, newState, nil
}

// endRound snapshots the finished round, appends it to history and moves to
// PhaseResult, or PhaseFinished when this was the last round. Players who
// never guessed get the floor score and no guess entry.
func endRound(s State) ([]Event, State) {
	scene, _ := s.CurrentScene()

	newState := s
	newState.Players = clonePlayers(s.Players)

	results := make(map[string]PlayerResult, len(newState.Players))
	for key, p := range newState.Players {
		if !p.HasGuessed {
			p.ScoresByRound = append(p.ScoresByRound, geo.MinScore)
			newState.Players[key] = p
		}
		r := PlayerResult{
			DisplayName: p.DisplayName,
			Score:       p.ScoresByRound[len(p.ScoresByRound)-1],
		}
		if g, ok := p.GuessesByRound[s.CurrentRound]; ok {
			guess := g
			r.Guess = &guess
		}
		results[key] = r
	}

	result := RoundResult{
		RoundNumber: s.CurrentRound,
		Scene:       scene,
		Results:     results,
	}
	newState.History = append(append([]RoundResult{}, s.History...), result)
	newState.ResultStartedAt = timeNow()

	events := []Event{{Type: EvtRoundEnded, Round: s.CurrentRound}}
	if newState.CurrentRound == newState.Settings.MaxRounds {
		newState.Phase = PhaseFinished
		events = append(events, Event{Type: EvtGameFinished})
	} else {
		newState.Phase = PhaseResult
	}
	return events, newState
}
