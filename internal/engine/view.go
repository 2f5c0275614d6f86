package engine

import (
	"sort"
	"time"

	"github.com/Pamplemouss/eorguessr-backend/internal/geo"
)

// SceneView is the client-facing shape of a scene. Coordinate is nil while
// the round is open so the answer never crosses the wire early.
type SceneView struct {
	ID         string          `json:"id"`
	MapID      string          `json:"mapId"`
	MapName    string          `json:"mapName"`
	Expansion  string          `json:"expansion"`
	Weather    string          `json:"weather"`
	TimeOfDay  string          `json:"timeOfDay"`
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
}

// PlayerView is what one client sees of a player. Guesses and Scores are
// populated only for the viewer's own entry; everyone else is reduced to
// their name, guessed-flag and the score total of already-revealed rounds.
type PlayerView struct {
	DisplayName  string                 `json:"displayName"`
	IsGameMaster bool                   `json:"isGameMaster"`
	IsSelf       bool                   `json:"isSelf"`
	HasGuessed   bool                   `json:"hasGuessed"`
	TotalScore   int                    `json:"totalScore"`
	Guesses      map[int]geo.Coordinate `json:"guesses,omitempty"`
	Scores       []int8                 `json:"scores,omitempty"`
}

// ClientView is the projection of session state pushed to one client.
// ResultStartedAt plus ResultSeconds bound the reveal screen client-side;
// advancing stays a game-master command.
type ClientView struct {
	SessionID       string        `json:"sessionId"`
	Phase           Phase         `json:"phase"`
	CurrentRound    int           `json:"currentRound"`
	MaxRounds       int           `json:"maxRounds"`
	ResultSeconds   int           `json:"resultSeconds,omitempty"`
	Scene           *SceneView    `json:"scene,omitempty"`
	Players         []PlayerView  `json:"players"`
	History         []RoundResult `json:"history"`
	ResultStartedAt time.Time     `json:"resultStartedAt,omitzero"`
}

// ViewFor computes the state subset the given viewer may observe. All
// redaction lives here; nothing else decides field visibility.
func ViewFor(s State, viewer string) ClientView {
	v := ClientView{
		SessionID:       s.SessionID,
		Phase:           s.Phase,
		CurrentRound:    s.CurrentRound,
		MaxRounds:       s.Settings.MaxRounds,
		ResultSeconds:   s.Settings.ResultSeconds,
		History:         s.History,
		ResultStartedAt: s.ResultStartedAt,
	}

	if scene, ok := s.CurrentScene(); ok {
		sv := SceneView{
			ID:        scene.ID,
			MapID:     scene.MapID,
			MapName:   scene.MapName,
			Expansion: scene.Expansion,
			Weather:   scene.Weather,
			TimeOfDay: scene.TimeOfDay,
		}
		// The answer is revealed only once the round is over.
		if s.Phase == PhaseResult || s.Phase == PhaseFinished {
			coord := scene.Coordinate
			sv.Coordinate = &coord
		}
		v.Scene = &sv
	}

	revealed := len(s.History)
	v.Players = make([]PlayerView, 0, len(s.Players))
	for _, key := range keysByJoinOrder(s.Players) {
		p := s.Players[key]
		pv := PlayerView{
			DisplayName:  p.DisplayName,
			IsGameMaster: key == s.GameMasterKey,
			IsSelf:       key == viewer,
			HasGuessed:   p.HasGuessed,
		}
		if key == viewer {
			pv.TotalScore = TotalScore(p)
			pv.Guesses = p.GuessesByRound
			pv.Scores = p.ScoresByRound
		} else {
			pv.TotalScore = revealedTotal(p, revealed)
		}
		v.Players = append(v.Players, pv)
	}

	return v
}

// revealedTotal sums only the scores of rounds already in history, so an
// opponent's in-flight round score stays hidden until the reveal.
func revealedTotal(p Player, revealed int) int {
	n := min(len(p.ScoresByRound), revealed)
	total := 0
	for _, s := range p.ScoresByRound[:n] {
		total += int(s)
	}
	return total
}

// keysByJoinOrder keeps the player list stable across broadcasts.
func keysByJoinOrder(players map[string]Player) []string {
	keys := make([]string, 0, len(players))
	for key := range players {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return players[keys[i]].JoinedSeq < players[keys[j]].JoinedSeq
	})
	return keys
}
