package engine

import "github.com/Pamplemouss/eorguessr-backend/internal/geo"

func clonePlayers(players map[string]Player) map[string]Player {
	out := make(map[string]Player, len(players))
	for key, p := range players {
		guesses := make(map[int]geo.Coordinate, len(p.GuessesByRound))
		for round, g := range p.GuessesByRound {
			guesses[round] = g
		}
		scores := make([]int8, len(p.ScoresByRound))
		copy(scores, p.ScoresByRound)

		p.GuessesByRound = guesses
		p.ScoresByRound = scores
		out[key] = p
	}
	return out
}

func clearGuesses(players map[string]Player) map[string]Player {
	out := clonePlayers(players)
	for key, p := range out {
		p.HasGuessed = false
		out[key] = p
	}
	return out
}

func allGuessed(players map[string]Player) bool {
	for _, p := range players {
		if !p.HasGuessed {
			return false
		}
	}
	return len(players) > 0
}

// earliestJoined picks the remaining player with the lowest join sequence.
// Used for game-master handoff so the choice is deterministic.
func earliestJoined(players map[string]Player) string {
	best := ""
	bestSeq := -1
	for key, p := range players {
		if bestSeq == -1 || p.JoinedSeq < bestSeq {
			best = key
			bestSeq = p.JoinedSeq
		}
	}
	return best
}

// TotalScore sums a player's completed-round scores.
func TotalScore(p Player) int {
	total := 0
	for _, s := range p.ScoresByRound {
		total += int(s)
	}
	return total
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// FindEvent returns the first event of the given type.
func FindEvent(events []Event, eventType EventType) (Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return Event{}, false
}
