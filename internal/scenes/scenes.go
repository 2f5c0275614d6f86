package scenes

import (
	"errors"
	"math/rand"
	"slices"
	"sync"

	"github.com/Pamplemouss/eorguessr-backend/internal/geo"
)

var ErrNotEnoughScenes = errors.New("not enough scenes matching filter")

// Scene is one panoramic location. Coordinate is the true answer and must
// never reach clients while a round is open.
type Scene struct {
	ID         string         `json:"id"`
	MapID      string         `json:"mapId"`
	MapName    string         `json:"mapName"`
	Expansion  string         `json:"expansion"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Weather    string         `json:"weather"`
	TimeOfDay  string         `json:"timeOfDay"`
}

// Filter narrows the catalog a game draws from. Empty slices match
// everything. The engine treats this as opaque.
type Filter struct {
	Expansions []string `json:"expansions,omitempty"`
	TimesOfDay []string `json:"timesOfDay,omitempty"`
}

func (f Filter) matches(s Scene) bool {
	if len(f.Expansions) > 0 && !slices.Contains(f.Expansions, s.Expansion) {
		return false
	}
	if len(f.TimesOfDay) > 0 && !slices.Contains(f.TimesOfDay, s.TimeOfDay) {
		return false
	}
	return true
}

// Source supplies the scenes for a game. Queried once at game start.
type Source interface {
	DrawScenes(filter Filter, count int) ([]Scene, error)
}

// MemorySource draws without replacement from an in-memory catalog.
type MemorySource struct {
	mu      sync.Mutex
	rng     *rand.Rand
	catalog []Scene
}

func NewMemorySource(seed int64, catalog []Scene) *MemorySource {
	return &MemorySource{
		rng:     rand.New(rand.NewSource(seed)),
		catalog: catalog,
	}
}

func (m *MemorySource) DrawScenes(filter Filter, count int) ([]Scene, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	eligible := make([]Scene, 0, len(m.catalog))
	for _, s := range m.catalog {
		if filter.matches(s) {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) < count {
		return nil, ErrNotEnoughScenes
	}

	m.rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	return eligible[:count], nil
}
