package scenes

import "github.com/Pamplemouss/eorguessr-backend/internal/geo"

// DefaultCatalog is the built-in scene set used when no external catalog is
// loaded. Coordinates are map-grid positions.
func DefaultCatalog() []Scene {
	return []Scene{
		{ID: "ps-limsa-aftcastle", MapID: "limsa", MapName: "Limsa Lominsa Upper Decks", Expansion: "ARR", Coordinate: geo.Coordinate{X: 11, Y: 13}, Weather: "ClearSkies", TimeOfDay: "Day"},
		{ID: "ps-uldah-nald", MapID: "uldah", MapName: "Ul'dah - Steps of Nald", Expansion: "ARR", Coordinate: geo.Coordinate{X: 9, Y: 8}, Weather: "Heat", TimeOfDay: "Day"},
		{ID: "ps-gridania-amph", MapID: "gridania", MapName: "Old Gridania", Expansion: "ARR", Coordinate: geo.Coordinate{X: 10, Y: 6}, Weather: "Rain", TimeOfDay: "Dusk"},
		{ID: "ps-costa", MapID: "east-la-noscea", MapName: "Eastern La Noscea", Expansion: "ARR", Coordinate: geo.Coordinate{X: 33, Y: 30}, Weather: "FairSkies", TimeOfDay: "Day"},
		{ID: "ps-coerthas-camp", MapID: "coerthas-central", MapName: "Coerthas Central Highlands", Expansion: "ARR", Coordinate: geo.Coordinate{X: 26, Y: 28}, Weather: "Snow", TimeOfDay: "Night"},
		{ID: "ps-ishgard-found", MapID: "ishgard", MapName: "Foundation", Expansion: "HW", Coordinate: geo.Coordinate{X: 8, Y: 10}, Weather: "Snow", TimeOfDay: "Dusk"},
		{ID: "ps-sea-clouds", MapID: "sea-of-clouds", MapName: "The Sea of Clouds", Expansion: "HW", Coordinate: geo.Coordinate{X: 17, Y: 36}, Weather: "Wind", TimeOfDay: "Day"},
		{ID: "ps-idyllshire", MapID: "idyllshire", MapName: "Idyllshire", Expansion: "HW", Coordinate: geo.Coordinate{X: 7, Y: 7}, Weather: "ClearSkies", TimeOfDay: "Day"},
		{ID: "ps-kugane-pier", MapID: "kugane", MapName: "Kugane", Expansion: "SB", Coordinate: geo.Coordinate{X: 12, Y: 12}, Weather: "FairSkies", TimeOfDay: "Night"},
		{ID: "ps-ruby-sea", MapID: "ruby-sea", MapName: "The Ruby Sea", Expansion: "SB", Coordinate: geo.Coordinate{X: 28, Y: 16}, Weather: "ClearSkies", TimeOfDay: "Day"},
		{ID: "ps-azim-steppe", MapID: "azim-steppe", MapName: "The Azim Steppe", Expansion: "SB", Coordinate: geo.Coordinate{X: 23, Y: 22}, Weather: "Wind", TimeOfDay: "Dusk"},
		{ID: "ps-crystarium", MapID: "crystarium", MapName: "The Crystarium", Expansion: "ShB", Coordinate: geo.Coordinate{X: 10, Y: 14}, Weather: "Everlasting Light", TimeOfDay: "Day"},
		{ID: "ps-il-mheg", MapID: "il-mheg", MapName: "Il Mheg", Expansion: "ShB", Coordinate: geo.Coordinate{X: 14, Y: 31}, Weather: "FairSkies", TimeOfDay: "Night"},
		{ID: "ps-amh-araeng", MapID: "amh-araeng", MapName: "Amh Araeng", Expansion: "ShB", Coordinate: geo.Coordinate{X: 29, Y: 11}, Weather: "Heat", TimeOfDay: "Day"},
		{ID: "ps-old-sharlayan", MapID: "old-sharlayan", MapName: "Old Sharlayan", Expansion: "EW", Coordinate: geo.Coordinate{X: 11, Y: 11}, Weather: "FairSkies", TimeOfDay: "Day"},
		{ID: "ps-thavnair", MapID: "thavnair", MapName: "Thavnair", Expansion: "EW", Coordinate: geo.Coordinate{X: 25, Y: 34}, Weather: "Rain", TimeOfDay: "Dusk"},
		{ID: "ps-garlemald", MapID: "garlemald", MapName: "Garlemald", Expansion: "EW", Coordinate: geo.Coordinate{X: 20, Y: 20}, Weather: "Snow", TimeOfDay: "Night"},
		{ID: "ps-elpis", MapID: "elpis", MapName: "Elpis", Expansion: "EW", Coordinate: geo.Coordinate{X: 32, Y: 23}, Weather: "ClearSkies", TimeOfDay: "Day"},
	}
}
