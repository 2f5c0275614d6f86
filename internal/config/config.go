package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is all runtime tuning, env-driven. Values other than Addr and
// DatabaseURL are game policy knobs.
type Config struct {
	Addr           string
	AppEnv         string // "dev" | "prod"
	RoundDuration  time.Duration
	ResultDuration time.Duration
	MaxRounds      int
	MinPlayers     int
	MaxPlayers     int
	SceneSeed      int64
	DatabaseURL    string // empty disables the round archive
}

// Load reads .env when present, then the environment. Missing values fall
// back to defaults; a malformed number falls back too rather than failing
// startup.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getString("ADDR", ":8080"),
		AppEnv:         getString("APP_ENV", "dev"),
		RoundDuration:  time.Duration(getInt("ROUND_SECONDS", 60)) * time.Second,
		ResultDuration: time.Duration(getInt("RESULT_SECONDS", 15)) * time.Second,
		MaxRounds:      getInt("MAX_ROUNDS", 5),
		MinPlayers:     getInt("MIN_PLAYERS", 1),
		MaxPlayers:     getInt("MAX_PLAYERS", 8),
		SceneSeed:      int64(getInt("SCENE_SEED", 0)),
		DatabaseURL:    getString("DATABASE_URL", ""),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
