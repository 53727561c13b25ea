package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/haidar-88/Capstone/sim"
)

// LoadEnv reads key=value overrides from a .env file (if present, silently
// ignoring a missing file) and applies the ones ProtocolConfig recognizes.
// This is a cmd/mvccpctl concern only — the core never reads the
// environment or any other ambient wall-clock-adjacent source.
func LoadEnv(path string) (*ProtocolConfig, error) {
	_ = godotenv.Load(path)

	cfg := Default()

	if v, ok := floatEnv("MVCCP_HELLO_INTERVAL"); ok {
		cfg.HelloInterval = sim.VTimeInSec(v)
	}
	if v, ok := floatEnv("MVCCP_PA_INTERVAL"); ok {
		cfg.PAInterval = sim.VTimeInSec(v)
	}
	if v, ok := intEnv("MVCCP_PLATOON_MAX_SIZE"); ok {
		cfg.PlatoonMaxSize = v
	}
	if v, ok := intEnv("MVCCP_DEDUP_CACHE_SIZE"); ok {
		cfg.DedupCacheSize = v
	}
	if v, ok := os.LookupEnv("MVCCP_TTL_MODE"); ok && v == "density" {
		cfg.TTLMode = TTLDensityBased
	}

	return cfg, nil
}

func floatEnv(key string) (float64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func intEnv(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
