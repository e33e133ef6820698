// Package config holds environment-driven settings for the toolbox commands.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration shared by the CLI and the REST server.
type Config struct {
	// HindcastURL is the base URL of the remote hindcast data service.
	HindcastURL string
	// CachePath is the SQLite file caching fetched series; empty disables
	// the cache.
	CachePath string
	// ListenAddr is the REST server bind address.
	ListenAddr string
	Debug      bool
}

// Load reads configuration from environment variables, after loading an
// optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		HindcastURL: "https://resourcecode.ifremer.fr",
		ListenAddr:  ":8080",
	}

	if u := os.Getenv("METOCEAN_HINDCAST_URL"); u != "" {
		cfg.HindcastURL = u
	}
	cfg.CachePath = os.Getenv("METOCEAN_CACHE_PATH")
	if addr := os.Getenv("METOCEAN_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if d := os.Getenv("METOCEAN_DEBUG"); d != "" {
		debug, err := strconv.ParseBool(d)
		if err != nil {
			return cfg, fmt.Errorf("invalid METOCEAN_DEBUG value %q: %v", d, err)
		}
		cfg.Debug = debug
	}
	return cfg, nil
}
