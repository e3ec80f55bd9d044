package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// RestartMode selects what happens after the end-of-round grace delay.
type RestartMode string

const (
	// RestartReset clears winner/frozen flags in memory and schedules a new
	// hide phase for the already-connected party.
	RestartReset RestartMode = "reset"
	// RestartExit terminates the process so a supervisor can start it fresh.
	RestartExit RestartMode = "exit"
)

// Config carries all startup parameters. Values come from the environment
// (optionally via a .env file); addresses can additionally be overridden by
// flags in cmd/server.
type Config struct {
	ListenAddr    string // TCP game listener, e.g. ":5555"
	AdminAddr     string // HTTP admin/WS listener, e.g. ":5557"
	DiscoveryPort int    // UDP LAN discovery; 0 disables
	NumPlayers    int

	HideDelay   time.Duration // hide phase length once the party is full
	CatchWindow time.Duration // per-hidder hunt window
	PollEvery   time.Duration // scheduler poll interval
	EndGrace    time.Duration // delay between round end and reset/exit

	Restart RestartMode

	LogFile string
	Debug   bool
}

// Load reads .env (if present) and the environment, applying the defaults
// inherited from the original deployment: game port 5555, discovery on
// port+1, admin surface on port+2, two players.
func Load() (Config, error) {
	_ = godotenv.Load()

	port := envInt("HIDESEEK_PORT", 5555)
	cfg := Config{
		ListenAddr:    os.Getenv("HIDESEEK_ADDR"),
		AdminAddr:     os.Getenv("HIDESEEK_ADMIN_ADDR"),
		DiscoveryPort: envInt("HIDESEEK_DISCOVERY_PORT", port+1),
		NumPlayers:    envInt("HIDESEEK_PLAYERS", 2),
		HideDelay:     envDuration("HIDESEEK_HIDE_DELAY", 30*time.Second),
		CatchWindow:   envDuration("HIDESEEK_CATCH_WINDOW", 45*time.Second),
		PollEvery:     envDuration("HIDESEEK_POLL_INTERVAL", 250*time.Millisecond),
		EndGrace:      envDuration("HIDESEEK_END_GRACE", 5*time.Second),
		Restart:       RestartMode(envString("HIDESEEK_RESTART", string(RestartReset))),
		LogFile:       envString("HIDESEEK_LOG_FILE", "server.log"),
		Debug:         envBool("HIDESEEK_DEBUG", false),
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fmt.Sprintf(":%d", port)
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = fmt.Sprintf(":%d", port+2)
	}

	if cfg.NumPlayers < 2 {
		return Config{}, fmt.Errorf("HIDESEEK_PLAYERS must be at least 2, got %d", cfg.NumPlayers)
	}
	switch cfg.Restart {
	case RestartReset, RestartExit:
	default:
		return Config{}, fmt.Errorf("HIDESEEK_RESTART must be %q or %q, got %q", RestartReset, RestartExit, cfg.Restart)
	}
	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
