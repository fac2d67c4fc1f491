// Package config holds all configuration types and loading logic for notifyd.
// Fields are only ever added, never renamed or removed.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a notifyd dev host.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Game      GameConfig      `yaml:"game"`
	Storage   StorageConfig   `yaml:"storage"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// NodeConfig holds identity and network settings for this host.
type NodeConfig struct {
	// ID is a ULID string. Use "auto" to generate and persist one on first start.
	ID      string `yaml:"id"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

// GameConfig describes the simulated session the stores run against.
// Players, LocalPlayer and Hotseat are read once at startup; the session
// switches can be hot-reloaded.
type GameConfig struct {
	// Players is the number of player slots, numbered 0..Players-1.
	Players int `yaml:"players"`
	// LocalPlayer is the human seated at this host.
	LocalPlayer int `yaml:"local_player"`
	// Hotseat makes every slot human; otherwise only LocalPlayer is. It needs
	// SharedTurn, and so Multiplayer.
	Hotseat         bool  `yaml:"hotseat"`
	Multiplayer     bool  `yaml:"multiplayer"`
	SharedTurn      bool  `yaml:"shared_turn"`
	Network         bool  `yaml:"network"`
	PolicySaving    bool  `yaml:"policy_saving"`
	CityExpansionUI bool  `yaml:"city_expansion_ui"`
	AutoEndTurn     bool  `yaml:"auto_end_turn"`
	StartTurn       int32 `yaml:"start_turn"`
}

// StorageConfig controls snapshot persistence.
type StorageConfig struct {
	KeepSnapshots int `yaml:"keep_snapshots"`
	// CompressionLevel is one of "fastest", "default", "better", "best".
	CompressionLevel string `yaml:"compression_level"`
	// NoSync skips fsync on commit (dev/test only).
	NoSync bool `yaml:"no_sync"`
}

// TransportConfig sets client-facing limits.
type TransportConfig struct {
	// MaxRate is HTTP requests per second per remote address.
	MaxRate int `yaml:"max_rate"`
	Burst   int `yaml:"burst"`
	// WSSendBuffer is the per-client frame queue length.
	WSSendBuffer int `yaml:"ws_send_buffer"`
	// WSMaxFramesPerSec caps control frames read from one client.
	WSMaxFramesPerSec int `yaml:"ws_max_frames_per_sec"`
	// APIKey, when non-empty, is required on every route except /health.
	APIKey string `yaml:"api_key"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config populated with safe, sensible defaults.
// It is the canonical source of truth for default values.
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			ID:      "auto",
			Host:    "0.0.0.0",
			Port:    8080,
			DataDir: "./data",
		},
		Game: GameConfig{
			Players:     2,
			LocalPlayer: 0,
			StartTurn:   0,
		},
		Storage: StorageConfig{
			KeepSnapshots:    5,
			CompressionLevel: "default",
		},
		Transport: TransportConfig{
			MaxRate:           200,
			Burst:             400,
			WSSendBuffer:      64,
			WSMaxFramesPerSec: 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file at path and overlays it on top of Default().
// If the file does not exist the default config is returned without error.
//
// Environment overrides applied after the file:
//
//	NOTIFYD_DATA_DIR   sets node.data_dir
//	NOTIFYD_PORT       sets node.port
//	NOTIFYD_LOG_LEVEL  sets log.level
//	NOTIFYD_API_KEY    sets transport.api_key
func Load(path string) (*Config, error) {
	cfg, err := parse(path)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

func parse(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnv overlays environment variable overrides onto cfg.
func applyEnv(cfg *Config) {
	if v := os.Getenv("NOTIFYD_DATA_DIR"); v != "" {
		cfg.Node.DataDir = v
	}
	if v := os.Getenv("NOTIFYD_PORT"); v != "" {
		var p int
		if _, err := fmt.Sscanf(v, "%d", &p); err == nil && p > 0 {
			cfg.Node.Port = p
		}
	}
	if v := os.Getenv("NOTIFYD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("NOTIFYD_API_KEY"); v != "" {
		cfg.Transport.APIKey = v
	}
}

// Validate checks that the config values are consistent and within acceptable
// ranges. It returns the first error found.
func (c *Config) Validate() error {
	if c.Node.Port < 1 || c.Node.Port > 65535 {
		return errors.New("node.port must be between 1 and 65535")
	}
	if c.Node.DataDir == "" {
		return errors.New("node.data_dir must not be empty")
	}
	if c.Game.Players < 1 || c.Game.Players > 64 {
		return errors.New("game.players must be between 1 and 64")
	}
	if c.Game.LocalPlayer < 0 || c.Game.LocalPlayer >= c.Game.Players {
		return errors.New("game.local_player must name an existing player slot")
	}
	if c.Game.StartTurn < 0 {
		return errors.New("game.start_turn must be >= 0")
	}
	if c.Game.SharedTurn && !c.Game.Multiplayer {
		return errors.New("game.shared_turn requires game.multiplayer")
	}
	if c.Game.Network && !c.Game.Multiplayer {
		return errors.New("game.network requires game.multiplayer")
	}
	if c.Game.Hotseat && !c.Game.SharedTurn {
		return errors.New("game.hotseat requires game.shared_turn")
	}
	if c.Storage.KeepSnapshots < 1 {
		return errors.New("storage.keep_snapshots must be at least 1")
	}
	switch c.Storage.CompressionLevel {
	case "fastest", "default", "better", "best":
	default:
		return errors.New(`storage.compression_level must be one of "fastest", "default", "better", "best"`)
	}
	if c.Transport.MaxRate < 1 || c.Transport.Burst < 1 {
		return errors.New("transport.max_rate and transport.burst must be at least 1")
	}
	if c.Transport.WSSendBuffer < 1 {
		return errors.New("transport.ws_send_buffer must be at least 1")
	}
	if c.Transport.WSMaxFramesPerSec < 1 {
		return errors.New("transport.ws_max_frames_per_sec must be at least 1")
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return errors.New("metrics.port must be between 1 and 65535")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(`log.level must be one of "debug", "info", "warn", "error"`)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New(`log.format must be "text" or "json"`)
	}
	return nil
}
