// Package config loads the storage engine's tuning parameters from a JSON
// file, the way the teacher project's utils/config package does, trimmed to
// the knobs this engine actually has.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// EngineConfig holds all storage-engine configuration parameters.
type EngineConfig struct {
	LSM struct {
		MaxLevels           uint64 `json:"max_levels"`
		MaxTablesPerLevel   uint64 `json:"max_tables_per_level"`
		MemtableCapacity    uint64 `json:"memtable_capacity"`
		DataDir             string `json:"data_dir"`
	} `json:"lsm"`

	Cache struct {
		ReadPathCapacity uint32 `json:"read_path_capacity"`
	} `json:"cache"`

	RateLimit struct {
		Capacity       uint16 `json:"capacity"`
		RefillInterval uint64 `json:"refill_interval_seconds"`
		RefillAmount   uint16 `json:"refill_amount"`
	} `json:"rate_limit"`
}

var (
	instance *EngineConfig
	once     sync.Once
)

// Path is overridable by tests; defaults to config.json in the working directory.
var Path = "config.json"

// Get returns the singleton config instance, loading it from disk on first use.
func Get() *EngineConfig {
	once.Do(func() {
		instance = load(Path)
	})
	return instance
}

// load reads the config file or creates one with default values.
func load(path string) *EngineConfig {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultConfig()
		_ = save(cfg, path)
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("warning: failed to read config %s, using defaults: %v\n", path, err)
		return defaultConfig()
	}

	var cfg EngineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		fmt.Printf("warning: failed to parse config %s, using defaults: %v\n", path, err)
		return defaultConfig()
	}

	return &cfg
}

func defaultConfig() *EngineConfig {
	cfg := &EngineConfig{}

	cfg.LSM.MaxLevels = 4
	cfg.LSM.MaxTablesPerLevel = 2
	cfg.LSM.MemtableCapacity = 1000
	cfg.LSM.DataDir = "."

	cfg.Cache.ReadPathCapacity = 1000

	cfg.RateLimit.Capacity = 50
	cfg.RateLimit.RefillInterval = 1
	cfg.RateLimit.RefillAmount = 20

	return cfg
}

func save(cfg *EngineConfig, path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Reset clears the singleton so the next Get() reloads from Path. Test-only.
func Reset() {
	instance = nil
	once = sync.Once{}
}
