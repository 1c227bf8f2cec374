// Package config assembles runtime configuration from defaults and
// GROUNDCTL_* environment variables.
package config

// #region imports
import (
	"fmt"
	"time"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/quarryhq/groundctl/internal/calibrate"
	"github.com/quarryhq/groundctl/internal/planner"
	"github.com/quarryhq/groundctl/internal/provider"
	"github.com/quarryhq/groundctl/internal/retrieval"
)

// #endregion

// #region types

// Config is the full engine configuration tree.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	DB        DBConfig         `koanf:"db"`
	Log       LogConfig        `koanf:"log"`
	Engine    EngineConfig     `koanf:"engine"`
	Provider  provider.Config  `koanf:"provider"`
	Retrieval retrieval.Config `koanf:"retrieval"`
	Calibrate calibrate.Config `koanf:"calibrate"`
	Planner   planner.Config   `koanf:"planner"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DBConfig holds the sqlite file locations.
type DBConfig struct {
	CorpusPath string `koanf:"corpus_path"`
	AuditPath  string `koanf:"audit_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `koanf:"level"`
}

// EngineConfig holds pipeline-level settings.
type EngineConfig struct {
	TurnBudget    time.Duration `koanf:"turn_budget"`
	AssistantName string        `koanf:"assistant_name"`
}

// #endregion types

// #region defaults

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB:        DBConfig{CorpusPath: "corpus.db", AuditPath: "audit.db"},
		Log:       LogConfig{Level: "info"},
		Engine:    EngineConfig{TurnBudget: 25 * time.Second, AssistantName: "assistant"},
		Provider:  provider.DefaultConfig(),
		Retrieval: retrieval.DefaultConfig(),
		Calibrate: calibrate.DefaultConfig(),
		Planner:   planner.DefaultConfig(),
	}
}

// #endregion defaults

// #region env

// envMappings pins each supported environment variable to its config path.
// Key names contain underscores, so a generic prefix-strip transform would
// split them wrong; the table keeps the mapping exact.
var envMappings = map[string]string{
	"GROUNDCTL_SERVER_HOST":            "server.host",
	"GROUNDCTL_SERVER_PORT":            "server.port",
	"GROUNDCTL_DB_CORPUS_PATH":         "db.corpus_path",
	"GROUNDCTL_DB_AUDIT_PATH":          "db.audit_path",
	"GROUNDCTL_LOG_LEVEL":              "log.level",
	"GROUNDCTL_TURN_BUDGET":            "engine.turn_budget",
	"GROUNDCTL_ASSISTANT_NAME":         "engine.assistant_name",
	"GROUNDCTL_PROVIDER_BASE_URL":      "provider.base_url",
	"GROUNDCTL_PROVIDER_API_KEY":       "provider.api_key",
	"GROUNDCTL_PROVIDER_TIMEOUT":       "provider.timeout",
	"GROUNDCTL_PROVIDER_MAX_RETRIES":   "provider.max_retries",
	"GROUNDCTL_RETRIEVAL_TOP_K":        "retrieval.topk",
	"GROUNDCTL_RETRIEVAL_MAX_EVIDENCE": "retrieval.max_evidence",
	"GROUNDCTL_RETRIEVAL_MMR_LAMBDA":   "retrieval.mmr_lambda",
	"GROUNDCTL_CONFIDENCE_FLOOR":       "calibrate.floor",
	"GROUNDCTL_QUOTE_THRESHOLD":        "planner.quote_threshold",
	"GROUNDCTL_DIRECT_THRESHOLD":       "planner.direct_threshold",
	"GROUNDCTL_DERIVABLE_THRESHOLD":    "planner.derivable_threshold",
}

// #endregion env

// #region load

// Load builds the configuration from defaults overlaid with environment
// variables.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: "",
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envMappings[key]
			if !ok {
				return "", nil
			}
			return path, value
		},
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server port %d out of range", c.Server.Port)
	}
	if c.Engine.TurnBudget <= 0 {
		return fmt.Errorf("config: turn budget must be positive")
	}
	if c.Retrieval.TopK <= 0 || c.Retrieval.MaxEvidence <= 0 {
		return fmt.Errorf("config: retrieval top_k and max_evidence must be positive")
	}
	if c.Calibrate.Floor < 0 || c.Calibrate.Floor > 1 {
		return fmt.Errorf("config: confidence floor %.2f out of range", c.Calibrate.Floor)
	}
	if c.Planner.QuoteThreshold < c.Planner.DirectThreshold {
		return fmt.Errorf("config: quote threshold below direct threshold")
	}
	return nil
}

// #endregion load
