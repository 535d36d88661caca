package ruleflow

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/viant/ruleflow/runtime/evaluator"
	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/processor"
	"github.com/viant/ruleflow/service/scheduler"
	"github.com/viant/ruleflow/service/sweeper"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	// DriverFS keeps processes as JSON documents under DSN; definitions and snapshots stay in memory.
	DriverFS = "fs"
)

// Config is a serialisable representation of the engine configuration. It can
// be populated from YAML, JSON or environment variables. The zero-value is
// useful: nested fields inherit their package defaults.
type Config struct {
	Name      string           `yaml:"name" json:"name" env:"RULEFLOW_NAME" env-default:"ruleflow"`
	Scheduler SchedulerConfig  `yaml:"scheduler" json:"scheduler"`
	Processor processor.Config `yaml:"processor" json:"processor"`
	Sweeper   sweeper.Config   `yaml:"sweeper" json:"sweeper"`
	Evaluator evaluator.Config `yaml:"evaluator" json:"evaluator"`
	Store     StoreConfig      `yaml:"store" json:"store"`
	Server    ServerConfig     `yaml:"server" json:"server"`
}

// SchedulerConfig controls process lifecycle limits.
type SchedulerConfig struct {
	// Timeout bounds how long a started process may run.
	Timeout    time.Duration `yaml:"timeout" json:"timeout" env:"RULEFLOW_TIMEOUT" env-default:"300s"`
	MaxRetries int           `yaml:"maxRetries" json:"maxRetries" env:"RULEFLOW_MAX_RETRIES" env-default:"3"`
	// LockGrace is how long a terminated or missing process keeps its dispatch lock entry.
	LockGrace time.Duration `yaml:"lockGrace" json:"lockGrace" env:"RULEFLOW_LOCK_GRACE" env-default:"1m"`
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver" env:"RULEFLOW_STORE_DRIVER" env-default:"memory"`
	// DSN is the SQLite database path, or the process location of the fs driver.
	DSN string `yaml:"dsn" json:"dsn" env:"RULEFLOW_STORE_DSN"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Addr    string `yaml:"addr" json:"addr" env:"RULEFLOW_ADDR" env-default:":8080"`
	Context string `yaml:"context" json:"context" env:"RULEFLOW_CONTEXT" env-default:"/"`
	// Definitions is an optional bundle URL loaded at startup.
	Definitions string `yaml:"definitions" json:"definitions" env:"RULEFLOW_DEFINITIONS"`
}

// DefaultConfig returns a Config populated with package defaults. Callers may
// modify the returned struct before passing it to WithConfig.
func DefaultConfig() *Config {
	return &Config{
		Name: "ruleflow",
		Scheduler: SchedulerConfig{
			Timeout:    execution.DefaultTimeout,
			MaxRetries: execution.DefaultMaxRetries,
			LockGrace:  scheduler.DefaultLockGrace,
		},
		Processor: processor.DefaultConfig(),
		Sweeper:   sweeper.DefaultConfig(),
		Evaluator: evaluator.DefaultConfig(),
		Store:     StoreConfig{Driver: DriverMemory},
		Server:    ServerConfig{Addr: ":8080", Context: "/"},
	}
}

// LoadConfig reads the YAML file at path with environment overrides. When
// path is empty or missing, configuration is read from the environment only.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	var err error
	if _, statErr := os.Stat(path); path == "" || errors.Is(statErr, os.ErrNotExist) {
		err = cleanenv.ReadEnv(cfg)
	} else {
		err = cleanenv.ReadConfig(path, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg.defaults()
	return cfg, cfg.Validate()
}

func (c *Config) defaults() {
	defaults := DefaultConfig()
	if c.Processor.Queue.QueueBuffer == 0 {
		c.Processor.Queue = defaults.Processor.Queue
	}
	if c.Evaluator.CacheSize == 0 {
		c.Evaluator.CacheSize = defaults.Evaluator.CacheSize
	}
	if c.Evaluator.CostLimit == 0 {
		c.Evaluator.CostLimit = defaults.Evaluator.CostLimit
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Processor.WorkerCount <= 0 {
		errs = append(errs, fmt.Errorf("processor.workers must be > 0"))
	}
	if c.Scheduler.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.timeout must be > 0"))
	}
	if c.Scheduler.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("scheduler.maxRetries must be >= 0"))
	}
	switch c.Store.Driver {
	case "", DriverMemory:
	case DriverSQLite, DriverFS:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for %v driver", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store driver: %q", c.Store.Driver))
	}
	return errors.Join(errs...)
}
