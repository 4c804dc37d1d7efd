package sheetrec

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
)

// Config represents configuration for the record client
type Config struct {
	MaxAttempts    int               // Attempts per remote call before giving up (default: 10)
	BackoffUnit    time.Duration     // Retry n waits n*5 units (default: 1s)
	RenameRules    map[string]string // Normalized header name -> field name
	MetadataKey    string            // Developer metadata key for external ids (default: sheetrec_id)
	InsertPosition int               // Where new records are inserted (default: 2, below the header)
	Profiling      bool              // Record profiling events on the session
	Logger         logrus.FieldLogger
}

const (
	defaultMaxAttempts    = 10
	defaultBackoffUnit    = time.Second
	defaultMetadataKey    = "sheetrec_id"
	defaultInsertPosition = 2
)

// DefaultConfig returns the configuration used when New is given nil
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.BackoffUnit <= 0 {
		c.BackoffUnit = defaultBackoffUnit
	}
	if c.MetadataKey == "" {
		c.MetadataKey = defaultMetadataKey
	}
	if c.InsertPosition < 2 {
		c.InsertPosition = defaultInsertPosition
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	if c.RenameRules == nil {
		c.RenameRules = map[string]string{}
	}
}

type fileConfig struct {
	MaxAttempts    int               `toml:"max_attempts"`
	BackoffUnit    string            `toml:"backoff_unit"`
	MetadataKey    string            `toml:"metadata_key"`
	InsertPosition int               `toml:"insert_position"`
	Profiling      bool              `toml:"profiling"`
	Rename         map[string]string `toml:"rename"`
}

// LoadConfig reads a TOML configuration file. Unset keys keep their defaults.
//
//	max_attempts = 5
//	backoff_unit = "500ms"
//
//	[rename]
//	e_mail = "email"
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	c := &Config{
		MaxAttempts:    fc.MaxAttempts,
		MetadataKey:    fc.MetadataKey,
		InsertPosition: fc.InsertPosition,
		Profiling:      fc.Profiling,
		RenameRules:    fc.Rename,
	}
	if fc.BackoffUnit != "" {
		d, err := time.ParseDuration(fc.BackoffUnit)
		if err != nil {
			return nil, fmt.Errorf("invalid backoff_unit %q: %w", fc.BackoffUnit, err)
		}
		c.BackoffUnit = d
	}
	c.applyDefaults()
	return c, nil
}
