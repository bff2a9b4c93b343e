// Package config holds the settings of a training run. Values come from
// Default, then an optional YAML file, then command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/CodeStranger-Fred/slither/board"
	"github.com/CodeStranger-Fred/slither/mdp"
)

var validate = validator.New()

type Config struct {
	Agent AgentConfig `yaml:"agent"`
	Train TrainConfig `yaml:"train"`
	Board BoardConfig `yaml:"board"`
	Log   LogConfig   `yaml:"log"`
}

type AgentConfig struct {
	Alpha        float64 `yaml:"alpha" validate:"gt=0,lte=1"`
	Gamma        float64 `yaml:"gamma" validate:"gte=0,lte=1"`
	Epsilon      float64 `yaml:"epsilon" validate:"gte=0,lte=1"`
	MinEpsilon   float64 `yaml:"min_epsilon" validate:"gte=0,lte=1"`
	EpsilonDecay float64 `yaml:"epsilon_decay" validate:"gt=0,lte=1"`
	NumActions   int     `yaml:"num_actions" validate:"gte=1"`
}

type TrainConfig struct {
	Sessions int   `yaml:"sessions" validate:"gte=1"`
	MaxSteps int   `yaml:"max_steps" validate:"gte=1"`
	Seed     int64 `yaml:"seed"`
	// Learn false plays greedily and never touches the table.
	Learn bool `yaml:"learn"`

	Save   string `yaml:"save"`
	Load   string `yaml:"load"`
	Plot   string `yaml:"plot"`
	Report string `yaml:"report"`

	CheckpointDB    string `yaml:"checkpoint_db"`
	CheckpointEvery int    `yaml:"checkpoint_every" validate:"gte=0"`
	MetricsAddr     string `yaml:"metrics_addr"`
}

type BoardConfig struct {
	Size int `yaml:"size" validate:"gte=10"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

func Default() Config {
	return Config{
		Agent: AgentConfig{
			Alpha:        0.1,
			Gamma:        0.95,
			Epsilon:      1.0,
			MinEpsilon:   0.05,
			EpsilonDecay: 0.995,
			NumActions:   4,
		},
		Train: TrainConfig{
			Sessions:        100,
			MaxSteps:        500,
			Seed:            0,
			Learn:           true,
			CheckpointEvery: 0,
		},
		Board: BoardConfig{Size: board.DefaultSize},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and validates the result. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.Decode(data); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode merges YAML data into cfg. Unknown keys are rejected so typos do not
// go unnoticed.
func (c *Config) Decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Train.Learn && c.Agent.MinEpsilon > c.Agent.Epsilon {
		return fmt.Errorf("invalid config: min_epsilon %v is above epsilon %v",
			c.Agent.MinEpsilon, c.Agent.Epsilon)
	}
	return nil
}

func (c Config) AgentParams() mdp.Params {
	return mdp.Params{
		Alpha:        c.Agent.Alpha,
		Gamma:        c.Agent.Gamma,
		Epsilon:      c.Agent.Epsilon,
		MinEpsilon:   c.Agent.MinEpsilon,
		EpsilonDecay: c.Agent.EpsilonDecay,
		NumActions:   c.Agent.NumActions,
	}
}

// YAML renders the config in the format Load reads.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
