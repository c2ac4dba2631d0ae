// Package config loads dicesim settings: built-in defaults, then an optional
// YAML file, then DICESIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/logging"
	"github.com/psychodicenamic/dicesim/internal/sim"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DICESIM_"

// Config is the full dicesim configuration.
type Config struct {
	Rules          RulesConfig    `yaml:"rules" envPrefix:"RULES_"`
	Sim            SimConfig      `yaml:"sim" envPrefix:"SIM_"`
	Log            logging.Config `yaml:"log" envPrefix:"LOG_"`
	Store          StoreConfig    `yaml:"store" envPrefix:"STORE_"`
	Server         ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	ArchetypesFile string         `yaml:"archetypes_file" env:"ARCHETYPES_FILE"`
}

// RulesConfig mirrors game.Rules with names that read well in YAML.
type RulesConfig struct {
	AllowSingleDieBanking bool               `yaml:"allow_single_die_banking" env:"ALLOW_SINGLES"`
	StartingHealth        int                `yaml:"starting_health" env:"STARTING_HEALTH"`
	MaxLiveDice           int                `yaml:"max_live_dice" env:"MAX_LIVE_DICE"`
	MaxRollsPerRound      int                `yaml:"max_rolls_per_round" env:"MAX_ROLLS"`
	MaxDebates            int                `yaml:"max_debates" env:"MAX_DEBATES"`
	EchoFaces             []int              `yaml:"echo_faces" env:"ECHO_FACES" envSeparator:","`
	DamageFormula         string             `yaml:"damage_formula" env:"DAMAGE_FORMULA"`
	KindMultipliers       map[string]float64 `yaml:"kind_multipliers"`
	BlockingMode          string             `yaml:"blocking_mode" env:"BLOCKING_MODE"`
	BlockingRatio         float64            `yaml:"blocking_ratio" env:"BLOCKING_RATIO"`
}

// SimConfig holds the default run parameters for the simulate commands.
type SimConfig struct {
	Trials    int    `yaml:"trials" env:"TRIALS"`
	Seed      int64  `yaml:"seed" env:"SEED"`
	Workers   int    `yaml:"workers" env:"WORKERS"`
	Mode      string `yaml:"mode" env:"MODE"`
	StrategyA string `yaml:"strategy_a" env:"STRATEGY_A"`
	StrategyB string `yaml:"strategy_b" env:"STRATEGY_B"`
}

// StoreConfig selects where run results are persisted. An empty driver
// disables the store.
type StoreConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"` // sqlite or postgres
	DSN    string `yaml:"dsn" env:"DSN"`
}

// ServerConfig is shared by the web and multiplayer servers.
type ServerConfig struct {
	Addr           string   `yaml:"addr" env:"ADDR"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	Watch          bool     `yaml:"watch" env:"WATCH"` // reload the archetypes file on change
}

// Default returns the built-in configuration.
func Default() *Config {
	r := game.DefaultRules()
	return &Config{
		Rules: RulesConfig{
			StartingHealth:   r.StartingHealth,
			MaxLiveDice:      r.MaxLiveDice,
			MaxRollsPerRound: r.MaxRollsPerRound,
			MaxDebates:       r.MaxDebates,
			EchoFaces:        append([]int(nil), r.EchoFaces...),
			DamageFormula:    r.DamageFormula.String(),
			BlockingMode:     r.BlockingMode.String(),
			BlockingRatio:    r.BlockingRatio,
		},
		Sim: SimConfig{
			Trials: 1000,
			Mode:   sim.ModeDebate.String(),
		},
		Log: logging.DefaultConfig(),
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load applies the YAML file at path (skipped when path is empty or the file
// does not exist) and then the environment on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := c.Rules.GameRules(); err != nil {
		return err
	}
	if _, err := c.Sim.SimConfig(game.DefaultRules()); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// GameRules converts the section into validated game rules.
func (r RulesConfig) GameRules() (game.Rules, error) {
	formula, err := game.ParseDamageFormula(r.DamageFormula)
	if err != nil {
		return game.Rules{}, err
	}
	blocking, err := game.ParseBlockingMode(r.BlockingMode)
	if err != nil {
		return game.Rules{}, err
	}
	rules := game.Rules{
		AllowSingleDieBanking: r.AllowSingleDieBanking,
		StartingHealth:        r.StartingHealth,
		MaxLiveDice:           r.MaxLiveDice,
		MaxRollsPerRound:      r.MaxRollsPerRound,
		MaxDebates:            r.MaxDebates,
		EchoFaces:             r.EchoFaces,
		DamageFormula:         formula,
		BlockingMode:          blocking,
		BlockingRatio:         r.BlockingRatio,
	}
	if len(r.KindMultipliers) > 0 {
		rules.KindMultipliers = make(map[game.ComboKind]float64, len(r.KindMultipliers))
		for name, m := range r.KindMultipliers {
			k, err := game.ParseComboKind(name)
			if err != nil {
				return game.Rules{}, fmt.Errorf("kind multipliers: %w", err)
			}
			rules.KindMultipliers[k] = m
		}
	}
	if err := rules.Validate(); err != nil {
		return game.Rules{}, err
	}
	return rules, nil
}

// SimConfig converts the section into a run configuration under rules.
func (s SimConfig) SimConfig(rules game.Rules) (sim.Config, error) {
	mode, err := sim.ParseTrialMode(s.Mode)
	if err != nil {
		return sim.Config{}, err
	}
	if s.Trials < 0 {
		return sim.Config{}, fmt.Errorf("trials %d: %w", s.Trials, game.ErrInvalidRules)
	}
	for _, name := range []string{s.StrategyA, s.StrategyB} {
		if _, err := game.LookupStrategy(name); err != nil {
			return sim.Config{}, err
		}
	}
	return sim.Config{
		Rules:      rules,
		Trials:     s.Trials,
		Seed:       s.Seed,
		Workers:    s.Workers,
		Mode:       mode,
		Strategies: [2]string{s.StrategyA, s.StrategyB},
	}, nil
}

// RunConfig builds the simulation config from both sections.
func (c *Config) RunConfig() (sim.Config, error) {
	rules, err := c.Rules.GameRules()
	if err != nil {
		return sim.Config{}, err
	}
	return c.Sim.SimConfig(rules)
}
