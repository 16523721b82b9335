package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STATARB"

var (
	ErrNoPairs         = errors.New("at least one pair must be configured")
	ErrInvalidLookback = errors.New("lookback must be positive")
)

// Config holds all application configuration
type Config struct {
	// Universe
	Pairs     []models.Pair `mapstructure:"pairs" yaml:"pairs"`
	StartDate string        `mapstructure:"start_date" yaml:"start_date"`
	EndDate   string        `mapstructure:"end_date" yaml:"end_date"`

	// Capital and sizing
	InitialCapital float64 `mapstructure:"initial_capital" yaml:"initial_capital"`
	PositionSize   float64 `mapstructure:"position_size" yaml:"position_size"`

	// Signal parameters
	Lookback       int     `mapstructure:"lookback" yaml:"lookback"`
	EntryThreshold float64 `mapstructure:"entry_threshold" yaml:"entry_threshold"`
	ExitThreshold  float64 `mapstructure:"exit_threshold" yaml:"exit_threshold"`
	StopLoss       float64 `mapstructure:"stop_loss" yaml:"stop_loss"`
	MaxHoldDays    int     `mapstructure:"max_hold_days" yaml:"max_hold_days"`
	ExitPriority   string  `mapstructure:"exit_priority" yaml:"exit_priority"`
	WindowMode     string  `mapstructure:"window_mode" yaml:"window_mode"`

	// Transaction costs
	CommissionRate      float64 `mapstructure:"commission_rate" yaml:"commission_rate"`
	SlippageRate        float64 `mapstructure:"slippage_rate" yaml:"slippage_rate"`
	ImpactCoefficient   float64 `mapstructure:"impact_coefficient" yaml:"impact_coefficient"`
	ImpactNormalization float64 `mapstructure:"impact_normalization" yaml:"impact_normalization"`
	TimingNoiseStd      float64 `mapstructure:"timing_noise_std" yaml:"timing_noise_std"`
	Seed                int64   `mapstructure:"seed" yaml:"seed"`

	// Storage
	DatabasePath string        `mapstructure:"database_path" yaml:"database_path"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	Live LiveConfig `mapstructure:"live" yaml:"live"`
}

// LiveConfig configures the periodic live driver
type LiveConfig struct {
	Interval    time.Duration   `mapstructure:"interval" yaml:"interval"`
	ReplayDays  int             `mapstructure:"replay_days" yaml:"replay_days"`
	StatusAddr  string          `mapstructure:"status_addr" yaml:"status_addr"`
	NATSURL     string          `mapstructure:"nats_url" yaml:"nats_url"`
	NATSSubject string          `mapstructure:"nats_subject" yaml:"nats_subject"`
	Schedule    *ScheduleConfig `mapstructure:"schedule" yaml:"schedule,omitempty"`
}

// ScheduleConfig restricts live steps to a trading window
type ScheduleConfig struct {
	StartTime string `mapstructure:"start_time" yaml:"start_time"` // "09:30"
	EndTime   string `mapstructure:"end_time" yaml:"end_time"`     // "15:00"
	Days      []int  `mapstructure:"days" yaml:"days"`             // 1=Monday ... 7=Sunday
	Timezone  string `mapstructure:"timezone" yaml:"timezone"`
}

// Load reads and validates the configuration
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads configuration from an optional file, .env and STATARB_* variables
// without validating it. Commands that only inspect stored runs use it.
func Read(path string) (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("statarb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".statarb"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// Pairs from the environment use the compact "A:B,C:D" form
	if raw := os.Getenv(envPrefix + "_PAIRS"); raw != "" {
		pairs, err := ParsePairs(raw)
		if err != nil {
			return nil, err
		}
		v.Set("pairs", pairs)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pairs", []models.Pair{})
	v.SetDefault("start_date", "20220101")
	v.SetDefault("end_date", "20221231")

	v.SetDefault("initial_capital", 1_000_000.0)
	v.SetDefault("position_size", 0.1)

	v.SetDefault("lookback", 60)
	v.SetDefault("entry_threshold", 1.0)
	v.SetDefault("exit_threshold", 0.5)
	v.SetDefault("stop_loss", 0.1)
	v.SetDefault("max_hold_days", 20)
	v.SetDefault("exit_priority", "stop_loss_first")
	v.SetDefault("window_mode", "rolling")

	v.SetDefault("commission_rate", 0.0003)
	v.SetDefault("slippage_rate", 0.0001)
	v.SetDefault("impact_coefficient", 0.1)
	v.SetDefault("impact_normalization", 10000.0)
	v.SetDefault("timing_noise_std", 0.0005)
	v.SetDefault("seed", 42)

	v.SetDefault("database_path", "statarb.db")
	v.SetDefault("cache_ttl", 5*time.Minute)

	v.SetDefault("live.interval", time.Second)
	v.SetDefault("live.replay_days", 90)
	v.SetDefault("live.status_addr", "")
	v.SetDefault("live.nats_url", "")
	v.SetDefault("live.nats_subject", "statarb.status")
}

// Validate checks the settings that make a run impossible
func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return ErrNoPairs
	}
	if c.Lookback <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidLookback, c.Lookback)
	}

	seen := make(map[string]bool, len(c.Pairs))
	for _, p := range c.Pairs {
		if p.A == "" || p.B == "" {
			return fmt.Errorf("pair %q has an empty leg", p.ID())
		}
		if p.A == p.B {
			return fmt.Errorf("pair %q uses the same instrument twice", p.ID())
		}
		if seen[p.ID()] {
			return fmt.Errorf("pair %q configured twice", p.ID())
		}
		seen[p.ID()] = true
	}

	start, err := models.ParseDate(c.StartDate)
	if err != nil {
		return fmt.Errorf("start_date: %w", err)
	}
	end, err := models.ParseDate(c.EndDate)
	if err != nil {
		return fmt.Errorf("end_date: %w", err)
	}
	if start.After(end) {
		return fmt.Errorf("start_date %s is after end_date %s", c.StartDate, c.EndDate)
	}

	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %v", c.InitialCapital)
	}
	if c.PositionSize <= 0 || c.PositionSize > 1 {
		return fmt.Errorf("position_size must be in (0, 1], got %v", c.PositionSize)
	}
	if c.EntryThreshold <= 0 {
		return fmt.Errorf("entry_threshold must be positive, got %v", c.EntryThreshold)
	}
	if c.ExitThreshold < 0 || c.ExitThreshold >= c.EntryThreshold {
		return fmt.Errorf("exit_threshold must be in [0, entry_threshold), got %v", c.ExitThreshold)
	}
	if c.StopLoss <= 0 {
		return fmt.Errorf("stop_loss must be positive, got %v", c.StopLoss)
	}
	if c.MaxHoldDays <= 0 {
		return fmt.Errorf("max_hold_days must be positive, got %d", c.MaxHoldDays)
	}
	if c.CommissionRate < 0 || c.SlippageRate < 0 || c.TimingNoiseStd < 0 || c.ImpactCoefficient < 0 {
		return fmt.Errorf("cost rates must not be negative")
	}
	if c.ImpactNormalization <= 0 {
		return fmt.Errorf("impact_normalization must be positive, got %v", c.ImpactNormalization)
	}

	switch c.ExitPriority {
	case "stop_loss_first", "time_exit_first":
	default:
		return fmt.Errorf("unknown exit_priority %q", c.ExitPriority)
	}
	switch c.WindowMode {
	case "rolling", "fixed":
	default:
		return fmt.Errorf("unknown window_mode %q", c.WindowMode)
	}

	if c.Live.Interval <= 0 {
		return fmt.Errorf("live.interval must be positive, got %v", c.Live.Interval)
	}

	return nil
}

// Instruments returns every distinct leg in pair order
func (c *Config) Instruments() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(c.Pairs)*2)
	for _, p := range c.Pairs {
		for _, s := range []string{p.A, p.B} {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// YAML renders the configuration for run records
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return string(out), nil
}

// ParsePairs parses "A:B,C:D" into pairs
func ParsePairs(raw string) ([]models.Pair, error) {
	var pairs []models.Pair
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		legs := strings.Split(item, ":")
		if len(legs) != 2 {
			return nil, fmt.Errorf("invalid pair %q, expected A:B", item)
		}
		pairs = append(pairs, models.Pair{
			A: strings.TrimSpace(legs[0]),
			B: strings.TrimSpace(legs[1]),
		})
	}
	return pairs, nil
}
