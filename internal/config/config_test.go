package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/models"
)

func TestLoad(t *testing.T) {
	// Set test environment variables
	testEnv := map[string]string{
		"STATARB_PAIRS":          "601318.SH:601601.SH, 600036.SH:601166.SH",
		"STATARB_LOOKBACK":       "30",
		"STATARB_LIVE_INTERVAL":  "250ms",
		"STATARB_DATABASE_PATH":  "test.db",
		"STATARB_EXIT_THRESHOLD": "0.3",
	}

	// Set env vars
	for key, value := range testEnv {
		os.Setenv(key, value)
	}

	// Clean up after test
	defer func() {
		for key := range testEnv {
			os.Unsetenv(key)
		}
	}()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if len(cfg.Pairs) != 2 {
		t.Fatalf("Expected 2 pairs, got %d", len(cfg.Pairs))
	}
	if cfg.Pairs[0].ID() != "601318.SH_601601.SH" {
		t.Errorf("Expected first pair '601318.SH_601601.SH', got '%s'", cfg.Pairs[0].ID())
	}

	if cfg.Lookback != 30 {
		t.Errorf("Expected Lookback=30, got %d", cfg.Lookback)
	}
	if cfg.ExitThreshold != 0.3 {
		t.Errorf("Expected ExitThreshold=0.3, got %v", cfg.ExitThreshold)
	}
	if cfg.Live.Interval != 250*time.Millisecond {
		t.Errorf("Expected Live.Interval=250ms, got %v", cfg.Live.Interval)
	}

	// Test defaults
	if cfg.InitialCapital != 1_000_000 {
		t.Errorf("Expected InitialCapital=1000000, got %v", cfg.InitialCapital)
	}
	if cfg.CommissionRate != 0.0003 {
		t.Errorf("Expected CommissionRate=0.0003, got %v", cfg.CommissionRate)
	}
	if cfg.MaxHoldDays != 20 {
		t.Errorf("Expected MaxHoldDays=20, got %d", cfg.MaxHoldDays)
	}
	if cfg.Seed != 42 {
		t.Errorf("Expected Seed=42, got %d", cfg.Seed)
	}
	if cfg.ExitPriority != "stop_loss_first" {
		t.Errorf("Expected ExitPriority='stop_loss_first', got '%s'", cfg.ExitPriority)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statarb.yaml")
	content := `
pairs:
  - a: AAA
    b: BBB
start_date: 20230101
end_date: 20230630
lookback: 20
entry_threshold: 1.5
window_mode: fixed
live:
  replay_days: 10
  schedule:
    start_time: "09:30"
    end_time: "15:00"
    days: [1, 2, 3, 4, 5]
    timezone: Asia/Shanghai
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.StartDate != "20230101" {
		t.Errorf("Expected StartDate='20230101', got '%s'", cfg.StartDate)
	}
	if cfg.EntryThreshold != 1.5 {
		t.Errorf("Expected EntryThreshold=1.5, got %v", cfg.EntryThreshold)
	}
	if cfg.WindowMode != "fixed" {
		t.Errorf("Expected WindowMode='fixed', got '%s'", cfg.WindowMode)
	}
	if cfg.Live.ReplayDays != 10 {
		t.Errorf("Expected Live.ReplayDays=10, got %d", cfg.Live.ReplayDays)
	}
	if cfg.Live.Schedule == nil || cfg.Live.Schedule.Timezone != "Asia/Shanghai" {
		t.Errorf("Expected schedule with timezone Asia/Shanghai, got %+v", cfg.Live.Schedule)
	}
	if cfg.Live.Schedule != nil && len(cfg.Live.Schedule.Days) != 5 {
		t.Errorf("Expected 5 schedule days, got %v", cfg.Live.Schedule.Days)
	}
}

func TestLoadMissingPairs(t *testing.T) {
	os.Unsetenv("STATARB_PAIRS")

	_, err := Load(filepath.Join("testdata", "does-not-matter.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file, got nil")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(path, []byte("lookback: 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err = Load(path)
	if !errors.Is(err, ErrNoPairs) {
		t.Errorf("Expected ErrNoPairs, got %v", err)
	}

	// Read skips validation
	cfg, err := Read(path)
	if err != nil {
		t.Fatalf("Expected no error from Read, got %v", err)
	}
	if cfg.Lookback != 10 {
		t.Errorf("Expected lookback 10, got %d", cfg.Lookback)
	}
	if cfg.DatabasePath != "statarb.db" {
		t.Errorf("Expected default database path, got %s", cfg.DatabasePath)
	}
}

func validConfig() *Config {
	return &Config{
		Pairs:               []models.Pair{{A: "AAA", B: "BBB"}},
		StartDate:           "20220101",
		EndDate:             "20221231",
		InitialCapital:      1_000_000,
		PositionSize:        0.1,
		Lookback:            60,
		EntryThreshold:      1.0,
		ExitThreshold:       0.5,
		StopLoss:            0.1,
		MaxHoldDays:         20,
		ExitPriority:        "stop_loss_first",
		WindowMode:          "rolling",
		CommissionRate:      0.0003,
		SlippageRate:        0.0001,
		ImpactCoefficient:   0.1,
		ImpactNormalization: 10000,
		TimingNoiseStd:      0.0005,
		Live:                LiveConfig{Interval: time.Second},
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	cfg := validConfig()
	cfg.Lookback = 0
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidLookback) {
		t.Errorf("Expected ErrInvalidLookback, got %v", err)
	}

	cfg = validConfig()
	cfg.Pairs = nil
	if err := cfg.Validate(); !errors.Is(err, ErrNoPairs) {
		t.Errorf("Expected ErrNoPairs, got %v", err)
	}

	cfg = validConfig()
	cfg.Pairs = []models.Pair{{A: "AAA", B: "AAA"}}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for identical legs, got nil")
	}

	cfg = validConfig()
	cfg.StartDate = "20230101"
	cfg.EndDate = "20220101"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for inverted date range, got nil")
	}

	cfg = validConfig()
	cfg.ExitPriority = "whatever"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for unknown exit priority, got nil")
	}
}

func TestParsePairs(t *testing.T) {
	pairs, err := ParsePairs("A:B, C:D,")
	if err != nil {
		t.Fatalf("ParsePairs() failed: %v", err)
	}
	if len(pairs) != 2 || pairs[1].A != "C" || pairs[1].B != "D" {
		t.Errorf("Unexpected pairs: %+v", pairs)
	}

	if _, err := ParsePairs("A-B"); err == nil {
		t.Error("Expected error for malformed pair, got nil")
	}
}

func TestInstrumentsAndYAML(t *testing.T) {
	cfg := validConfig()
	cfg.Pairs = append(cfg.Pairs, models.Pair{A: "BBB", B: "CCC"})

	instruments := cfg.Instruments()
	if strings.Join(instruments, ",") != "AAA,BBB,CCC" {
		t.Errorf("Expected AAA,BBB,CCC, got %v", instruments)
	}

	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML() failed: %v", err)
	}
	if !strings.Contains(out, "lookback: 60") {
		t.Errorf("Expected rendered lookback, got:\n%s", out)
	}
}
