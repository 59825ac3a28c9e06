package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration. Every scoring constant
// is tunable but the defaults are frozen for behavioral parity.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		// URL is the PostgreSQL DSN. Empty selects the in-memory store.
		URL string `yaml:"url"`
	} `yaml:"database"`
	Store struct {
		TimeoutMS int `yaml:"timeout_ms"`
	} `yaml:"store"`
	RateLimit struct {
		MaxPerHour   int `yaml:"max_per_hour"`
		MaxPerDay    int `yaml:"max_per_day"`
		BlockMinutes int `yaml:"block_minutes"`
	} `yaml:"rate_limit"`
	Duplicate struct {
		WindowMinutes           int     `yaml:"window_minutes"`
		MaxEntries              int     `yaml:"max_entries"`
		OverlapThreshold        float64 `yaml:"overlap_threshold"`
		ExactPenalty            float64 `yaml:"exact_penalty"`
		NearPenalty             float64 `yaml:"near_penalty"`
		CorroborationMinutes    int     `yaml:"corroboration_minutes"`
		CorroborationMinReports int     `yaml:"corroboration_min_reports"`
		CorroborationBonus      float64 `yaml:"corroboration_bonus"`
	} `yaml:"duplicate"`
	Reputation struct {
		Initial           float64 `yaml:"initial"`
		Min               float64 `yaml:"min"`
		Max               float64 `yaml:"max"`
		AccurateGain      float64 `yaml:"accurate_gain"`
		InaccurateDecay   float64 `yaml:"inaccurate_decay"`
		InaccuratePenalty float64 `yaml:"inaccurate_penalty"`
		SourceDecay       float64 `yaml:"source_decay"`
		SourceStep        float64 `yaml:"source_step"`
	} `yaml:"reputation"`
	Verification struct {
		WindowMinutes    int     `yaml:"window_minutes"`
		RadiusKM         float64 `yaml:"radius_km"`
		MinSourcesHigh   int     `yaml:"min_sources_high"`
		MinSourcesMedium int     `yaml:"min_sources_medium"`
	} `yaml:"verification"`
	Scoring struct {
		WCross            float64 `yaml:"w_cross"`
		WReputation       float64 `yaml:"w_reputation"`
		WDuplicate        float64 `yaml:"w_duplicate"`
		WRate             float64 `yaml:"w_rate"`
		AutoVerify        float64 `yaml:"auto_verify"`
		NeedsReview       float64 `yaml:"needs_review"`
		Reject            float64 `yaml:"reject"`
		CriticalDelta     float64 `yaml:"critical_delta"`
		HighDelta         float64 `yaml:"high_delta"`
		OtherDelta        float64 `yaml:"other_delta"`
		HistoryDecay      float64 `yaml:"history_decay"`
		HistoryWindow     int     `yaml:"history_window"`
		HistoryMinEntries int     `yaml:"history_min_entries"`
	} `yaml:"scoring"`
	Allocation struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"allocation"`
}

// LoadConfig reads configuration from the specified YAML file and
// validates it.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the frozen default configuration. The magic numbers
// mirror the hand-tuned originals and should not be re-derived.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = ":8080"
	cfg.Store.TimeoutMS = 2000

	cfg.RateLimit.MaxPerHour = 10
	cfg.RateLimit.MaxPerDay = 50
	cfg.RateLimit.BlockMinutes = 60

	cfg.Duplicate.WindowMinutes = 10
	cfg.Duplicate.MaxEntries = 1000
	cfg.Duplicate.OverlapThreshold = 0.7
	cfg.Duplicate.ExactPenalty = 0.8
	cfg.Duplicate.NearPenalty = 0.6
	cfg.Duplicate.CorroborationMinutes = 30
	cfg.Duplicate.CorroborationMinReports = 5
	cfg.Duplicate.CorroborationBonus = 0.2

	cfg.Reputation.Initial = 0.5
	cfg.Reputation.Min = 0.0
	cfg.Reputation.Max = 1.0
	cfg.Reputation.AccurateGain = 0.15 // 3x the base step of 0.05
	cfg.Reputation.InaccurateDecay = 0.9
	cfg.Reputation.InaccuratePenalty = 0.05
	cfg.Reputation.SourceDecay = 0.95
	cfg.Reputation.SourceStep = 0.05

	cfg.Verification.WindowMinutes = 60
	cfg.Verification.RadiusKM = 10.0
	cfg.Verification.MinSourcesHigh = 3
	cfg.Verification.MinSourcesMedium = 2

	cfg.Scoring.WCross = 0.5
	cfg.Scoring.WReputation = 0.3
	cfg.Scoring.WDuplicate = 0.2
	cfg.Scoring.WRate = 0.2
	cfg.Scoring.AutoVerify = 0.75
	cfg.Scoring.NeedsReview = 0.50
	cfg.Scoring.Reject = 0.25
	cfg.Scoring.CriticalDelta = -0.15
	cfg.Scoring.HighDelta = -0.10
	cfg.Scoring.OtherDelta = 0.10
	cfg.Scoring.HistoryDecay = 0.95
	cfg.Scoring.HistoryWindow = 50
	cfg.Scoring.HistoryMinEntries = 5

	return cfg
}

// StoreTimeout returns the bounded timeout applied to every store call.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.Store.TimeoutMS) * time.Millisecond
}

// Validate rejects missing or inconsistent weights and thresholds.
// A validation failure here is fatal at startup.
func (c *Config) Validate() error {
	if c.RateLimit.MaxPerHour <= 0 || c.RateLimit.MaxPerDay <= 0 {
		return fmt.Errorf("config: rate limit ceilings must be positive")
	}
	if c.RateLimit.MaxPerHour > c.RateLimit.MaxPerDay {
		return fmt.Errorf("config: max_per_hour %d exceeds max_per_day %d",
			c.RateLimit.MaxPerHour, c.RateLimit.MaxPerDay)
	}
	if c.RateLimit.BlockMinutes <= 0 {
		return fmt.Errorf("config: block_minutes must be positive")
	}
	if c.Reputation.Min < 0 || c.Reputation.Max > 1 || c.Reputation.Min >= c.Reputation.Max {
		return fmt.Errorf("config: reputation bounds [%v,%v] invalid",
			c.Reputation.Min, c.Reputation.Max)
	}
	if c.Reputation.Initial < c.Reputation.Min || c.Reputation.Initial > c.Reputation.Max {
		return fmt.Errorf("config: initial reputation %v outside [%v,%v]",
			c.Reputation.Initial, c.Reputation.Min, c.Reputation.Max)
	}
	for name, w := range map[string]float64{
		"w_cross":      c.Scoring.WCross,
		"w_reputation": c.Scoring.WReputation,
		"w_duplicate":  c.Scoring.WDuplicate,
		"w_rate":       c.Scoring.WRate,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("config: scoring weight %s=%v outside [0,1]", name, w)
		}
	}
	if !(c.Scoring.Reject < c.Scoring.NeedsReview && c.Scoring.NeedsReview < c.Scoring.AutoVerify) {
		return fmt.Errorf("config: thresholds must satisfy reject < needs_review < auto_verify, got %v/%v/%v",
			c.Scoring.Reject, c.Scoring.NeedsReview, c.Scoring.AutoVerify)
	}
	if c.Scoring.HistoryDecay <= 0 || c.Scoring.HistoryDecay > 1 {
		return fmt.Errorf("config: history_decay %v outside (0,1]", c.Scoring.HistoryDecay)
	}
	if c.Verification.MinSourcesMedium > c.Verification.MinSourcesHigh {
		return fmt.Errorf("config: min_sources_medium %d exceeds min_sources_high %d",
			c.Verification.MinSourcesMedium, c.Verification.MinSourcesHigh)
	}
	if c.Verification.RadiusKM <= 0 || c.Verification.WindowMinutes <= 0 {
		return fmt.Errorf("config: verification radius and window must be positive")
	}
	if c.Duplicate.OverlapThreshold <= 0 || c.Duplicate.OverlapThreshold > 1 {
		return fmt.Errorf("config: overlap_threshold %v outside (0,1]", c.Duplicate.OverlapThreshold)
	}
	if c.Store.TimeoutMS <= 0 {
		return fmt.Errorf("config: store timeout_ms must be positive")
	}
	return nil
}
