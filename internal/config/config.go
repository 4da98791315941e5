package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ScoringWeights are the tunable constants behind customer scoring.
// They are configuration, not code: deployments tune them, and the
// version tag is recorded on every generated plan for auditability.
type ScoringWeights struct {
	// Urgency: base_by_tier[tier] + UrgencyPerDay*days_overdue - FrequencyRelief*frequency.
	TierBase        []float64 `mapstructure:"tier_base"` // index 0 = Tier 1
	UrgencyPerDay   float64   `mapstructure:"urgency_per_day"`
	FrequencyRelief float64   `mapstructure:"frequency_relief"`

	// Priority blend.
	TierWeight       float64 `mapstructure:"tier_weight"`
	ValueWeight      float64 `mapstructure:"value_weight"`
	ConversionWeight float64 `mapstructure:"conversion_weight"`
	ChurnPenalty     float64 `mapstructure:"churn_penalty"`

	// Churn risk horizon: risk hits 1.0 at interval*RiskMultiplier days.
	RiskMultiplier float64 `mapstructure:"risk_multiplier"`

	// ChurnFlagThreshold marks a customer as an NBD candidate.
	ChurnFlagThreshold float64 `mapstructure:"churn_flag_threshold"`

	// ValueNormalizer scales predicted value into the priority blend.
	ValueNormalizer float64 `mapstructure:"value_normalizer"`

	// EscalationBonus is added to priority for revision-escalated customers.
	EscalationBonus float64 `mapstructure:"escalation_bonus"`
}

// CapacityDefaults are the day-level capacity bounds used when a request
// does not override them.
type CapacityDefaults struct {
	MaxVisits    int    `mapstructure:"max_visits"`
	MaxTravelMin int    `mapstructure:"max_travel_min"`
	WorkStart    string `mapstructure:"work_start"` // "HH:MM"
	WorkEnd      string `mapstructure:"work_end"`
}

// TravelConfig parameterizes the straight-line travel-time model.
// Road-network routing is out of scope; this is a documented proxy.
type TravelConfig struct {
	AvgSpeedKmh   float64 `mapstructure:"avg_speed_kmh"`
	StopBufferMin int     `mapstructure:"stop_buffer_min"`
	IntraAreaMin  int     `mapstructure:"intra_area_min"`
	InterAreaMin  int     `mapstructure:"inter_area_min"`
}

// BandThresholds is the documented banding table for blended achievement.
type BandThresholds struct {
	Excellent    float64 `mapstructure:"excellent"`
	Good         float64 `mapstructure:"good"`
	Average      float64 `mapstructure:"average"`
	BelowAverage float64 `mapstructure:"below_average"`
}

// Config is the full, versioned engine configuration.
type Config struct {
	Version  string           `mapstructure:"version"`
	Weights  ScoringWeights   `mapstructure:"weights"`
	Capacity CapacityDefaults `mapstructure:"capacity"`
	Travel   TravelConfig     `mapstructure:"travel"`

	NBDQuota       float64 `mapstructure:"nbd_quota"`
	FairnessFactor float64 `mapstructure:"fairness_factor"`

	// UnplannedNoiseVisits is the minimum actual-visit count before
	// activity in an unplanned area counts as UNPLANNED_ACTIVITY.
	UnplannedNoiseVisits int `mapstructure:"unplanned_noise_visits"`

	Bands BandThresholds `mapstructure:"bands"`

	// BlendVisitWeight weights visit vs revenue achievement in banding.
	BlendVisitWeight float64 `mapstructure:"blend_visit_weight"`

	// NonWorkingWeekdays lists weekdays excluded from assignment.
	// Sunday is always excluded regardless of this list.
	NonWorkingWeekdays []string `mapstructure:"non_working_weekdays"`

	LookbackDays  int           `mapstructure:"lookback_days"`
	PortfolioTTL  time.Duration `mapstructure:"portfolio_ttl"`
}

// Default returns the engine configuration with documented defaults.
func Default() *Config {
	return &Config{
		Version: "v1",
		Weights: ScoringWeights{
			TierBase:           []float64{40, 30, 20, 10},
			UrgencyPerDay:      1.5,
			FrequencyRelief:    2.0,
			TierWeight:         10,
			ValueWeight:        30,
			ConversionWeight:   20,
			ChurnPenalty:       10,
			RiskMultiplier:     2.0,
			ChurnFlagThreshold: 0.8,
			ValueNormalizer:    1000,
			EscalationBonus:    25,
		},
		Capacity: CapacityDefaults{
			MaxVisits:    12,
			MaxTravelMin: 240,
			WorkStart:    "08:30",
			WorkEnd:      "17:30",
		},
		Travel: TravelConfig{
			AvgSpeedKmh:   40,
			StopBufferMin: 5,
			IntraAreaMin:  10,
			InterAreaMin:  25,
		},
		NBDQuota:             0.40,
		FairnessFactor:       1.25,
		UnplannedNoiseVisits: 2,
		Bands: BandThresholds{
			Excellent:    90,
			Good:         75,
			Average:      60,
			BelowAverage: 40,
		},
		BlendVisitWeight: 0.5,
		LookbackDays:     90,
		PortfolioTTL:     5 * time.Minute,
	}
}

// Load reads configuration from the given file (optional), environment
// variables prefixed FIELDPLAN_, and defaults, in ascending precedence
// of env over file over defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FIELDPLAN")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects self-contradictory configuration.
func (c *Config) Validate() error {
	if len(c.Weights.TierBase) != 4 {
		return fmt.Errorf("weights.tier_base must have exactly 4 entries, got %d", len(c.Weights.TierBase))
	}
	if c.Weights.RiskMultiplier <= 0 {
		return fmt.Errorf("weights.risk_multiplier must be positive")
	}
	if c.NBDQuota < 0 || c.NBDQuota > 1 {
		return fmt.Errorf("nbd_quota must be in [0,1], got %v", c.NBDQuota)
	}
	if c.FairnessFactor < 1 {
		return fmt.Errorf("fairness_factor must be >= 1, got %v", c.FairnessFactor)
	}
	if c.BlendVisitWeight < 0 || c.BlendVisitWeight > 1 {
		return fmt.Errorf("blend_visit_weight must be in [0,1], got %v", c.BlendVisitWeight)
	}
	if c.Travel.AvgSpeedKmh <= 0 {
		return fmt.Errorf("travel.avg_speed_kmh must be positive")
	}
	if _, err := ParseClock(c.Capacity.WorkStart); err != nil {
		return fmt.Errorf("capacity.work_start: %w", err)
	}
	if _, err := ParseClock(c.Capacity.WorkEnd); err != nil {
		return fmt.Errorf("capacity.work_end: %w", err)
	}
	return nil
}

// ParseClock converts "HH:MM" into minutes from midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("version", d.Version)
	v.SetDefault("weights.tier_base", d.Weights.TierBase)
	v.SetDefault("weights.urgency_per_day", d.Weights.UrgencyPerDay)
	v.SetDefault("weights.frequency_relief", d.Weights.FrequencyRelief)
	v.SetDefault("weights.tier_weight", d.Weights.TierWeight)
	v.SetDefault("weights.value_weight", d.Weights.ValueWeight)
	v.SetDefault("weights.conversion_weight", d.Weights.ConversionWeight)
	v.SetDefault("weights.churn_penalty", d.Weights.ChurnPenalty)
	v.SetDefault("weights.risk_multiplier", d.Weights.RiskMultiplier)
	v.SetDefault("weights.churn_flag_threshold", d.Weights.ChurnFlagThreshold)
	v.SetDefault("weights.value_normalizer", d.Weights.ValueNormalizer)
	v.SetDefault("weights.escalation_bonus", d.Weights.EscalationBonus)
	v.SetDefault("capacity.max_visits", d.Capacity.MaxVisits)
	v.SetDefault("capacity.max_travel_min", d.Capacity.MaxTravelMin)
	v.SetDefault("capacity.work_start", d.Capacity.WorkStart)
	v.SetDefault("capacity.work_end", d.Capacity.WorkEnd)
	v.SetDefault("travel.avg_speed_kmh", d.Travel.AvgSpeedKmh)
	v.SetDefault("travel.stop_buffer_min", d.Travel.StopBufferMin)
	v.SetDefault("travel.intra_area_min", d.Travel.IntraAreaMin)
	v.SetDefault("travel.inter_area_min", d.Travel.InterAreaMin)
	v.SetDefault("nbd_quota", d.NBDQuota)
	v.SetDefault("fairness_factor", d.FairnessFactor)
	v.SetDefault("unplanned_noise_visits", d.UnplannedNoiseVisits)
	v.SetDefault("bands.excellent", d.Bands.Excellent)
	v.SetDefault("bands.good", d.Bands.Good)
	v.SetDefault("bands.average", d.Bands.Average)
	v.SetDefault("bands.below_average", d.Bands.BelowAverage)
	v.SetDefault("blend_visit_weight", d.BlendVisitWeight)
	v.SetDefault("non_working_weekdays", d.NonWorkingWeekdays)
	v.SetDefault("lookback_days", d.LookbackDays)
	v.SetDefault("portfolio_ttl", d.PortfolioTTL)
}
