package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Tickers     []string                    `mapstructure:"tickers"`
	Instruments map[string]InstrumentConfig `mapstructure:"instruments"`
	Exit        ExitConfig                  `mapstructure:"exit"`
	Competing   CompetingConfig             `mapstructure:"competing"`
	Engine      EngineConfig                `mapstructure:"engine"`
	Server      ServerConfig                `mapstructure:"server"`
	Logging     LoggingConfig               `mapstructure:"logging"`
}

// InstrumentConfig carries the per-symbol strike grid and zone policies.
type InstrumentConfig struct {
	StrikeIncrement  float64    `mapstructure:"strike_increment"`
	Near             ZonePolicy `mapstructure:"near"`
	Moderate         ZonePolicy `mapstructure:"moderate"`
	Far              ZonePolicy `mapstructure:"far"`
	CondorWingOffset float64    `mapstructure:"condor_wing_offset"`
	CondorWingWidth  float64    `mapstructure:"condor_wing_width"`
	CondorMinCredit  float64    `mapstructure:"condor_min_credit"`
}

// ZonePolicy drives strike selection for one distance zone. MaxDistance is
// the zone's upper cutoff in index points; Offset steps the short strike
// from the pin toward spot; Width separates the vertical's legs. Credits
// are dollars per spread; MaxCredit of zero disables the upper band.
type ZonePolicy struct {
	MaxDistance float64 `mapstructure:"max_distance"`
	Offset      float64 `mapstructure:"offset"`
	Width       float64 `mapstructure:"width"`
	MinCredit   float64 `mapstructure:"min_credit"`
	MaxCredit   float64 `mapstructure:"max_credit"`
}

// ExitConfig holds the exit state machine thresholds. All *Pct fields are
// percent points of entry credit (25 means 25%).
type ExitConfig struct {
	EmergencyStopPct    float64       `mapstructure:"emergency_stop_pct"`
	RegularStopPct      float64       `mapstructure:"regular_stop_pct"`
	TargetMinPct        float64       `mapstructure:"target_min_pct"`
	TargetMaxPct        float64       `mapstructure:"target_max_pct"`
	TrailingTriggerPct  float64       `mapstructure:"trailing_trigger_pct"`
	TrailingLockInPct   float64       `mapstructure:"trailing_lock_in_pct"`
	TrailingMinDistance float64       `mapstructure:"trailing_min_distance_pct"`
	HoldProfitPct       float64       `mapstructure:"hold_to_expiration_profit_pct"`
	HoldVolCeiling      float64       `mapstructure:"hold_to_expiration_vol_ceiling"`
	MaxHold             time.Duration `mapstructure:"max_hold"`
	StalenessWindow     time.Duration `mapstructure:"staleness_window"`
	StaleTickCeiling    int           `mapstructure:"stale_tick_ceiling"`
}

// CompetingConfig tunes the competing-peak decision. CutoffTime is local
// exchange time in HH:MM; past it a competing structure is skipped instead
// of converted to an iron condor.
type CompetingConfig struct {
	ScoreRatioThreshold float64 `mapstructure:"score_ratio_threshold"`
	CutoffTime          string  `mapstructure:"cutoff_time"`
	TopPeaks            int     `mapstructure:"top_peaks"`
}

type EngineConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	ExposureFrom    string        `mapstructure:"exposure_from"` // "volume" or "oi"
	Timezone        string        `mapstructure:"timezone"`
	JournalDir      string        `mapstructure:"journal_dir"`
	CompressJournal bool          `mapstructure:"compress_journal"`
}

type ServerConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	Addr          string  `mapstructure:"addr"`
	StreamPerSec  float64 `mapstructure:"stream_events_per_sec"`
	DecisionDepth int     `mapstructure:"decision_depth"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("tickers", []string{"SPX"})
	v.SetDefault("exit.emergency_stop_pct", 25.0)
	v.SetDefault("exit.regular_stop_pct", 15.0)
	v.SetDefault("exit.target_min_pct", 25.0)
	v.SetDefault("exit.target_max_pct", 60.0)
	v.SetDefault("exit.trailing_trigger_pct", 30.0)
	v.SetDefault("exit.trailing_lock_in_pct", 20.0)
	v.SetDefault("exit.trailing_min_distance_pct", 10.0)
	v.SetDefault("exit.hold_to_expiration_profit_pct", 80.0)
	v.SetDefault("exit.hold_to_expiration_vol_ceiling", 18.0)
	v.SetDefault("exit.max_hold", "6h30m")
	v.SetDefault("exit.staleness_window", "60s")
	v.SetDefault("exit.stale_tick_ceiling", 10)
	v.SetDefault("competing.score_ratio_threshold", 0.5)
	v.SetDefault("competing.cutoff_time", "12:00")
	v.SetDefault("competing.top_peaks", 2)
	v.SetDefault("engine.poll_interval", "15s")
	v.SetDefault("engine.exposure_from", "volume")
	v.SetDefault("engine.timezone", "America/New_York")
	v.SetDefault("engine.journal_dir", "journal")
	v.SetDefault("engine.compress_journal", false)
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8420")
	v.SetDefault("server.stream_events_per_sec", 20.0)
	v.SetDefault("server.decision_depth", 256)
	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("GEXPIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Fill unconfigured tickers from the built-in instrument table.
	if cfg.Instruments == nil {
		cfg.Instruments = map[string]InstrumentConfig{}
	}
	for _, ticker := range cfg.Tickers {
		if _, ok := cfg.Instruments[ticker]; !ok {
			if def, ok := DefaultInstruments[ticker]; ok {
				cfg.Instruments[ticker] = def
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Instrument returns the per-symbol configuration.
func (c *Config) Instrument(ticker string) (InstrumentConfig, bool) {
	ic, ok := c.Instruments[ticker]
	return ic, ok
}

// CutoffClock parses the competing cutoff into hour and minute.
func (c *CompetingConfig) CutoffClock() (hour, minute int, err error) {
	if _, scanErr := fmt.Sscanf(c.CutoffTime, "%d:%d", &hour, &minute); scanErr != nil {
		return 0, 0, fmt.Errorf("parsing cutoff_time %q: %w", c.CutoffTime, scanErr)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("cutoff_time %q out of range", c.CutoffTime)
	}
	return hour, minute, nil
}
