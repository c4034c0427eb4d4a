package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every process-level setting. Reconciliation and rating carry
// the tunables that were magic constants in earlier iterations; they ship
// with working defaults so a near-empty file is a valid config in development.
type Config struct {
	Postgres       PostgresConfig       `yaml:"postgres"`
	NATS           NATSConfig           `yaml:"nats"`
	LogService     LogServiceConfig     `yaml:"log_service"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Rating         RatingConfig         `yaml:"rating"`
	Admin          AdminConfig          `yaml:"admin"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// LogServiceConfig points at the external match-record index.
type LogServiceConfig struct {
	BaseURL        string        `yaml:"base_url"`
	UploaderID     string        `yaml:"uploader_id"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`
}

// ReconciliationConfig tunes the search/queue sweeps.
type ReconciliationConfig struct {
	SearchInterval     time.Duration    `yaml:"search_interval"`
	QueueInterval      time.Duration    `yaml:"queue_interval"`
	SearchHorizon      time.Duration    `yaml:"search_horizon"`
	QueueCeiling       time.Duration    `yaml:"queue_ceiling"`
	ClockSkewTolerance time.Duration    `yaml:"clock_skew_tolerance"`
	RosterOverlapRatio float64          `yaml:"roster_overlap_ratio"`
	SearchLimit        int              `yaml:"search_limit"`
	Completion         []CompletionRule `yaml:"completion"`
}

// CompletionRule decides when a record counts as finished for maps whose name
// starts with Prefix. An empty prefix is the fallback rule.
type CompletionRule struct {
	Prefix          string        `yaml:"prefix"`
	ScoreTarget     int           `yaml:"score_target"`
	DurationCeiling time.Duration `yaml:"duration_ceiling"`
}

// RatingConfig holds the rating-curve constants.
type RatingConfig struct {
	Scale               float64       `yaml:"scale"`
	BaseMagnitude       float64       `yaml:"base_magnitude"`
	ShutoutMultiplier   float64       `yaml:"shutout_multiplier"`
	ShortMatchThreshold time.Duration `yaml:"short_match_threshold"`
}

// AdminConfig configures the read-only admin HTTP surface.
type AdminConfig struct {
	Address   string `yaml:"address"`
	JWTSecret string `yaml:"jwt_secret"`
}

// ObservabilityConfig holds configuration for observability components.
type ObservabilityConfig struct {
	ServiceName    string `yaml:"service_name"`
	Environment    string `yaml:"environment"`
	MetricsAddress string `yaml:"metrics_address"`
	LogLevel       string `yaml:"log_level"`
}

// LoadConfig loads configuration from a YAML file, tolerating a missing file,
// then applies environment overrides and defaults.
func LoadConfig(filename string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("postgres DSN not set (config file or DATABASE_URL)")
	}
	if cfg.NATS.URL == "" {
		return nil, fmt.Errorf("NATS URL not set (config file or NATS_URL)")
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("LOG_SERVICE_URL"); v != "" {
		cfg.LogService.BaseURL = v
	}
	if v := os.Getenv("LOG_SERVICE_UPLOADER_ID"); v != "" {
		cfg.LogService.UploaderID = v
	}
	if v := os.Getenv("ADMIN_ADDRESS"); v != "" {
		cfg.Admin.Address = v
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("SEARCH_HORIZON"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reconciliation.SearchHorizon = d
		}
	}
	if v := os.Getenv("QUEUE_CEILING"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reconciliation.QueueCeiling = d
		}
	}
	if v := os.Getenv("RATING_SCALE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Rating.Scale = f
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.LogService.BaseURL == "" {
		cfg.LogService.BaseURL = "https://logs.tf/api/v1"
	}
	if cfg.LogService.RequestTimeout == 0 {
		cfg.LogService.RequestTimeout = 10 * time.Second
	}
	if cfg.LogService.RequestsPerSec == 0 {
		cfg.LogService.RequestsPerSec = 2
	}

	r := &cfg.Reconciliation
	if r.SearchInterval == 0 {
		r.SearchInterval = time.Minute
	}
	if r.QueueInterval == 0 {
		r.QueueInterval = 2 * time.Minute
	}
	if r.SearchHorizon == 0 {
		r.SearchHorizon = 6 * time.Hour
	}
	if r.QueueCeiling == 0 {
		r.QueueCeiling = time.Hour
	}
	if r.ClockSkewTolerance == 0 {
		r.ClockSkewTolerance = 240 * time.Second
	}
	if r.RosterOverlapRatio == 0 {
		r.RosterOverlapRatio = 0.5
	}
	if r.SearchLimit == 0 {
		r.SearchLimit = 10
	}
	if len(r.Completion) == 0 {
		r.Completion = DefaultCompletionRules()
	}

	rt := &cfg.Rating
	if rt.Scale == 0 {
		rt.Scale = 300
	}
	if rt.BaseMagnitude == 0 {
		rt.BaseMagnitude = 40
	}
	if rt.ShutoutMultiplier == 0 {
		rt.ShutoutMultiplier = 1.2
	}
	if rt.ShortMatchThreshold == 0 {
		rt.ShortMatchThreshold = 25 * time.Minute
	}

	if cfg.Admin.Address == "" {
		cfg.Admin.Address = ":8080"
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "pugbot"
	}
	if cfg.Observability.MetricsAddress == "" {
		cfg.Observability.MetricsAddress = ":9090"
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
}

// duration lets YAML carry values like "6h" or "240s"; yaml.v3 has no native
// decoding into time.Duration.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" || value.Value == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = duration(parsed)
	return nil
}

func (c *LogServiceConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BaseURL        string   `yaml:"base_url"`
		UploaderID     string   `yaml:"uploader_id"`
		RequestTimeout duration `yaml:"request_timeout"`
		RequestsPerSec float64  `yaml:"requests_per_sec"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = LogServiceConfig{
		BaseURL:        raw.BaseURL,
		UploaderID:     raw.UploaderID,
		RequestTimeout: time.Duration(raw.RequestTimeout),
		RequestsPerSec: raw.RequestsPerSec,
	}
	return nil
}

func (r *ReconciliationConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		SearchInterval     duration         `yaml:"search_interval"`
		QueueInterval      duration         `yaml:"queue_interval"`
		SearchHorizon      duration         `yaml:"search_horizon"`
		QueueCeiling       duration         `yaml:"queue_ceiling"`
		ClockSkewTolerance duration         `yaml:"clock_skew_tolerance"`
		RosterOverlapRatio float64          `yaml:"roster_overlap_ratio"`
		SearchLimit        int              `yaml:"search_limit"`
		Completion         []CompletionRule `yaml:"completion"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*r = ReconciliationConfig{
		SearchInterval:     time.Duration(raw.SearchInterval),
		QueueInterval:      time.Duration(raw.QueueInterval),
		SearchHorizon:      time.Duration(raw.SearchHorizon),
		QueueCeiling:       time.Duration(raw.QueueCeiling),
		ClockSkewTolerance: time.Duration(raw.ClockSkewTolerance),
		RosterOverlapRatio: raw.RosterOverlapRatio,
		SearchLimit:        raw.SearchLimit,
		Completion:         raw.Completion,
	}
	return nil
}

func (c *CompletionRule) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Prefix          string   `yaml:"prefix"`
		ScoreTarget     int      `yaml:"score_target"`
		DurationCeiling duration `yaml:"duration_ceiling"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = CompletionRule{
		Prefix:          raw.Prefix,
		ScoreTarget:     raw.ScoreTarget,
		DurationCeiling: time.Duration(raw.DurationCeiling),
	}
	return nil
}

func (r *RatingConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Scale               float64  `yaml:"scale"`
		BaseMagnitude       float64  `yaml:"base_magnitude"`
		ShutoutMultiplier   float64  `yaml:"shutout_multiplier"`
		ShortMatchThreshold duration `yaml:"short_match_threshold"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*r = RatingConfig{
		Scale:               raw.Scale,
		BaseMagnitude:       raw.BaseMagnitude,
		ShutoutMultiplier:   raw.ShutoutMultiplier,
		ShortMatchThreshold: time.Duration(raw.ShortMatchThreshold),
	}
	return nil
}

// DefaultCompletionRules is the stock map-type table: symmetric control-point
// maps race to five caps, king-of-the-hill to four rounds, payload and other
// objective maps get a longer natural-course ceiling.
func DefaultCompletionRules() []CompletionRule {
	return []CompletionRule{
		{Prefix: "cp_", ScoreTarget: 5, DurationCeiling: 30 * time.Minute},
		{Prefix: "koth_", ScoreTarget: 4, DurationCeiling: 30 * time.Minute},
		{Prefix: "pl_", ScoreTarget: 3, DurationCeiling: 45 * time.Minute},
		{Prefix: "", ScoreTarget: 5, DurationCeiling: 30 * time.Minute},
	}
}
