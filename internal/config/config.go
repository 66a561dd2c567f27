package config

import "time"

// Default configuration values.
const (
	defaultServiceName     = "perspective-modbot"
	defaultServiceVersion  = "1.0.0"
	defaultServicePort     = 8085
	defaultScorerBaseURL   = "https://commentanalyzer.googleapis.com/v1alpha1"
	defaultScorerWorkers   = 5
	defaultScorerQPS       = 10
	defaultQuotaRetryDelay = 5 * time.Second
	defaultLanguage        = "en"
	defaultRulesFile       = "rules.yaml"
	defaultDedupWindow     = 100
	defaultMaxBatchSize    = 100
	defaultMaxBatchDelay   = 5 * time.Minute
	defaultWaitDelta       = 12 * time.Hour
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
)

// Config holds all configuration for the moderation bot.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Scorer     ScorerConfig     `yaml:"scorer"`
	Moderation ModerationConfig `yaml:"moderation"`
	Reconcile  ReconcileConfig  `yaml:"reconcile"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// Port is the port of the optional stats/metrics HTTP server.
	Port int `env:"MODBOT_PORT" yaml:"port"`
	// APIEnabled starts the stats/metrics HTTP server alongside the pipeline.
	APIEnabled bool `env:"MODBOT_API_ENABLED" yaml:"api_enabled"`
	Debug      bool `env:"APP_DEBUG"          yaml:"debug"`
}

// ScorerConfig holds configuration for the toxicity scoring API client.
type ScorerConfig struct {
	BaseURL string `env:"PERSPECTIVE_BASE_URL" yaml:"base_url"`
	APIKey  string `env:"PERSPECTIVE_API_KEY"  yaml:"api_key"`
	// Workers bounds the number of concurrent scoring requests.
	Workers int `yaml:"workers"`
	// QPS limits the steady-state request rate to the scoring API.
	QPS int `yaml:"qps"`
	// QuotaRetryDelay is the fixed sleep between retries after an
	// out-of-quota (429) response.
	QuotaRetryDelay time.Duration `yaml:"quota_retry_delay"`
	// Language of the scored text. Empty lets the API auto-detect.
	Language   string `yaml:"language"`
	DoNotStore bool   `yaml:"do_not_store"`
}

// ModerationConfig holds the streaming/evaluation configuration.
type ModerationConfig struct {
	RulesFile string `env:"MODBOT_RULES_FILE" yaml:"rules_file"`
	Subreddit string `yaml:"subreddit"`
	OutputDir string `yaml:"output_dir"`
	// DedupWindow is the number of recent comment ids remembered to absorb
	// stream redelivery after reconnects.
	DedupWindow int `yaml:"dedup_window"`
	// ApplyActions controls whether fired rules trigger external side
	// effects. Requires moderator permissions on the target.
	ApplyActions bool `yaml:"apply_actions"`
}

// ReconcileConfig holds the reconciliation pipeline configuration.
type ReconcileConfig struct {
	// MaxBatchSize is capped by the status source's multi-get limit.
	MaxBatchSize int `yaml:"max_batch_size"`
	// MaxBatchDelay bounds how long a partial batch may sit unflushed.
	MaxBatchDelay time.Duration `yaml:"max_batch_delay"`
	// WaitDelta is the grace period after a comment's creation before its
	// moderation status is queried.
	WaitDelta time.Duration `yaml:"wait_delta"`
	// HasModCreds selects the status schema: moderator visibility exposes
	// authoritative approved/removed fields.
	HasModCreds bool `yaml:"has_mod_creds"`
	// DropUnreconciled drops records that never got a status response
	// instead of emitting them unaugmented.
	DropUnreconciled bool `yaml:"drop_unreconciled"`
	// StopAtEOF terminates the pipeline at end of input instead of tailing.
	StopAtEOF bool `yaml:"stop_at_eof"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL"  yaml:"level"`
	Format string `env:"LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from the specified path.
func Load(path string) (*Config, error) {
	return LoadFileWithDefaults[Config](path, SetDefaults)
}

// Default returns a config populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}

// SetDefaults applies default values to the config.
func SetDefaults(cfg *Config) {
	setServiceDefaults(&cfg.Service)
	setScorerDefaults(&cfg.Scorer)
	setModerationDefaults(&cfg.Moderation)
	setReconcileDefaults(&cfg.Reconcile)
	setLoggingDefaults(&cfg.Logging)
}

func setServiceDefaults(s *ServiceConfig) {
	if s.Name == "" {
		s.Name = defaultServiceName
	}
	if s.Version == "" {
		s.Version = defaultServiceVersion
	}
	if s.Port == 0 {
		s.Port = defaultServicePort
	}
}

func setScorerDefaults(s *ScorerConfig) {
	if s.BaseURL == "" {
		s.BaseURL = defaultScorerBaseURL
	}
	if s.Workers == 0 {
		s.Workers = defaultScorerWorkers
	}
	if s.QPS == 0 {
		s.QPS = defaultScorerQPS
	}
	if s.QuotaRetryDelay == 0 {
		s.QuotaRetryDelay = defaultQuotaRetryDelay
	}
	if s.Language == "" {
		s.Language = defaultLanguage
	}
}

func setModerationDefaults(m *ModerationConfig) {
	if m.RulesFile == "" {
		m.RulesFile = defaultRulesFile
	}
	if m.DedupWindow == 0 {
		m.DedupWindow = defaultDedupWindow
	}
}

func setReconcileDefaults(r *ReconcileConfig) {
	if r.MaxBatchSize == 0 {
		r.MaxBatchSize = defaultMaxBatchSize
	}
	if r.MaxBatchDelay == 0 {
		r.MaxBatchDelay = defaultMaxBatchDelay
	}
	if r.WaitDelta == 0 {
		r.WaitDelta = defaultWaitDelta
	}
}

func setLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = defaultLogLevel
	}
	if l.Format == "" {
		l.Format = defaultLogFormat
	}
}
