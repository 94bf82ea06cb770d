package config

import "time"

// Config is the top-level YAML structure.
type Config struct {
	ListenAddr         string         `yaml:"listen_addr"`
	CORSAllowedOrigins []string       `yaml:"cors_allowed_origins"`
	CronSecret         string         `yaml:"cron_secret"`
	DatabaseDSN        string         `yaml:"database_dsn"`
	Providers          ProvidersConf  `yaml:"providers"`
	TTL                TTLConf        `yaml:"ttl"`
	Sync               SyncConf       `yaml:"sync"`
	Simulation         SimulationConf `yaml:"simulation"`
	Stream             StreamConf     `yaml:"stream"`
	RateLimit          RateLimitConf  `yaml:"rate_limit"`
}

// ProvidersConf selects the external provider variants. A variant is
// external exactly when its credentials/enable flag is present; the choice
// is made once at startup.
type ProvidersConf struct {
	MailTM  MailTMConf  `yaml:"mailtm"`
	Issuing IssuingConf `yaml:"issuing"`
	// SimulatedDomain is the address domain used by the simulated mail
	// variant.
	SimulatedDomain string `yaml:"simulated_domain"`
}

// MailTMConf configures the external mail provider.
type MailTMConf struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// IssuingConf configures the external card provider. A non-empty
// secret_key enables it.
type IssuingConf struct {
	SecretKey string `yaml:"secret_key"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// TTLConf holds per-kind resource lifetimes in milliseconds. Changes apply
// to resources created after the change.
type TTLConf struct {
	EmailMs int64 `yaml:"email_ms"`
	PhoneMs int64 `yaml:"phone_ms"`
	CardMs  int64 `yaml:"card_ms"`
}

func (c TTLConf) Email() time.Duration { return time.Duration(c.EmailMs) * time.Millisecond }
func (c TTLConf) Phone() time.Duration { return time.Duration(c.PhoneMs) * time.Millisecond }
func (c TTLConf) Card() time.Duration  { return time.Duration(c.CardMs) * time.Millisecond }

// SyncConf tunes the background inbox poller.
type SyncConf struct {
	PollIntervalMs   int `yaml:"poll_interval_ms"`
	RequestTimeoutMs int `yaml:"request_timeout_ms"`
}

func (c SyncConf) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c SyncConf) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// SimulationConf bounds the randomized synthetic event intervals. The
// generator runs unless explicitly disabled.
type SimulationConf struct {
	Disabled bool `yaml:"disabled"`
	SMSMinMs int  `yaml:"sms_min_ms"`
	SMSMaxMs int  `yaml:"sms_max_ms"`
	TxMinMs  int  `yaml:"tx_min_ms"`
	TxMaxMs  int  `yaml:"tx_max_ms"`
}

func (c SimulationConf) SMSMin() time.Duration { return time.Duration(c.SMSMinMs) * time.Millisecond }
func (c SimulationConf) SMSMax() time.Duration { return time.Duration(c.SMSMaxMs) * time.Millisecond }
func (c SimulationConf) TxMin() time.Duration  { return time.Duration(c.TxMinMs) * time.Millisecond }
func (c SimulationConf) TxMax() time.Duration  { return time.Duration(c.TxMaxMs) * time.Millisecond }

// StreamConf tunes the realtime channel.
type StreamConf struct {
	// Buffer is the per-subscriber channel capacity; a full buffer drops
	// frames rather than blocking publishers.
	Buffer int `yaml:"buffer"`
}

// RateLimitConf tunes the per-IP API rate limiter.
type RateLimitConf struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}
