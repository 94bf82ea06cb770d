package config

import (
	"fmt"
	"strings"
)

// Validate checks the config for out-of-range settings, collecting every
// problem before failing.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.ListenAddr == "" {
		errs = append(errs, "listen_addr is required")
	}
	if cfg.TTL.EmailMs <= 0 {
		errs = append(errs, "ttl.email_ms must be positive")
	}
	if cfg.TTL.PhoneMs <= 0 {
		errs = append(errs, "ttl.phone_ms must be positive")
	}
	if cfg.TTL.CardMs <= 0 {
		errs = append(errs, "ttl.card_ms must be positive")
	}
	if cfg.Sync.PollIntervalMs <= 0 {
		errs = append(errs, "sync.poll_interval_ms must be positive")
	}
	if cfg.Sync.RequestTimeoutMs <= 0 {
		errs = append(errs, "sync.request_timeout_ms must be positive")
	}
	if cfg.Simulation.SMSMinMs > cfg.Simulation.SMSMaxMs {
		errs = append(errs, "simulation.sms_min_ms must not exceed sms_max_ms")
	}
	if cfg.Simulation.TxMinMs > cfg.Simulation.TxMaxMs {
		errs = append(errs, "simulation.tx_min_ms must not exceed tx_max_ms")
	}
	if cfg.Stream.Buffer <= 0 {
		errs = append(errs, "stream.buffer must be positive")
	}
	if cfg.RateLimit.PerSecond <= 0 {
		errs = append(errs, "rate_limit.per_second must be positive")
	}
	if cfg.RateLimit.Burst <= 0 {
		errs = append(errs, "rate_limit.burst must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
