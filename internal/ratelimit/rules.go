package ratelimit

import (
	"time"

	"github.com/Proton-105/giftshop-bot/pkg/config"
)

// Rules encapsulates the configured per-user limit and whitelist.
type Rules struct {
	enabled   bool
	limit     int
	window    time.Duration
	whitelist map[int64]struct{}
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	whitelist := make(map[int64]struct{}, len(cfg.Whitelist))
	for _, id := range cfg.Whitelist {
		whitelist[id] = struct{}{}
	}

	return &Rules{
		enabled:   cfg.Enabled,
		limit:     cfg.Requests,
		window:    cfg.Window,
		whitelist: whitelist,
	}
}

// Enabled reports whether limiting should be applied at all.
func (r *Rules) Enabled() bool {
	return r != nil && r.enabled && r.limit > 0 && r.window > 0
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	if r == nil {
		return false
	}
	_, ok := r.whitelist[userID]
	return ok
}

// PerUser returns the per-user request budget and its window.
func (r *Rules) PerUser() (int, time.Duration) {
	return r.limit, r.window
}
