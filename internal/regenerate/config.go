package regenerate

import (
	"fmt"
	"strings"
	"time"
)

// DefaultAutoRetryKeywords are matched case-insensitively against failure messages.
var DefaultAutoRetryKeywords = []string{
	"timeout",
	"network",
	"rate_limit",
	"service_unavailable",
	"internal_error",
}

// Config controls the retry policy.
type Config struct {
	// MaxRetries is the number of additional attempts after the first one.
	MaxRetries        int
	EnableAutoRetry   bool
	AutoRetryKeywords []string
	RetryDelay        time.Duration
}

// DefaultConfig returns the standard policy: three retries, one second apart.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		EnableAutoRetry:   true,
		AutoRetryKeywords: append([]string(nil), DefaultAutoRetryKeywords...),
		RetryDelay:        time.Second,
	}
}

// Validate rejects negative bounds.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0, got %s", c.RetryDelay)
	}
	return nil
}

// MaxAttempts is the total attempt bound for one chain.
func (c Config) MaxAttempts() int {
	return c.MaxRetries + 1
}

func (c Config) normalized() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	src := c.AutoRetryKeywords
	if src == nil {
		// nil means unset; an empty non-nil list disables keyword retries.
		src = DefaultAutoRetryKeywords
	}
	kw := make([]string, 0, len(src))
	for _, k := range src {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kw = append(kw, k)
		}
	}
	c.AutoRetryKeywords = kw
	return c
}

// IsRetryable reports whether a failure at attempt may be retried.
func (c Config) IsRetryable(errMsg string, attempt int) bool {
	if !c.EnableAutoRetry || attempt >= c.MaxAttempts() {
		return false
	}
	return matchesKeyword(errMsg, c.AutoRetryKeywords)
}

func matchesKeyword(errMsg string, keywords []string) bool {
	lower := strings.ToLower(errMsg)
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
