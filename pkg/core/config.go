package core

import "time"

// Default anti-detection and circuit breaker thresholds. These apply whenever
// the workflow file leaves a knob unset.
const (
	DefaultMinDelay              = 2 * time.Second
	DefaultMaxDelay              = 30 * time.Second
	DefaultRotationInterval      = 50
	DefaultMaxSessionAge         = 30 * time.Minute
	DefaultMaxRetriesOnDetection = 2
	DefaultRecoveryWait          = 20 * time.Second
	DefaultBreakerThreshold      = 3
	DefaultBreakerRecovery       = 60 * time.Second
)

// RateLimitConfig bounds the delay injected between actions.
type RateLimitConfig struct {
	Enabled  *bool         `yaml:"enabled,omitempty"`
	MinDelay time.Duration `yaml:"min_delay,omitempty"`
	MaxDelay time.Duration `yaml:"max_delay,omitempty"`
}

// HumanTimingConfig toggles randomized pre/post-action pauses.
type HumanTimingConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// DetectionConfig configures a page-state detector (blocking or CAPTCHA).
// Markers extend the built-in heuristics rather than replacing them.
type DetectionConfig struct {
	Enabled      *bool         `yaml:"enabled,omitempty"`
	Phrases      []string      `yaml:"phrases,omitempty"`
	URLPatterns  []string      `yaml:"url_patterns,omitempty"`
	Selectors    []string      `yaml:"selectors,omitempty"`
	RecoveryWait time.Duration `yaml:"recovery_wait,omitempty"`
}

// RotationConfig controls when the automation session is replaced with a
// fresh identity.
type RotationConfig struct {
	Enabled          *bool         `yaml:"enabled,omitempty"`
	RotationInterval int           `yaml:"rotation_interval,omitempty"`
	MaxSessionAge    time.Duration `yaml:"max_session_age,omitempty"`
}

// AntiDetectConfig enumerates the resilience submodules and their thresholds.
// It is immutable for the lifetime of a session.
type AntiDetectConfig struct {
	RateLimit             RateLimitConfig   `yaml:"rate_limit,omitempty"`
	HumanTiming           HumanTimingConfig `yaml:"human_timing,omitempty"`
	Blocking              DetectionConfig   `yaml:"blocking,omitempty"`
	Captcha               DetectionConfig   `yaml:"captcha,omitempty"`
	Rotation              RotationConfig    `yaml:"rotation,omitempty"`
	MaxRetriesOnDetection int               `yaml:"max_retries_on_detection,omitempty"`
}

// BreakerConfig configures the per-target circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold,omitempty"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout,omitempty"`
}

func enabled(flag *bool) bool {
	return flag == nil || *flag
}

// RateLimitEnabled reports whether inter-action delays are active.
func (c AntiDetectConfig) RateLimitEnabled() bool { return enabled(c.RateLimit.Enabled) }

// HumanTimingEnabled reports whether randomized pacing is active.
func (c AntiDetectConfig) HumanTimingEnabled() bool { return enabled(c.HumanTiming.Enabled) }

// BlockingEnabled reports whether blocked-page detection is active.
func (c AntiDetectConfig) BlockingEnabled() bool { return enabled(c.Blocking.Enabled) }

// CaptchaEnabled reports whether CAPTCHA detection is active.
func (c AntiDetectConfig) CaptchaEnabled() bool { return enabled(c.Captcha.Enabled) }

// RotationEnabled reports whether session rotation is active.
func (c AntiDetectConfig) RotationEnabled() bool { return enabled(c.Rotation.Enabled) }

// Normalize fills in defaults for any unset thresholds.
func (c *AntiDetectConfig) Normalize() {
	if c.RateLimit.MinDelay <= 0 {
		c.RateLimit.MinDelay = DefaultMinDelay
	}
	if c.RateLimit.MaxDelay <= 0 {
		c.RateLimit.MaxDelay = DefaultMaxDelay
	}
	if c.RateLimit.MaxDelay < c.RateLimit.MinDelay {
		c.RateLimit.MaxDelay = c.RateLimit.MinDelay
	}
	if c.Blocking.RecoveryWait <= 0 {
		c.Blocking.RecoveryWait = DefaultRecoveryWait
	}
	if c.Captcha.RecoveryWait <= 0 {
		c.Captcha.RecoveryWait = DefaultRecoveryWait
	}
	if c.Rotation.RotationInterval <= 0 {
		c.Rotation.RotationInterval = DefaultRotationInterval
	}
	if c.Rotation.MaxSessionAge <= 0 {
		c.Rotation.MaxSessionAge = DefaultMaxSessionAge
	}
	if c.MaxRetriesOnDetection <= 0 {
		c.MaxRetriesOnDetection = DefaultMaxRetriesOnDetection
	}
}

// Normalize fills in defaults for any unset thresholds.
func (c *BreakerConfig) Normalize() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultBreakerThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = DefaultBreakerRecovery
	}
}
