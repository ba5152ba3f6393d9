package antidetect

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/session"
)

// pageMutatingActions are the actions after which the page may have changed
// state, warranting blocking inspection.
var pageMutatingActions = map[string]bool{
	"navigate": true,
	"click":    true,
}

// challengeProneActions additionally cover the inputs that anti-bot systems
// watch for CAPTCHA triggering.
var challengeProneActions = map[string]bool{
	"navigate":   true,
	"click":      true,
	"input_text": true,
	"login":      true,
}

// sessionActions touch the live browser session. Pure transforms are not
// rate limited, paced, or counted against rotation: they never emit network
// traffic, so delaying them only slows the batch without reducing the
// detection surface.
var sessionActions = map[string]bool{
	"navigate":         true,
	"wait_for":         true,
	"extract_single":   true,
	"extract_multiple": true,
	"input_text":       true,
	"click":            true,
	"login":            true,
	"conditional":      true,
}

// Coordinator composes the rate limiter, human-timing pacer, detectors, and
// session manager into the pre/post/error hooks the executor calls around
// every step.
type Coordinator struct {
	cfg      core.AntiDetectConfig
	rate     *RateLimiter
	pacer    *Pacer
	block    *Detector
	captcha  *Detector
	sessions *session.Manager
	logger   core.Logger
}

func NewCoordinator(cfg core.AntiDetectConfig, sessions *session.Manager, logger core.Logger) *Coordinator {
	cfg.Normalize()
	return &Coordinator{
		cfg:      cfg,
		rate:     NewRateLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.MaxDelay),
		pacer:    NewPacer(cfg.HumanTimingEnabled()),
		block:    NewBlockDetector(cfg.Blocking, logger),
		captcha:  NewCaptchaDetector(cfg.Captcha, logger),
		sessions: sessions,
		logger:   logger,
	}
}

// RateLimiter exposes the underlying limiter, mainly for tests and metrics.
func (c *Coordinator) RateLimiter() *RateLimiter { return c.rate }

// Pacer exposes the underlying pacer so callers can scale pauses.
func (c *Coordinator) Pacer() *Pacer { return c.pacer }

// SetCaptchaResolver installs the CAPTCHA resolution hook.
func (c *Coordinator) SetCaptchaResolver(r Resolver) { c.captcha.SetResolver(r) }

// PreAction runs before a step executes. A nil return means proceed; an
// ErrBlockingDetected or ErrCaptchaDetected return means the executor must
// abort this item.
func (c *Coordinator) PreAction(ctx context.Context, action string) error {
	if !sessionActions[action] {
		return nil
	}

	if c.cfg.RateLimitEnabled() {
		if err := c.rate.Wait(ctx); err != nil {
			return err
		}
	}

	if err := c.pacer.PreAction(ctx, action); err != nil {
		return err
	}

	if c.cfg.BlockingEnabled() && pageMutatingActions[action] {
		if err := c.checkDetector(ctx, c.block, core.ErrBlockingDetected); err != nil {
			return err
		}
	}

	if c.cfg.CaptchaEnabled() && challengeProneActions[action] {
		if err := c.checkDetector(ctx, c.captcha, core.ErrCaptchaDetected); err != nil {
			return err
		}
	}

	if c.cfg.RotationEnabled() {
		if err := c.sessions.RecordRequest(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (c *Coordinator) checkDetector(ctx context.Context, d *Detector, sentinel error) error {
	sess, err := c.sessions.Current(ctx)
	if err != nil {
		return err
	}
	detected, err := d.Inspect(ctx, sess)
	if err != nil {
		return err
	}
	if !detected {
		return nil
	}
	cleared, err := d.Recover(ctx, sess)
	if err != nil {
		return err
	}
	if !cleared {
		return fmt.Errorf("%w: unresolved after recovery", sentinel)
	}
	return nil
}

// PostAction runs after a step finishes. It injects the post-action pause
// and feeds the outcome into the rate limiter's backoff.
func (c *Coordinator) PostAction(ctx context.Context, action string, success bool) {
	if !sessionActions[action] {
		return
	}
	if success {
		c.rate.RecordSuccess()
	} else {
		c.rate.RecordFailure()
	}
	if err := c.pacer.PostAction(ctx, action); err != nil {
		c.logger.Debug().Err(err).Msg("Post-action pause interrupted")
	}
}

// OnError classifies a failure, dispatches it to the matching detector's
// recovery path, and reports whether the caller may retry the item.
func (c *Coordinator) OnError(ctx context.Context, actionErr error, action string, retryCount int) bool {
	if retryCount >= c.cfg.MaxRetriesOnDetection {
		return false
	}

	msg := strings.ToLower(actionErr.Error())
	switch {
	case errors.Is(actionErr, core.ErrCaptchaDetected) || strings.Contains(msg, "captcha"):
		return c.recoverFrom(ctx, c.captcha)
	case errors.Is(actionErr, core.ErrBlockingDetected) ||
		strings.Contains(msg, "blocked") ||
		strings.Contains(msg, "banned") ||
		strings.Contains(msg, "access denied"):
		return c.recoverFrom(ctx, c.block)
	case errors.Is(actionErr, context.DeadlineExceeded) || strings.Contains(msg, "timeout"):
		// Plain timeouts are worth one more attempt without recovery.
		return true
	default:
		return false
	}
}

func (c *Coordinator) recoverFrom(ctx context.Context, d *Detector) bool {
	sess, err := c.sessions.Current(ctx)
	if err != nil {
		return false
	}
	cleared, err := d.Recover(ctx, sess)
	if err != nil {
		return false
	}
	return cleared
}

// ManualInterventionNeeded reports whether any detector gave up on automatic
// recovery during the run.
func (c *Coordinator) ManualInterventionNeeded() bool {
	return c.block.ManualInterventionNeeded || c.captcha.ManualInterventionNeeded
}
