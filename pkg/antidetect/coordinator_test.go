package antidetect_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/calewin/fieldhand/pkg/antidetect"
	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/log"
	"github.com/calewin/fieldhand/pkg/session"
	"github.com/calewin/fieldhand/pkg/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

// fastConfig disables the timing subsystems so tests only exercise the
// detection and rotation plumbing.
func fastConfig() core.AntiDetectConfig {
	var cfg core.AntiDetectConfig
	cfg.RateLimit.Enabled = boolPtr(false)
	cfg.HumanTiming.Enabled = boolPtr(false)
	cfg.Blocking.RecoveryWait = 10 * time.Millisecond
	cfg.Captcha.RecoveryWait = 10 * time.Millisecond
	return cfg
}

func newCoordinator(t *testing.T, cfg core.AntiDetectConfig, sess *sessiontest.Session) (*antidetect.Coordinator, *session.Manager) {
	t.Helper()
	manager := session.NewManager(sessiontest.Factory(sess), session.ManagerConfig{}, log.Nop())
	t.Cleanup(func() { _ = manager.Close(context.Background()) })
	return antidetect.NewCoordinator(cfg, manager, log.Nop()), manager
}

func TestPreActionSkipsPureTransforms(t *testing.T) {
	sess := sessiontest.New()
	coord, manager := newCoordinator(t, fastConfig(), sess)

	require.NoError(t, coord.PreAction(context.Background(), "transform_value"))
	require.NoError(t, coord.PreAction(context.Background(), "parse_weight"))
	assert.Equal(t, 0, manager.RequestCount(), "transforms never count toward rotation")
}

func TestPreActionCountsSessionActions(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{URL: "https://example.com", Source: "ok"})
	coord, manager := newCoordinator(t, fastConfig(), sess)

	require.NoError(t, coord.PreAction(context.Background(), "navigate"))
	require.NoError(t, coord.PreAction(context.Background(), "extract_single"))
	assert.Equal(t, 2, manager.RequestCount())
}

func TestPreActionBlockingDetected(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{URL: "https://example.com/blocked", Source: "access denied"})
	coord, _ := newCoordinator(t, fastConfig(), sess)

	err := coord.PreAction(context.Background(), "navigate")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrBlockingDetected))
	assert.True(t, coord.ManualInterventionNeeded())
}

func TestPreActionCaptchaOnInputText(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{URL: "https://example.com", Source: "verify you are human"})
	coord, _ := newCoordinator(t, fastConfig(), sess)

	// input_text is challenge-prone but not page-mutating, so only the
	// CAPTCHA detector fires.
	err := coord.PreAction(context.Background(), "input_text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCaptchaDetected))
}

func TestPreActionRecoversWithResolver(t *testing.T) {
	captchaPage := &sessiontest.Page{URL: "https://example.com", Source: "verify you are human"}
	cleanPage := &sessiontest.Page{URL: "https://example.com", Source: "ok"}
	sess := sessiontest.New()
	sess.SetCurrent(captchaPage)

	coord, _ := newCoordinator(t, fastConfig(), sess)
	coord.SetCaptchaResolver(func(ctx context.Context, s session.Session) error {
		sess.SetCurrent(cleanPage)
		return nil
	})

	require.NoError(t, coord.PreAction(context.Background(), "login"))
	assert.False(t, coord.ManualInterventionNeeded())
}

func TestPreActionDetectionDisabled(t *testing.T) {
	cfg := fastConfig()
	cfg.Blocking.Enabled = boolPtr(false)
	cfg.Captcha.Enabled = boolPtr(false)

	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{URL: "https://example.com/blocked", Source: "access denied"})
	coord, _ := newCoordinator(t, cfg, sess)

	require.NoError(t, coord.PreAction(context.Background(), "navigate"))
}

func TestPostActionFeedsBackoff(t *testing.T) {
	sess := sessiontest.New()
	coord, _ := newCoordinator(t, fastConfig(), sess)

	coord.PostAction(context.Background(), "navigate", false)
	coord.PostAction(context.Background(), "click", false)
	assert.Equal(t, 2, coord.RateLimiter().Failures())

	coord.PostAction(context.Background(), "navigate", true)
	assert.Equal(t, 1, coord.RateLimiter().Failures())

	// Pure transforms never touch the backoff.
	coord.PostAction(context.Background(), "transform_value", false)
	assert.Equal(t, 1, coord.RateLimiter().Failures())
}

func TestOnErrorClassification(t *testing.T) {
	cleanSess := sessiontest.New()
	cleanSess.SetCurrent(&sessiontest.Page{URL: "https://example.com", Source: "ok"})

	testCases := []struct {
		name       string
		err        error
		retryCount int
		retryable  bool
	}{
		{"retry budget exhausted", core.ErrCaptchaDetected, 2, false},
		{"captcha clears on recheck", core.ErrCaptchaDetected, 0, true},
		{"blocking clears on recheck", core.ErrBlockingDetected, 0, true},
		{"timeout gets one more try", context.DeadlineExceeded, 0, true},
		{"timeout by message", errors.New("navigation timeout exceeded"), 0, true},
		{"captcha by message", errors.New("page shows a captcha widget"), 0, true},
		{"ordinary failure", errors.New("element not found"), 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			coord, _ := newCoordinator(t, fastConfig(), cleanSess)
			got := coord.OnError(context.Background(), tc.err, "navigate", tc.retryCount)
			assert.Equal(t, tc.retryable, got)
		})
	}
}

func TestOnErrorUnrecoveredDetection(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{URL: "https://example.com", Source: "verify you are human"})
	coord, _ := newCoordinator(t, fastConfig(), sess)

	retryable := coord.OnError(context.Background(), core.ErrCaptchaDetected, "navigate", 0)
	assert.False(t, retryable, "a challenge that persists through recovery is terminal")
	assert.True(t, coord.ManualInterventionNeeded())
}
