package antidetect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/session"
)

// Built-in markers. Workflow configuration extends these, never replaces
// them.
var (
	blockingPhrases = []string{
		"access denied",
		"you have been blocked",
		"your access to this site has been limited",
		"rate limited",
		"too many requests",
		"unusual traffic",
		"403 forbidden",
	}
	blockingURLPatterns = []string{"/blocked", "/denied", "/access-denied"}

	captchaPhrases = []string{
		"verify you are human",
		"are you a robot",
		"complete the security check",
		"please complete the captcha",
		"prove you are not a robot",
	}
	captchaURLPatterns = []string{"captcha", "/challenge"}
	captchaSelectors   = []string{
		`iframe[src*="recaptcha"]`,
		`iframe[src*="hcaptcha"]`,
		`.g-recaptcha`,
		`.h-captcha`,
		`#captcha`,
		`[class*="captcha"]`,
	}
)

// Resolver attempts to clear a detected challenge. The default resolver is a
// bounded wait; real solving capabilities plug in here.
type Resolver func(ctx context.Context, sess session.Session) error

// Detector classifies the current page against a marker set and runs a
// bounded recovery when it matches.
type Detector struct {
	kind         string
	phrases      []string
	urlPatterns  []string
	selectors    []string
	recoveryWait time.Duration
	resolver     Resolver
	logger       core.Logger

	// ManualInterventionNeeded is set when recovery gives up. The caller
	// surfaces it to an operator; the engine keeps going with other items.
	ManualInterventionNeeded bool
}

// NewBlockDetector builds a detector for blocked/denied pages.
func NewBlockDetector(cfg core.DetectionConfig, logger core.Logger) *Detector {
	return &Detector{
		kind:         "blocking",
		phrases:      append(append([]string{}, blockingPhrases...), cfg.Phrases...),
		urlPatterns:  append(append([]string{}, blockingURLPatterns...), cfg.URLPatterns...),
		selectors:    cfg.Selectors,
		recoveryWait: cfg.RecoveryWait,
		logger:       logger,
	}
}

// NewCaptchaDetector builds a detector for CAPTCHA challenges.
func NewCaptchaDetector(cfg core.DetectionConfig, logger core.Logger) *Detector {
	return &Detector{
		kind:         "captcha",
		phrases:      append(append([]string{}, captchaPhrases...), cfg.Phrases...),
		urlPatterns:  append(append([]string{}, captchaURLPatterns...), cfg.URLPatterns...),
		selectors:    append(append([]string{}, captchaSelectors...), cfg.Selectors...),
		recoveryWait: cfg.RecoveryWait,
		logger:       logger,
	}
}

// SetResolver installs a custom resolution hook.
func (d *Detector) SetResolver(r Resolver) {
	d.resolver = r
}

// Inspect classifies the current page. URL patterns are checked first since
// they are cheapest, then page content, then marker selectors.
func (d *Detector) Inspect(ctx context.Context, sess session.Session) (bool, error) {
	url, err := sess.CurrentURL(ctx)
	if err != nil {
		return false, fmt.Errorf("%s inspection: %w", d.kind, err)
	}
	lowerURL := strings.ToLower(url)
	for _, pattern := range d.urlPatterns {
		if strings.Contains(lowerURL, pattern) {
			d.logger.Warn().Str("url", url).Str("marker", pattern).Msgf("Detected %s page by URL", d.kind)
			return true, nil
		}
	}

	source, err := sess.PageSource(ctx)
	if err != nil {
		return false, fmt.Errorf("%s inspection: %w", d.kind, err)
	}
	lowerSource := strings.ToLower(source)
	for _, phrase := range d.phrases {
		if strings.Contains(lowerSource, phrase) {
			d.logger.Warn().Str("marker", phrase).Msgf("Detected %s page by content", d.kind)
			return true, nil
		}
	}

	for _, sel := range d.selectors {
		elements, err := sess.FindAll(ctx, sel)
		if err != nil {
			return false, fmt.Errorf("%s inspection: %w", d.kind, err)
		}
		if len(elements) > 0 {
			d.logger.Warn().Str("marker", sel).Msgf("Detected %s page by element", d.kind)
			return true, nil
		}
	}

	return false, nil
}

// Recover attempts one bounded recovery and reports whether the page came
// back clean. When it did not, the detector flags for manual intervention.
func (d *Detector) Recover(ctx context.Context, sess session.Session) (bool, error) {
	d.logger.Info().Str("wait", d.recoveryWait.String()).Msgf("Attempting %s recovery", d.kind)

	if d.resolver != nil {
		if err := d.resolver(ctx, sess); err != nil {
			d.logger.Warn().Err(err).Msgf("%s resolver failed", d.kind)
		}
	} else if err := pause(ctx, d.recoveryWait); err != nil {
		return false, err
	}

	detected, err := d.Inspect(ctx, sess)
	if err != nil {
		return false, err
	}
	if detected {
		d.ManualInterventionNeeded = true
		d.logger.Error().Msgf("%s page persists after recovery, manual intervention needed", d.kind)
		return false, nil
	}
	d.logger.Info().Msgf("%s recovery succeeded", d.kind)
	return true, nil
}
