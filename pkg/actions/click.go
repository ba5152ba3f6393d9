package actions

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/session"
)

const clickRetryPause = 500 * time.Millisecond

// ClickHandler resolves all matches for a selector, optionally filters them
// by visible text, picks one by index, and clicks it. Retries are local and
// exhausted before the step is considered failed.
type ClickHandler struct{}

func (h *ClickHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	name, err := params.String("selector")
	if err != nil {
		return err
	}
	filterText := params.StringOr("filter_text", "")
	filterRegex := params.StringOr("filter_regex", "")
	index := params.IntOr("index", 0)
	maxRetries := params.IntOr("max_retries", 0)

	var re *regexp.Regexp
	if filterRegex != "" {
		re, err = regexp.Compile(filterRegex)
		if err != nil {
			return fmt.Errorf("invalid filter_regex: %w", err)
		}
	}

	spec := ec.Selector(name)
	sess, err := ec.Sessions.Current(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			ec.Logger.Debug().Int("attempt", attempt).Str("selector", spec.Selector).Msg("Retrying click")
			if err := sleep(ctx, clickRetryPause); err != nil {
				return err
			}
		}
		lastErr = h.clickOnce(ctx, sess, spec.Selector, filterText, re, index)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (h *ClickHandler) clickOnce(ctx context.Context, sess session.Session, selector, filterText string, re *regexp.Regexp, index int) error {
	elements, err := sess.FindAll(ctx, selector)
	if err != nil {
		return fmt.Errorf("locating %q: %w", selector, err)
	}

	if filterText != "" || re != nil {
		var filtered []session.Element
		for _, el := range elements {
			text, err := el.Text(ctx)
			if err != nil {
				continue
			}
			if filterText != "" && !strings.Contains(text, filterText) {
				continue
			}
			if re != nil && !re.MatchString(text) {
				continue
			}
			filtered = append(filtered, el)
		}
		elements = filtered
	}

	if len(elements) == 0 {
		return fmt.Errorf("%w: no clickable match for %q", core.ErrElementNotFound, selector)
	}
	if index < 0 || index >= len(elements) {
		return fmt.Errorf("%w: index %d out of range for %d matches of %q",
			core.ErrElementNotFound, index, len(elements), selector)
	}

	if err := elements[index].Click(ctx); err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}
