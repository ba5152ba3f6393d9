package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/calewin/fieldhand/pkg/core"
)

const waitPollInterval = 250 * time.Millisecond

// WaitForHandler blocks until any of the given selectors resolves to at
// least one element, or fails with ElementNotFound after the timeout.
type WaitForHandler struct{}

func (h *WaitForHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	names, err := params.StringSlice("selector")
	if err != nil {
		return err
	}
	timeout := params.SecondsOr("timeout", 10*time.Second)

	selectors := make([]string, len(names))
	for i, name := range names {
		selectors[i] = ec.Selector(name).Selector
	}

	sess, err := ec.Sessions.Current(ctx)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	for {
		for _, sel := range selectors {
			elements, err := sess.FindAll(ctx, sel)
			if err != nil {
				return fmt.Errorf("waiting for %q: %w", sel, err)
			}
			if len(elements) > 0 {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: none of [%s] appeared within %s",
				core.ErrElementNotFound, strings.Join(selectors, ", "), timeout)
		}
		if err := sleep(ctx, waitPollInterval); err != nil {
			return err
		}
	}
}
