package actions

import (
	"context"
	"fmt"
	"time"
)

// NavigateHandler loads a URL in the current session, optionally sleeping
// afterwards to let late content settle.
type NavigateHandler struct{}

func (h *NavigateHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	url, err := params.String("url")
	if err != nil {
		return err
	}
	waitAfter := params.SecondsOr("wait_after", 0)

	sess, err := ec.Sessions.Current(ctx)
	if err != nil {
		return err
	}

	ec.Logger.Debug().Str("url", url).Msg("Navigating")
	if err := sess.Navigate(ctx, url); err != nil {
		return err
	}

	if waitAfter > 0 {
		if err := sleep(ctx, waitAfter); err != nil {
			return err
		}
	}
	return nil
}

// sleep is a cancellable wait used by handlers that need fixed pauses.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("interrupted while waiting: %w", ctx.Err())
	}
}
