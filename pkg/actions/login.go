package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/calewin/fieldhand/pkg/core"
)

// LoginHandler composes navigate, two input_text steps, a click, and a
// wait_for into one action, using credentials from the workflow
// configuration. It is stateless; credentials are re-read from the
// ExecContext on every call.
type LoginHandler struct{}

func (h *LoginHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	url, err := params.String("url")
	if err != nil {
		return err
	}
	usernameSel, err := params.String("username_selector")
	if err != nil {
		return err
	}
	passwordSel, err := params.String("password_selector")
	if err != nil {
		return err
	}
	submitSel, err := params.String("submit_selector")
	if err != nil {
		return err
	}
	successSel, err := params.String("success_selector")
	if err != nil {
		return err
	}
	timeout := params.SecondsOr("timeout", 15*time.Second)

	creds := ec.Credentials
	if creds.Username == "" || creds.Password == "" {
		return fmt.Errorf("%w: workflow credentials are not configured", core.ErrLoginFailed)
	}

	navigate := &NavigateHandler{}
	if err := navigate.Execute(ctx, ec, Params{"url": url}); err != nil {
		return fmt.Errorf("%w: opening login page: %v", core.ErrLoginFailed, err)
	}

	input := &InputTextHandler{}
	if err := input.Execute(ctx, ec, Params{"selector": usernameSel, "text": creds.Username}); err != nil {
		return fmt.Errorf("%w: entering username: %v", core.ErrLoginFailed, err)
	}
	if err := input.Execute(ctx, ec, Params{"selector": passwordSel, "text": creds.Password}); err != nil {
		return fmt.Errorf("%w: entering password: %v", core.ErrLoginFailed, err)
	}

	click := &ClickHandler{}
	if err := click.Execute(ctx, ec, Params{"selector": submitSel}); err != nil {
		return fmt.Errorf("%w: submitting form: %v", core.ErrLoginFailed, err)
	}

	waitFor := &WaitForHandler{}
	err = waitFor.Execute(ctx, ec, Params{"selector": successSel, "timeout": int(timeout / time.Second)})
	if err != nil {
		return fmt.Errorf("%w: success indicator %q never appeared: %v", core.ErrLoginFailed, successSel, err)
	}

	ec.Logger.Info().Msg("Login succeeded")
	return nil
}
