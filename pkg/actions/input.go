package actions

import (
	"context"
	"fmt"

	"github.com/calewin/fieldhand/pkg/core"
)

// InputTextHandler types text into the first element matching the selector.
type InputTextHandler struct{}

func (h *InputTextHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	name, err := params.String("selector")
	if err != nil {
		return err
	}
	text, err := params.String("text")
	if err != nil {
		return err
	}
	clearFirst := params.BoolOr("clear_first", true)

	spec := ec.Selector(name)
	sess, err := ec.Sessions.Current(ctx)
	if err != nil {
		return err
	}

	elements, err := sess.FindAll(ctx, spec.Selector)
	if err != nil {
		return fmt.Errorf("locating input %q: %w", spec.Selector, err)
	}
	if len(elements) == 0 {
		return fmt.Errorf("%w: input %q", core.ErrElementNotFound, spec.Selector)
	}

	if err := elements[0].Type(ctx, text, clearFirst); err != nil {
		return fmt.Errorf("typing into %q: %w", spec.Selector, err)
	}
	return nil
}
