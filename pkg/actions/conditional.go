package actions

import (
	"context"
	"fmt"
	"strings"
)

// ConditionalHandler evaluates a predicate over the result map or the
// current page, then executes the chosen branch of nested steps through the
// owning executor.
type ConditionalHandler struct{}

func (h *ConditionalHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	conditionType, err := params.String("condition_type")
	if err != nil {
		return err
	}
	thenSteps, err := params.Steps("then")
	if err != nil {
		return err
	}
	elseSteps, err := params.Steps("else")
	if err != nil {
		return err
	}
	if ec.RunSteps == nil {
		return fmt.Errorf("conditional action is not supported outside a workflow execution")
	}

	matched, err := h.evaluate(ctx, ec, conditionType, params)
	if err != nil {
		return err
	}

	branch := elseSteps
	if matched {
		branch = thenSteps
	}
	ec.Logger.Debug().Str("condition", conditionType).Interface("matched", matched).Msg("Evaluated condition")
	if len(branch) == 0 {
		return nil
	}
	return ec.RunSteps(ctx, branch)
}

func (h *ConditionalHandler) evaluate(ctx context.Context, ec *ExecContext, conditionType string, params Params) (bool, error) {
	switch conditionType {
	case "field_exists":
		field, err := params.String("field")
		if err != nil {
			return false, err
		}
		v, ok := ec.Results.Get(field)
		return ok && v != nil, nil

	case "field_equals":
		field, err := params.String("field")
		if err != nil {
			return false, err
		}
		value, err := params.String("value")
		if err != nil {
			return false, err
		}
		return ec.Results.GetString(field) == value, nil

	case "field_contains":
		field, err := params.String("field")
		if err != nil {
			return false, err
		}
		value, err := params.String("value")
		if err != nil {
			return false, err
		}
		return strings.Contains(ec.Results.GetString(field), value), nil

	case "element_present":
		name, err := params.String("selector")
		if err != nil {
			return false, err
		}
		sess, err := ec.Sessions.Current(ctx)
		if err != nil {
			return false, err
		}
		elements, err := sess.FindAll(ctx, ec.Selector(name).Selector)
		if err != nil {
			return false, fmt.Errorf("checking for %q: %w", name, err)
		}
		return len(elements) > 0, nil

	case "page_contains":
		value, err := params.String("value")
		if err != nil {
			return false, err
		}
		sess, err := ec.Sessions.Current(ctx)
		if err != nil {
			return false, err
		}
		source, err := sess.PageSource(ctx)
		if err != nil {
			return false, fmt.Errorf("reading page for condition: %w", err)
		}
		return strings.Contains(strings.ToLower(source), strings.ToLower(value)), nil

	default:
		return false, fmt.Errorf("unknown condition_type %q", conditionType)
	}
}
