package actions

import (
	"context"
	"fmt"

	"github.com/calewin/fieldhand/pkg/session"
)

// ExtractHandler reads text or an attribute from matched elements into the
// result map. Missing elements write null (single) or an empty list
// (multiple) rather than failing, so a workflow can continue with partial
// data.
type ExtractHandler struct {
	Multiple bool
}

func (h *ExtractHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	field, err := params.String("field")
	if err != nil {
		return err
	}
	name, err := params.String("selector")
	if err != nil {
		return err
	}

	spec := ec.Selector(name)
	// A step-level attribute param overrides the selector's.
	attribute := params.StringOr("attribute", spec.Attribute)
	multiple := h.Multiple || spec.Multiple

	sess, err := ec.Sessions.Current(ctx)
	if err != nil {
		return err
	}

	elements, err := sess.FindAll(ctx, spec.Selector)
	if err != nil {
		return fmt.Errorf("extracting %q: %w", field, err)
	}

	if multiple {
		values := make([]string, 0, len(elements))
		for _, el := range elements {
			v, err := readValue(ctx, el, attribute)
			if err != nil {
				return fmt.Errorf("extracting %q: %w", field, err)
			}
			values = append(values, v)
		}
		ec.Results.Set(field, values)
		ec.Logger.Debug().Str("field", field).Int("count", len(values)).Msg("Extracted values")
		return nil
	}

	if len(elements) == 0 {
		ec.Logger.Debug().Str("field", field).Str("selector", spec.Selector).Msg("No match, field set to null")
		ec.Results.Set(field, nil)
		return nil
	}

	v, err := readValue(ctx, elements[0], attribute)
	if err != nil {
		return fmt.Errorf("extracting %q: %w", field, err)
	}
	ec.Results.Set(field, v)
	return nil
}

func readValue(ctx context.Context, el session.Element, attribute string) (string, error) {
	if attribute != "" {
		return el.Attribute(ctx, attribute)
	}
	return el.Text(ctx)
}
