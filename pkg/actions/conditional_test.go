package actions_test

import (
	"context"
	"testing"

	"github.com/calewin/fieldhand/pkg/actions"
	"github.com/calewin/fieldhand/pkg/core"
	"github.com/calewin/fieldhand/pkg/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSteps wires ExecContext.RunSteps to capture which branch ran.
func recordSteps(ec *actions.ExecContext) *[]core.Step {
	var executed []core.Step
	ec.RunSteps = func(ctx context.Context, steps []core.Step) error {
		executed = append(executed, steps...)
		return nil
	}
	return &executed
}

func TestConditionalFieldExists(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	executed := recordSteps(ec)
	ec.Results.Set("price", "9.99")

	h := &actions.ConditionalHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"condition_type": "field_exists",
		"field":          "price",
		"then": []any{
			map[string]any{"action": "transform_value", "params": map[string]any{"field": "price", "operation": "parse_number"}},
		},
		"else": []any{
			map[string]any{"action": "extract_single", "params": map[string]any{"field": "price", "selector": ".price"}},
		},
	}))

	require.Len(t, *executed, 1)
	assert.Equal(t, "transform_value", (*executed)[0].Action)
}

func TestConditionalNullFieldTakesElse(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	executed := recordSteps(ec)
	ec.Results.Set("price", nil)

	h := &actions.ConditionalHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"condition_type": "field_exists",
		"field":          "price",
		"then":           []any{map[string]any{"action": "navigate"}},
		"else":           []any{map[string]any{"action": "click"}},
	}))

	require.Len(t, *executed, 1)
	assert.Equal(t, "click", (*executed)[0].Action, "a null field does not count as existing")
}

func TestConditionalFieldEqualsAndContains(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	executed := recordSteps(ec)
	ec.Results.Set("status", "In Stock")

	h := &actions.ConditionalHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"condition_type": "field_equals",
		"field":          "status",
		"value":          "In Stock",
		"then":           []any{map[string]any{"action": "navigate"}},
	}))
	require.Len(t, *executed, 1)

	*executed = nil
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"condition_type": "field_contains",
		"field":          "status",
		"value":          "Stock",
		"then":           []any{map[string]any{"action": "navigate"}},
	}))
	require.Len(t, *executed, 1)
}

func TestConditionalElementPresent(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{
		Elements: map[string][]*sessiontest.Element{".sale-banner": {{TextValue: "50% off"}}},
	})
	ec := newExecContext(sess)
	executed := recordSteps(ec)

	h := &actions.ConditionalHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"condition_type": "element_present",
		"selector":       ".sale-banner",
		"then":           []any{map[string]any{"action": "click"}},
		"else":           []any{map[string]any{"action": "navigate"}},
	}))
	require.Len(t, *executed, 1)
	assert.Equal(t, "click", (*executed)[0].Action)
}

func TestConditionalPageContains(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{Source: "<html>Out of Stock</html>"})
	ec := newExecContext(sess)
	executed := recordSteps(ec)

	h := &actions.ConditionalHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"condition_type": "page_contains",
		"value":          "out of stock",
		"then":           []any{map[string]any{"action": "click"}},
	}))
	require.Len(t, *executed, 1, "page matching is case-insensitive")
}

func TestConditionalEmptyBranchIsNoop(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	executed := recordSteps(ec)

	h := &actions.ConditionalHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"condition_type": "field_exists",
		"field":          "never_set",
		"then":           []any{map[string]any{"action": "navigate"}},
	}))
	assert.Empty(t, *executed)
}

func TestConditionalUnknownType(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	recordSteps(ec)

	h := &actions.ConditionalHandler{}
	err := h.Execute(context.Background(), ec, actions.Params{
		"condition_type": "moon_phase",
	})
	assert.ErrorContains(t, err, "unknown condition_type")
}

func TestConditionalOutsideWorkflow(t *testing.T) {
	ec := newExecContext(sessiontest.New())

	h := &actions.ConditionalHandler{}
	err := h.Execute(context.Background(), ec, actions.Params{
		"condition_type": "field_exists",
		"field":          "x",
	})
	assert.ErrorContains(t, err, "not supported outside a workflow")
}
