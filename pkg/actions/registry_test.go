package actions_test

import (
	"context"
	"testing"

	"github.com/calewin/fieldhand/pkg/actions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryKnowsAllActions(t *testing.T) {
	registry := actions.DefaultRegistry()

	for _, name := range []string{
		"navigate", "wait_for", "extract_single", "extract_multiple",
		"input_text", "click", "login", "combine_fields", "transform_value",
		"parse_weight", "extract_from_json", "parse_table", "conditional",
	} {
		assert.True(t, registry.Known(name), "expected %q to be registered", name)
	}
	assert.False(t, registry.Known("teleport"))
}

func TestRegistryCaseInsensitive(t *testing.T) {
	registry := actions.DefaultRegistry()

	factory, ok := registry.Resolve("Navigate")
	require.True(t, ok)
	assert.NotNil(t, factory())
	assert.True(t, registry.Known("EXTRACT_SINGLE"))
}

type stubHandler struct{ calls int }

func (h *stubHandler) Execute(ctx context.Context, ec *actions.ExecContext, params actions.Params) error {
	h.calls++
	return nil
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	registry := actions.NewRegistry()

	first := &stubHandler{}
	second := &stubHandler{}
	registry.Register("custom", func() actions.Handler { return first })
	registry.Register("Custom", func() actions.Handler { return second })

	factory, ok := registry.Resolve("custom")
	require.True(t, ok)
	require.NoError(t, factory().Execute(context.Background(), nil, nil))
	assert.Equal(t, 0, first.calls)
	assert.Equal(t, 1, second.calls)
}
