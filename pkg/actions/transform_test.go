package actions_test

import (
	"context"
	"testing"

	"github.com/calewin/fieldhand/pkg/actions"
	"github.com/calewin/fieldhand/pkg/session/sessiontest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineFields(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	ec.Results.Set("brand", "Acme")
	ec.Results.Set("model", "X200")
	ec.Results.Set("missing", nil)

	h := &actions.CombineFieldsHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"target":    "full_name",
		"fields":    []any{"brand", "missing", "model"},
		"separator": " ",
	}))

	v, _ := ec.Results.Get("full_name")
	assert.Equal(t, "Acme X200", v, "nil and absent fields are skipped, not rendered")
}

func TestCombineFieldsNonStringSoftFails(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	ec.Results.Set("count", 42)

	h := &actions.CombineFieldsHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"target": "out",
		"fields": "count",
	}))

	v, ok := ec.Results.Get("out")
	require.True(t, ok, "soft failure still writes the target field")
	assert.Nil(t, v)
}

func TestTransformValue(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		params   actions.Params
		expected any
	}{
		{"trim", "  hello  ", actions.Params{"operation": "trim"}, "hello"},
		{"lowercase", "LOUD", actions.Params{"operation": "lowercase"}, "loud"},
		{"uppercase", "quiet", actions.Params{"operation": "uppercase"}, "QUIET"},
		{"replace", "a-b-c", actions.Params{"operation": "replace", "old": "-", "new": "_"}, "a_b_c"},
		{"regex extract group", "SKU: AB-123", actions.Params{"operation": "regex_extract", "pattern": `SKU: (\S+)`}, "AB-123"},
		{"regex extract whole match", "v2.1", actions.Params{"operation": "regex_extract", "pattern": `\d+\.\d+`}, "2.1"},
		{"parse number", "$1,299.99", actions.Params{"operation": "parse_number"}, 1299.99},
		{"regex no match nulls", "nothing", actions.Params{"operation": "regex_extract", "pattern": `\d{6}`}, nil},
		{"unknown operation nulls", "x", actions.Params{"operation": "rot13"}, nil},
		{"non-string input nulls", 7, actions.Params{"operation": "trim"}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ec := newExecContext(sessiontest.New())
			ec.Results.Set("raw", tc.input)

			params := actions.Params{"field": "raw", "target": "out"}
			for k, v := range tc.params {
				params[k] = v
			}

			h := &actions.TransformValueHandler{}
			require.NoError(t, h.Execute(context.Background(), ec, params))

			v, ok := ec.Results.Get("out")
			require.True(t, ok)
			assert.Equal(t, tc.expected, v)
		})
	}
}

func TestTransformValueDefaultsTargetToField(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	ec.Results.Set("title", "  Widget  ")

	h := &actions.TransformValueHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"field":     "title",
		"operation": "trim",
	}))
	v, _ := ec.Results.Get("title")
	assert.Equal(t, "Widget", v)
}

func TestParseWeight(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected float64
	}{
		{"kilograms", "12.5 kg", 12.5},
		{"grams", "750 g", 0.75},
		{"pounds", "2 lbs", 0.90718474},
		{"ounces", "16 oz", 0.453592368},
		{"comma decimal", "1,5 kg", 1.5},
		{"embedded in text", "Shipping weight: 3 kilograms (boxed)", 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ec := newExecContext(sessiontest.New())
			ec.Results.Set("weight", tc.input)

			h := &actions.ParseWeightHandler{}
			require.NoError(t, h.Execute(context.Background(), ec, actions.Params{"field": "weight"}))

			v, ok := ec.Results.Get("weight_kg")
			require.True(t, ok)
			assert.InDelta(t, tc.expected, v.(float64), 1e-6)
		})
	}
}

func TestParseWeightUnparseableNulls(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	ec.Results.Set("weight", "heavy-ish")

	h := &actions.ParseWeightHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"field":  "weight",
		"target": "kg",
	}))

	v, ok := ec.Results.Get("kg")
	require.True(t, ok)
	assert.Nil(t, v)
}

func TestExtractFromJSON(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	ec.Results.Set("payload", `{"data":{"items":[{"name":"first"},{"name":"second"}]}}`)

	h := &actions.ExtractFromJSONHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"field":  "payload",
		"target": "item_name",
		"path":   "data.items.1.name",
	}))

	v, _ := ec.Results.Get("item_name")
	assert.Equal(t, "second", v)
}

func TestExtractFromJSONBadPathNulls(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		path  string
	}{
		{"missing key", `{"a":1}`, "b"},
		{"index out of range", `[1,2]`, "5"},
		{"descend into scalar", `{"a":1}`, "a.b"},
		{"invalid json", `{not json`, "a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ec := newExecContext(sessiontest.New())
			ec.Results.Set("payload", tc.value)

			h := &actions.ExtractFromJSONHandler{}
			require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
				"field":  "payload",
				"target": "out",
				"path":   tc.path,
			}))

			v, ok := ec.Results.Get("out")
			require.True(t, ok)
			assert.Nil(t, v)
		})
	}
}
