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

func TestExtractSingle(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{
		Elements: map[string][]*sessiontest.Element{
			"h1.title": {
				{TextValue: "Widget Deluxe"},
				{TextValue: "ignored second match"},
			},
		},
	})
	ec := newExecContext(sess, core.SelectorSpec{Name: "title", Selector: "h1.title"})

	h := &actions.ExtractHandler{}
	err := h.Execute(context.Background(), ec, actions.Params{
		"field":    "title",
		"selector": "title",
	})
	require.NoError(t, err)

	v, ok := ec.Results.Get("title")
	require.True(t, ok)
	assert.Equal(t, "Widget Deluxe", v)
}

func TestExtractSingleNoMatchWritesNull(t *testing.T) {
	sess := sessiontest.New()
	ec := newExecContext(sess)

	h := &actions.ExtractHandler{}
	err := h.Execute(context.Background(), ec, actions.Params{
		"field":    "price",
		"selector": ".price",
	})
	require.NoError(t, err, "a missing element is partial data, not a failure")

	v, ok := ec.Results.Get("price")
	require.True(t, ok, "the field must be written even when nothing matched")
	assert.Nil(t, v)
}

func TestExtractAttribute(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{
		Elements: map[string][]*sessiontest.Element{
			"img.main": {{Attrs: map[string]string{"src": "/img/1.png"}}},
		},
	})
	ec := newExecContext(sess, core.SelectorSpec{Name: "image", Selector: "img.main", Attribute: "src"})

	h := &actions.ExtractHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"field":    "image_url",
		"selector": "image",
	}))
	v, _ := ec.Results.Get("image_url")
	assert.Equal(t, "/img/1.png", v)

	// A step-level attribute param overrides the selector's.
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"field":     "alt_text",
		"selector":  "image",
		"attribute": "alt",
	}))
	v, _ = ec.Results.Get("alt_text")
	assert.Equal(t, "", v)
}

func TestExtractMultiple(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{
		Elements: map[string][]*sessiontest.Element{
			".tag": {
				{TextValue: "new"},
				{TextValue: "sale"},
				{TextValue: "popular"},
			},
		},
	})
	ec := newExecContext(sess)

	h := &actions.ExtractHandler{Multiple: true}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"field":    "tags",
		"selector": ".tag",
	}))
	v, _ := ec.Results.Get("tags")
	assert.Equal(t, []string{"new", "sale", "popular"}, v)
}

func TestExtractMultipleNoMatchWritesEmptyList(t *testing.T) {
	sess := sessiontest.New()
	ec := newExecContext(sess)

	h := &actions.ExtractHandler{Multiple: true}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"field":    "tags",
		"selector": ".tag",
	}))
	v, ok := ec.Results.Get("tags")
	require.True(t, ok)
	assert.Equal(t, []string{}, v)
}

func TestExtractSpecMultipleForcesListMode(t *testing.T) {
	sess := sessiontest.New()
	sess.SetCurrent(&sessiontest.Page{
		Elements: map[string][]*sessiontest.Element{
			".tag": {{TextValue: "only"}},
		},
	})
	ec := newExecContext(sess, core.SelectorSpec{Name: "tags", Selector: ".tag", Multiple: true})

	// extract_single honors the selector's multiple flag.
	h := &actions.ExtractHandler{}
	require.NoError(t, h.Execute(context.Background(), ec, actions.Params{
		"field":    "tags",
		"selector": "tags",
	}))
	v, _ := ec.Results.Get("tags")
	assert.Equal(t, []string{"only"}, v)
}

func TestExtractMissingParams(t *testing.T) {
	ec := newExecContext(sessiontest.New())
	h := &actions.ExtractHandler{}

	err := h.Execute(context.Background(), ec, actions.Params{"selector": "x"})
	assert.ErrorContains(t, err, `missing required param "field"`)

	err = h.Execute(context.Background(), ec, actions.Params{"field": "x"})
	assert.ErrorContains(t, err, `missing required param "selector"`)
}
