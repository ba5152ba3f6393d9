package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The transform handlers below are pure ResultMap-to-ResultMap operations.
// They never touch the automation session, and they fail softly: a malformed
// input nulls the target field and logs a warning instead of aborting the
// workflow, because one bad field should not discard an otherwise-valid
// record.

// writeSoft records a transform outcome, mapping an error to a null field.
func writeSoft(ec *ExecContext, field string, value any, err error) {
	if err != nil {
		ec.Logger.Warn().Err(err).Str("field", field).Msg("Transform failed, field set to null")
		ec.Results.Set(field, nil)
		return
	}
	ec.Results.Set(field, value)
}

// CombineFieldsHandler joins several already-extracted fields into one.
type CombineFieldsHandler struct{}

func (h *CombineFieldsHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	target, err := params.String("target")
	if err != nil {
		return err
	}
	fields, err := params.StringSlice("fields")
	if err != nil {
		return err
	}
	separator := params.StringOr("separator", " ")

	value, terr := h.combine(ec, fields, separator)
	writeSoft(ec, target, value, terr)
	return nil
}

func (h *CombineFieldsHandler) combine(ec *ExecContext, fields []string, separator string) (string, error) {
	var parts []string
	for _, f := range fields {
		v, ok := ec.Results.Get(f)
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("field %q is not a string", f)
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, separator), nil
}

// TransformValueHandler applies a named string operation to a field.
type TransformValueHandler struct{}

func (h *TransformValueHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	field, err := params.String("field")
	if err != nil {
		return err
	}
	operation, err := params.String("operation")
	if err != nil {
		return err
	}
	target := params.StringOr("target", field)

	value, terr := h.apply(ec, field, operation, params)
	writeSoft(ec, target, value, terr)
	return nil
}

func (h *TransformValueHandler) apply(ec *ExecContext, field, operation string, params Params) (any, error) {
	raw, ok := ec.Results.Get(field)
	if !ok || raw == nil {
		return nil, fmt.Errorf("field %q has no value", field)
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("field %q is not a string", field)
	}

	switch operation {
	case "trim":
		return strings.TrimSpace(s), nil
	case "lowercase":
		return strings.ToLower(s), nil
	case "uppercase":
		return strings.ToUpper(s), nil
	case "replace":
		old := params.StringOr("old", "")
		if old == "" {
			return nil, fmt.Errorf("replace needs a non-empty 'old' param")
		}
		return strings.ReplaceAll(s, old, params.StringOr("new", "")), nil
	case "regex_extract":
		pattern := params.StringOr("pattern", "")
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		match := re.FindStringSubmatch(s)
		if match == nil {
			return nil, fmt.Errorf("pattern %q matched nothing", pattern)
		}
		if len(match) > 1 {
			return match[1], nil
		}
		return match[0], nil
	case "parse_number":
		cleaned := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' || r == '.' || r == '-' {
				return r
			}
			return -1
		}, s)
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing number from %q: %w", s, err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown operation %q", operation)
	}
}

// weightRegex captures a decimal value and its unit, e.g. "12.5 kg".
var weightRegex = regexp.MustCompile(`(?i)([\d]+(?:[.,]\d+)?)\s*(kg|kgs|kilograms?|g|grams?|lb|lbs|pounds?|oz|ounces?)`)

// unitToKilograms converts a recognized weight unit to kilograms.
var unitToKilograms = map[string]float64{
	"kg": 1, "kgs": 1, "kilogram": 1, "kilograms": 1,
	"g": 0.001, "gram": 0.001, "grams": 0.001,
	"lb": 0.45359237, "lbs": 0.45359237, "pound": 0.45359237, "pounds": 0.45359237,
	"oz": 0.028349523, "ounce": 0.028349523, "ounces": 0.028349523,
}

// ParseWeightHandler normalizes a free-form weight string ("2 lbs", "750 g")
// into kilograms.
type ParseWeightHandler struct{}

func (h *ParseWeightHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	field, err := params.String("field")
	if err != nil {
		return err
	}
	target := params.StringOr("target", field+"_kg")

	value, terr := h.parse(ec, field)
	writeSoft(ec, target, value, terr)
	return nil
}

func (h *ParseWeightHandler) parse(ec *ExecContext, field string) (any, error) {
	s := ec.Results.GetString(field)
	if s == "" {
		return nil, fmt.Errorf("field %q has no string value", field)
	}

	match := weightRegex.FindStringSubmatch(s)
	if match == nil {
		return nil, fmt.Errorf("no weight found in %q", s)
	}

	num, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil {
		return nil, fmt.Errorf("parsing weight value %q: %w", match[1], err)
	}
	factor, ok := unitToKilograms[strings.ToLower(match[2])]
	if !ok {
		return nil, fmt.Errorf("unknown weight unit %q", match[2])
	}
	return num * factor, nil
}

// ExtractFromJSONHandler parses a JSON string field and walks a dotted path
// ("data.items.0.name") into it.
type ExtractFromJSONHandler struct{}

func (h *ExtractFromJSONHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	field, err := params.String("field")
	if err != nil {
		return err
	}
	target, err := params.String("target")
	if err != nil {
		return err
	}
	path := params.StringOr("path", "")

	value, terr := h.extract(ec, field, path)
	writeSoft(ec, target, value, terr)
	return nil
}

func (h *ExtractFromJSONHandler) extract(ec *ExecContext, field, path string) (any, error) {
	s := ec.Results.GetString(field)
	if s == "" {
		return nil, fmt.Errorf("field %q has no string value", field)
	}

	var doc any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("field %q is not valid JSON: %w", field, err)
	}
	if path == "" {
		return doc, nil
	}

	current := doc
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("path element %q not found", part)
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("path element %q is not a valid index", part)
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("path element %q cannot descend into %T", part, current)
		}
	}
	return current, nil
}
