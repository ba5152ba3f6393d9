package core

import "time"

// Step is a single declarative action in a workflow. Params are opaque to the
// engine; each action handler reads the keys it cares about.
type Step struct {
	Action string         `yaml:"action"`
	Params map[string]any `yaml:"params,omitempty"`
}

// SelectorSpec is a named, reusable locator. An empty Attribute means
// "element text".
type SelectorSpec struct {
	Name      string `yaml:"name"`
	Selector  string `yaml:"selector"`
	Attribute string `yaml:"attribute,omitempty"`
	Multiple  bool   `yaml:"multiple,omitempty"`
}

// Input declares a workflow-level input variable, resolved from the varfile.
type Input struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required,omitempty"`
	Secret   bool   `yaml:"secret,omitempty"`
	Default  string `yaml:"default,omitempty"`
}

// Credentials are consumed by the login action. Values usually arrive through
// the varfile's {{ env.* }} resolution so they never live in the workflow file.
type Credentials struct {
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Workflow is the full declarative configuration for one scraping target.
type Workflow struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Inputs      []Input          `yaml:"inputs,omitempty"`
	Selectors   []SelectorSpec   `yaml:"selectors,omitempty"`
	Steps       []Step           `yaml:"steps"`
	Credentials Credentials      `yaml:"credentials,omitempty"`
	AntiDetect  AntiDetectConfig `yaml:"anti_detect,omitempty"`
	Breaker     BreakerConfig    `yaml:"circuit_breaker,omitempty"`
}

// SelectorByName returns the named selector spec, if declared.
func (wf *Workflow) SelectorByName(name string) (SelectorSpec, bool) {
	for _, s := range wf.Selectors {
		if s.Name == name {
			return s, true
		}
	}
	return SelectorSpec{}, false
}

// ResultMap holds the fields extracted during one item's execution. It is
// created fresh per item and owned by exactly one executor at a time.
type ResultMap map[string]any

// Set records a field value. A nil value is a deliberate "extracted nothing"
// marker and is distinct from an absent key.
func (r ResultMap) Set(field string, value any) {
	r[field] = value
}

// Get returns the value for field and whether the field was ever written.
func (r ResultMap) Get(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// GetString returns the field coerced to a string, or "" if it is absent,
// nil, or not a string.
func (r ResultMap) GetString(field string) string {
	if v, ok := r[field]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Snapshot returns a shallow copy safe to hand to the caller once the
// executor has finished with this item.
func (r ResultMap) Snapshot() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ItemResult is the per-work-item outcome returned to the caller.
type ItemResult struct {
	Item    string         `json:"item"`
	Success bool           `json:"success"`
	Skipped bool           `json:"skipped,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// BatchSummary aggregates a whole run.
type BatchSummary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// Level represents a log severity level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)
