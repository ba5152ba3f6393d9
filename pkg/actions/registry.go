package actions

import (
	"strings"
)

// Factory yields a fresh handler instance for one step execution.
type Factory func() Handler

// Registry maps action names to handler factories. It is populated once at
// startup and treated as immutable afterwards, so concurrent Resolve calls
// need no locking.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register stores a factory under a lowercased action name. Re-registering a
// name overwrites the previous factory; last registration wins.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[strings.ToLower(name)] = factory
}

// Resolve looks up a handler factory. A missing name is not an error here;
// the executor turns it into an UnknownActionError.
func (r *Registry) Resolve(name string) (Factory, bool) {
	factory, ok := r.factories[strings.ToLower(name)]
	return factory, ok
}

// Known reports whether an action name has a registered handler. Used by
// workflow linting.
func (r *Registry) Known(name string) bool {
	_, ok := r.Resolve(name)
	return ok
}

// DefaultRegistry returns a registry with every built-in action registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("navigate", func() Handler { return &NavigateHandler{} })
	r.Register("wait_for", func() Handler { return &WaitForHandler{} })
	r.Register("extract_single", func() Handler { return &ExtractHandler{} })
	r.Register("extract_multiple", func() Handler { return &ExtractHandler{Multiple: true} })
	r.Register("input_text", func() Handler { return &InputTextHandler{} })
	r.Register("click", func() Handler { return &ClickHandler{} })
	r.Register("login", func() Handler { return &LoginHandler{} })
	r.Register("combine_fields", func() Handler { return &CombineFieldsHandler{} })
	r.Register("transform_value", func() Handler { return &TransformValueHandler{} })
	r.Register("parse_weight", func() Handler { return &ParseWeightHandler{} })
	r.Register("extract_from_json", func() Handler { return &ExtractFromJSONHandler{} })
	r.Register("parse_table", func() Handler { return &ParseTableHandler{} })
	r.Register("conditional", func() Handler { return &ConditionalHandler{} })
	return r
}
