package core

import (
	"fmt"
	"log"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// VarContext holds resolved input variables from the varfile.
type VarContext map[string]string

// Clone returns a shallow copy so per-item additions never leak between items.
func (c VarContext) Clone() VarContext {
	out := make(VarContext, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	return out
}

// varRegex matches {{ varName }} placeholders.
var varRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9\._-]+)\s*\}\}`)

// envRegex matches values that are pure {{ env.NAME }} references.
var envRegex = regexp.MustCompile(`^\s*\{\{\s*env\.([A-Za-z0-9_]+)\s*}}\s*$`)

// ResolveVarfile loads a YAML varfile, parses it, and resolves {{ env.* }}
// values against the process environment.
func ResolveVarfile(path string) (VarContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading varfile %q: %w", path, err)
	}

	var rawVars map[string]string
	if err := yaml.Unmarshal(data, &rawVars); err != nil {
		return nil, fmt.Errorf("parsing varfile YAML from %q: %w", path, err)
	}

	resolvedCtx := make(VarContext, len(rawVars))
	for key, val := range rawVars {
		if match := envRegex.FindStringSubmatch(val); match != nil {
			envKey := match[1]
			envVal, exists := os.LookupEnv(envKey)
			if !exists {
				log.Printf("warning: environment variable %q not found for varfile key %q", envKey, key)
			}
			resolvedCtx[key] = envVal
		} else {
			resolvedCtx[key] = val
		}
	}
	return resolvedCtx, nil
}

// ApplyInputDefaults fills any inputs absent from the varfile with their
// declared defaults.
func ApplyInputDefaults(wf *Workflow, varCtx VarContext) {
	for _, input := range wf.Inputs {
		if _, ok := varCtx[input.Name]; !ok && input.Default != "" {
			varCtx[input.Name] = input.Default
		}
	}
}

// ResolveString interpolates every {{ var }} placeholder in input from ctx.
// An unknown variable is an error so typos fail loudly before any browser
// work happens.
func ResolveString(input string, ctx VarContext) (string, error) {
	var resolveErr error
	out := varRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := varRegex.FindStringSubmatch(match)[1]
		val, ok := ctx[name]
		if !ok {
			if resolveErr == nil {
				resolveErr = fmt.Errorf("undefined variable %q", name)
			}
			return match
		}
		return val
	})
	return out, resolveErr
}

// resolveValue recursively resolves placeholders in strings, maps, and slices.
// Non-string scalars pass through unchanged.
func resolveValue(value any, ctx VarContext) (any, error) {
	switch v := value.(type) {
	case string:
		return ResolveString(v, ctx)
	case map[string]any:
		resolved := make(map[string]any, len(v))
		for key, val := range v {
			rv, err := resolveValue(val, ctx)
			if err != nil {
				return nil, fmt.Errorf("resolving map key %q: %w", key, err)
			}
			resolved[key] = rv
		}
		return resolved, nil
	case []any:
		resolved := make([]any, len(v))
		for i, item := range v {
			rv, err := resolveValue(item, ctx)
			if err != nil {
				return nil, fmt.Errorf("resolving slice item at index %d: %w", i, err)
			}
			resolved[i] = rv
		}
		return resolved, nil
	default:
		return v, nil
	}
}

// ResolveStepVariables returns a deep copy of step with every templated
// param resolved against ctx. The original workflow definition is never
// mutated, so steps can be re-resolved per work item.
func ResolveStepVariables(step *Step, ctx VarContext) (*Step, error) {
	resolved := Step{Action: step.Action}
	if step.Params != nil {
		rv, err := resolveValue(step.Params, ctx)
		if err != nil {
			return nil, fmt.Errorf("resolving params for action %q: %w", step.Action, err)
		}
		resolved.Params = rv.(map[string]any)
	}
	return &resolved, nil
}

// ResolveCredentials interpolates credential fields from the varfile context.
func ResolveCredentials(creds Credentials, ctx VarContext) (Credentials, error) {
	var err error
	if creds.Username, err = ResolveString(creds.Username, ctx); err != nil {
		return creds, fmt.Errorf("resolving credentials username: %w", err)
	}
	if creds.Password, err = ResolveString(creds.Password, ctx); err != nil {
		return creds, fmt.Errorf("resolving credentials password: %w", err)
	}
	return creds, nil
}
