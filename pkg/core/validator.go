package core

import (
	"fmt"
	"strings"
)

// ValidateWorkflowStructure checks workflow-level fields: name, input
// types/uniqueness, selector uniqueness, and that every step names an action.
func ValidateWorkflowStructure(wf *Workflow) error {
	if wf.Name == "" {
		return fmt.Errorf("workflow is missing 'name'")
	}

	validInputTypes := map[string]bool{
		"string":  true,
		"number":  true,
		"boolean": true,
	}

	inputNames := make(map[string]bool)
	for i, input := range wf.Inputs {
		if input.Name == "" {
			return fmt.Errorf("input %d is missing 'name'", i)
		}
		if inputNames[input.Name] {
			return fmt.Errorf("duplicate input name: %q", input.Name)
		}
		inputNames[input.Name] = true

		if !validInputTypes[input.Type] {
			return fmt.Errorf("input %q has invalid type %q", input.Name, input.Type)
		}
	}

	selectorNames := make(map[string]bool)
	for i, sel := range wf.Selectors {
		if sel.Name == "" {
			return fmt.Errorf("selector %d is missing 'name'", i)
		}
		if selectorNames[sel.Name] {
			return fmt.Errorf("duplicate selector name: %q", sel.Name)
		}
		selectorNames[sel.Name] = true

		if sel.Selector == "" {
			return fmt.Errorf("selector %q is missing 'selector'", sel.Name)
		}
	}

	if len(wf.Steps) == 0 {
		return fmt.Errorf("workflow has no steps")
	}
	for i, step := range wf.Steps {
		if strings.TrimSpace(step.Action) == "" {
			return fmt.Errorf("step %d is missing 'action'", i)
		}
	}

	return nil
}

// ValidateRequiredInputs ensures every required input either appears in the
// varfile or carries a default.
func ValidateRequiredInputs(wf *Workflow, varCtx VarContext) error {
	for _, input := range wf.Inputs {
		if input.Required {
			if _, exists := varCtx[input.Name]; !exists && input.Default == "" {
				return fmt.Errorf("required input %q is missing from the varfile and no default value is provided", input.Name)
			}
		}
	}
	return nil
}
