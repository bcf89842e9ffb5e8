package explains

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/reusee/taitrace/tracing"
)

// Marker ends the instruction; the explanation is whatever the model writes after it.
const Marker = "[/INST]"

const systemPrompt = `[INST] <<SYS>>
You are a Python code execution analyzer.
Explain what happens at each step of execution in simple terms.
Focus on variable changes and control flow.
<</SYS>>`

func buildPrompt(source string, step tracing.TransportStep) string {
	buf := new(strings.Builder)
	buf.WriteString(systemPrompt)
	buf.WriteString("\nCode being executed:\n")
	buf.WriteString(source)
	buf.WriteString("\n\nCurrent execution state:\n")
	fmt.Fprintf(buf, "- Line %d: %s\n", step.LineNo, step.Event)
	if step.Code != "" {
		fmt.Fprintf(buf, "- Statement: %s\n", step.Code)
	}
	fmt.Fprintf(buf, "- Stack: %s\n", strings.Join(step.Stack, ", "))
	buf.WriteString("- Variables:")
	if len(step.Variables) == 0 {
		buf.WriteString(" none")
	}
	buf.WriteString("\n")
	for _, name := range slices.Sorted(maps.Keys(step.Variables)) {
		binding := step.Variables[name]
		fmt.Fprintf(buf, "  %s (%s) = %v", name, binding.Type, binding.Value)
		if binding.Changed {
			buf.WriteString(" [changed]")
		}
		buf.WriteString("\n")
	}
	buf.WriteString("\nExplain what's happening in this step: ")
	buf.WriteString(Marker)
	return buf.String()
}
