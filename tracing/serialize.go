package tracing

import "fmt"

type TransportBinding struct {
	Name    string `json:"name" msgpack:"name"`
	Type    string `json:"type" msgpack:"type"`
	Value   any    `json:"value" msgpack:"value"`
	Changed bool   `json:"changed" msgpack:"changed"`
}

type TransportStep struct {
	LineNo    int                         `json:"line_no" msgpack:"line_no"`
	Event     string                      `json:"event" msgpack:"event"`
	Code      string                      `json:"code" msgpack:"code"`
	Stack     []string                    `json:"stack" msgpack:"stack"`
	Timestamp float64                     `json:"timestamp" msgpack:"timestamp"`
	Variables map[string]TransportBinding `json:"variables" msgpack:"variables"`
}

func Serialize(step Step) TransportStep {
	stack := make([]string, len(step.Stack))
	copy(stack, step.Stack)
	variables := make(map[string]TransportBinding, len(step.Bindings))
	for name, binding := range step.Bindings {
		variables[name] = TransportBinding{
			Name:    binding.Name,
			Type:    binding.Type,
			Value:   transportValue(binding.Value),
			Changed: binding.Changed,
		}
	}
	return TransportStep{
		LineNo:    step.Line,
		Event:     string(step.Event),
		Code:      step.Code,
		Stack:     stack,
		Timestamp: step.Timestamp,
		Variables: variables,
	}
}

func SerializeAll(trace Trace) []TransportStep {
	ret := make([]TransportStep, 0, len(trace))
	for _, step := range trace {
		ret = append(ret, Serialize(step))
	}
	return ret
}

func transportValue(v any) any {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	}
	return fmt.Sprint(v)
}
