package responses

import (
	"fmt"
	"math"

	"github.com/reusee/taitrace/taivm"
	"github.com/reusee/taitrace/tracing"
)

// Unavailable replaces every explanation when the trace could not be explained at all.
const Unavailable = "Explanation unavailable"

const StatusSuccess = "success"

type Step struct {
	tracing.TransportStep `msgpack:",inline"`
	Explanation           string         `json:"explanation" msgpack:"explanation"`
	Visualization         map[string]any `json:"visualization" msgpack:"visualization"`
}

type Response struct {
	Status string `json:"status" msgpack:"status"`
	Trace  []Step `json:"trace" msgpack:"trace"`
	Output string `json:"output" msgpack:"output"`
}

// SerializationFault reports a response that could not be made transport-safe.
type SerializationFault struct {
	Err error
}

func (s *SerializationFault) Error() string {
	return "Failed to prepare response"
}

func (s *SerializationFault) Unwrap() error {
	return s.Err
}

// Assemble merges steps with their explanations.
// When explainErr is set or the counts disagree, every explanation is Unavailable.
func Assemble(steps []tracing.TransportStep, explanations []string, explainErr error, output string) (ret *Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			ret = nil
			err = &SerializationFault{
				Err: fmt.Errorf("assemble: %v", p),
			}
		}
	}()

	degraded := explainErr != nil || len(explanations) != len(steps)
	trace := make([]Step, 0, len(steps))
	for i, step := range steps {
		explanation := Unavailable
		if !degraded {
			explanation = explanations[i]
		}
		trace = append(trace, Step{
			TransportStep: lenient(step),
			Explanation:   explanation,
			Visualization: map[string]any{},
		})
	}
	return &Response{
		Status: StatusSuccess,
		Trace:  trace,
		Output: output,
	}, nil
}

// Encode marshals the response for contentType.
func (r *Response) Encode(contentType string) ([]byte, error) {
	bs, err := Marshal(contentType, r)
	if err != nil {
		return nil, &SerializationFault{
			Err: err,
		}
	}
	return bs, nil
}

func lenient(step tracing.TransportStep) tracing.TransportStep {
	if math.IsNaN(step.Timestamp) || math.IsInf(step.Timestamp, 0) {
		step.Timestamp = 0
	}
	if step.Stack == nil {
		step.Stack = []string{}
	}
	variables := make(map[string]tracing.TransportBinding, len(step.Variables))
	for name, binding := range step.Variables {
		binding.Value = lenientValue(binding.Value)
		variables[name] = binding
	}
	step.Variables = variables
	return step
}

// lenientValue keeps values that every encoding can represent and stringifies the rest.
func lenientValue(v any) any {
	switch v := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v
	case float32:
		return lenientValue(float64(v))
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return taivm.Str(v)
		}
		return v
	}
	return fmt.Sprint(v)
}
