package tracing

type Event string

const (
	EventCall      Event = "call"
	EventLine      Event = "line"
	EventReturn    Event = "return"
	EventException Event = "exception"
	EventOther     Event = "other"
)

type Binding struct {
	Name    string
	Type    string
	Value   any
	Changed bool
	// canonical is the type tag and display text, used for change detection
	canonical string
}

// Step is one recorded interpreter event. Steps are not modified after being appended.
type Step struct {
	Line      int
	Event     Event
	Code      string
	Bindings  map[string]Binding
	Stack     []string
	Timestamp float64
}

type Trace []Step
