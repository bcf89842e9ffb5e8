package logs

// Span identifies a unit of work, usually one request.
type Span string

type spanKey struct{}

var SpanKey spanKey
