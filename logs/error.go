package logs

import (
	"context"
	"fmt"
)

// SpanError carries the span an error was observed in.
type SpanError struct {
	Span Span
	Err  error
}

func (s *SpanError) Error() string {
	return fmt.Sprintf("%v (span: %s)", s.Err, s.Span)
}

func (s *SpanError) Unwrap() error {
	return s.Err
}

// WrapSpan attaches the span in ctx to err. err is returned unchanged when ctx has no span.
func WrapSpan(ctx context.Context, err error) error {
	span, ok := ctx.Value(SpanKey).(Span)
	if !ok || err == nil {
		return err
	}
	return &SpanError{
		Span: span,
		Err:  err,
	}
}
