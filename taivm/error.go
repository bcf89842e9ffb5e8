package taivm

import (
	"errors"
	"fmt"
)

// Error is a fault raised by running code.
type Error struct {
	Message string
	Func    string
	Line    int
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Location() string {
	return fmt.Sprintf("line %d, in %s", e.Line, e.Func)
}

// HookError carries an error returned by a Hook.
type HookError struct {
	Err error
}

func (e *HookError) Error() string {
	return e.Err.Error()
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// InterruptError carries an error returned by VM.Interrupt.
type InterruptError struct {
	Err error
}

func (e *InterruptError) Error() string {
	return e.Err.Error()
}

func (e *InterruptError) Unwrap() error {
	return e.Err
}

var ErrRecursionLimit = errors.New("maximum recursion depth exceeded")

// fault turns err into an *Error located at the current frame and reports it to the hook once.
func (v *VM) fault(err error) error {
	var vmErr *Error
	if errors.As(err, &vmErr) {
		return err
	}
	var hookErr *HookError
	if errors.As(err, &hookErr) {
		return err
	}
	var interruptErr *InterruptError
	if errors.As(err, &interruptErr) {
		return err
	}
	e := &Error{
		Message: err.Error(),
		Err:     err,
	}
	if frame := v.Frame(); frame != nil {
		e.Func = frame.Fun.Name
		e.Line = frame.Line
	}
	if err := v.emit(EventException, e); err != nil {
		return err
	}
	return e
}
