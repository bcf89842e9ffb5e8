package taivm

type Event uint8

const (
	EventCall Event = iota + 1
	EventLine
	EventReturn
	EventException
)

func (e Event) String() string {
	switch e {
	case EventCall:
		return "call"
	case EventLine:
		return "line"
	case EventReturn:
		return "return"
	case EventException:
		return "exception"
	}
	return "other"
}

// Hook observes execution. The current frame is vm.Frame().
// For EventReturn arg is the return value, for EventException the *Error.
// A non-nil error aborts the run.
type Hook interface {
	OnEvent(vm *VM, event Event, arg any) error
}

type HookFunc func(vm *VM, event Event, arg any) error

var _ Hook = HookFunc(nil)

func (f HookFunc) OnEvent(vm *VM, event Event, arg any) error {
	return f(vm, event, arg)
}

// SetHook installs h and returns the previous hook.
func (v *VM) SetHook(h Hook) Hook {
	prev := v.hook
	v.hook = h
	return prev
}

func (v *VM) Hook() Hook {
	return v.hook
}

func (v *VM) emit(event Event, arg any) error {
	if v.hook == nil {
		return nil
	}
	if err := v.hook.OnEvent(v, event, arg); err != nil {
		return &HookError{
			Err: err,
		}
	}
	return nil
}
