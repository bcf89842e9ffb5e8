package tracing

import (
	"fmt"

	"github.com/reusee/taitrace/taivm"
)

// Display renders a value for a binding.
func Display(v any) string {
	if b, ok := v.(taivm.Bytes); ok {
		return fmt.Sprintf("<bytes: %d bytes>", len(b))
	}
	s, err := taivm.Repr(v)
	if err != nil {
		return taivm.Str(v)
	}
	return s
}

func canonical(typeName string, display string) string {
	return typeName + "\x00" + display
}
