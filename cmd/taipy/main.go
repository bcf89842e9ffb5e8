package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/reusee/taitrace/taipy"
	"github.com/reusee/taitrace/taivm"
)

// taipy runs a source file, or stdin, on the interpreter without tracing.
func main() {
	var input io.Reader = os.Stdin
	name := "stdin"
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			fail(err)
		}
		defer f.Close()
		input = f
		name = os.Args[1]
	}

	vm, err := taipy.NewVM(name, input)
	if err != nil {
		fail(err)
	}
	vm.Stdout = os.Stdout

	for err := range vm.Run {
		var vmErr *taivm.Error
		if errors.As(err, &vmErr) {
			fail(fmt.Errorf("%s: %w", vmErr.Location(), err))
		}
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
