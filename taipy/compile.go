package taipy

import (
	"errors"
	"fmt"

	"github.com/reusee/taitrace/taivm"
	"go.starlark.net/syntax"
)

type SyntaxError struct {
	Filename string
	Line     int
	Msg      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s (%s, line %d)", e.Msg, e.Filename, e.Line)
}

// Compile compiles a module. source is a string, []byte or io.Reader.
func Compile(name string, source any) (*taivm.Function, error) {
	file, err := fileOptions.Parse(name, source, 0)
	if err != nil {
		var serr syntax.Error
		if errors.As(err, &serr) {
			return nil, &SyntaxError{
				Filename: name,
				Line:     int(serr.Pos.Line),
				Msg:      serr.Msg,
			}
		}
		return nil, err
	}

	c := newCompiler("<module>", name)
	if err := c.compileStmts(file.Stmts); err != nil {
		return nil, err
	}
	fn := c.toFunction()
	fn.Line = 1
	return fn, nil
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}
