package taivm

type Function struct {
	Name string
	// Source is the name of the compilation unit. Names starting with '<' are synthetic.
	Source      string
	Line        int
	ParamNames  []string
	NumDefaults int
	VarArgs     string
	VarKwargs   string
	Code        []OpCode
	Constants   []any
}

func (f *Function) IsSynthetic() bool {
	return len(f.Source) > 0 && f.Source[0] == '<'
}

type Closure struct {
	Fun      *Function
	Env      *Env
	Defaults []any
}

type Frame struct {
	Fun *Function
	IP  int
	// Env holds the function-level bindings
	Env *Env
	// Scope is the innermost scope, a child of Env inside comprehensions
	Scope  *Env
	BaseSP int
	Line   int
}
