package taivm

// Env is a lexical scope. Lookups walk outward through Parent.
type Env struct {
	Parent *Env
	Vars   map[string]any
}

// lookup returns the innermost scope binding name.
func (e *Env) lookup(name string) *Env {
	for env := e; env != nil; env = env.Parent {
		if _, ok := env.Vars[name]; ok {
			return env
		}
	}
	return nil
}

func (e *Env) Get(name string) (any, bool) {
	if env := e.lookup(name); env != nil {
		return env.Vars[name], true
	}
	return nil, false
}

// Def binds name in this scope, shadowing outer bindings.
func (e *Env) Def(name string, val any) {
	if e.Vars == nil {
		e.Vars = make(map[string]any)
	}
	e.Vars[name] = val
}

// Set rebinds an existing name in the scope that holds it.
func (e *Env) Set(name string, val any) bool {
	env := e.lookup(name)
	if env == nil {
		return false
	}
	env.Vars[name] = val
	return true
}

func (e *Env) NewChild() *Env {
	return &Env{
		Parent: e,
	}
}
