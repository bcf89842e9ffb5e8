package taipy

import (
	"fmt"
	"math/big"

	"github.com/reusee/taitrace/taivm"
	"go.starlark.net/syntax"
)

type compiler struct {
	name      string
	source    string
	code      []taivm.OpCode
	constants []any
	constMap  map[any]int
	loops     []*loopContext
}

type loopContext struct {
	continueIP int
	breakIPs   []int
	// for loops keep the iterator on the operand stack
	hasIterator bool
}

func newCompiler(name string, source string) *compiler {
	return &compiler{
		name:     name,
		source:   source,
		constMap: make(map[any]int),
	}
}

func (c *compiler) toFunction() *taivm.Function {
	return &taivm.Function{
		Name:      c.name,
		Source:    c.source,
		Code:      c.code,
		Constants: c.constants,
	}
}

func (c *compiler) addConst(val any) int {
	if isComparable(val) {
		if idx, ok := c.constMap[val]; ok {
			return idx
		}
	}
	idx := len(c.constants)
	c.constants = append(c.constants, val)
	if isComparable(val) {
		c.constMap[val] = idx
	}
	return idx
}

func isComparable(v any) bool {
	switch v.(type) {
	case int64, float64, string, bool, nil, taivm.Bytes:
		return true
	}
	return false
}

func (c *compiler) emit(op taivm.OpCode) {
	c.code = append(c.code, op)
}

func (c *compiler) currentIP() int {
	return len(c.code)
}

func (c *compiler) patchJump(ip int, target int) {
	offset := target - ip - 1
	op := c.code[ip] & 0xff
	c.code[ip] = op.With(offset)
}

func (c *compiler) jumpTo(op taivm.OpCode, target int) {
	ip := c.currentIP()
	c.emit(op)
	c.patchJump(ip, target)
}

func (c *compiler) line(node syntax.Node) {
	c.emit(taivm.OpLine.With(lineOf(node)))
}

func lineOf(node syntax.Node) int {
	start, _ := node.Span()
	return int(start.Line)
}

func (c *compiler) errorf(node syntax.Node, format string, args ...any) error {
	return &SyntaxError{
		Filename: c.source,
		Line:     lineOf(node),
		Msg:      fmt.Sprintf(format, args...),
	}
}

func (c *compiler) compileStmts(stmts []syntax.Stmt) error {
	for _, stmt := range stmts {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileStmt(stmt syntax.Stmt) error {
	switch s := stmt.(type) {
	case *syntax.ExprStmt:
		c.line(s)
		if err := c.compileExpr(s.X); err != nil {
			return err
		}
		c.emit(taivm.OpPop)
	case *syntax.AssignStmt:
		c.line(s)
		return c.compileAssign(s)
	case *syntax.DefStmt:
		c.line(s)
		return c.compileDef(s)
	case *syntax.ReturnStmt:
		c.line(s)
		if s.Result != nil {
			if err := c.compileExpr(s.Result); err != nil {
				return err
			}
		} else {
			c.emit(taivm.OpLoadConst.With(c.addConst(nil)))
		}
		c.emit(taivm.OpReturn)
	case *syntax.IfStmt:
		return c.compileIf(s)
	case *syntax.WhileStmt:
		return c.compileWhile(s)
	case *syntax.ForStmt:
		return c.compileFor(s)
	case *syntax.BranchStmt:
		c.line(s)
		return c.compileBranch(s)
	case *syntax.LoadStmt:
		return c.errorf(s, "import is not supported")
	default:
		return c.errorf(stmt, "unsupported statement")
	}
	return nil
}

var augmentedOps = map[syntax.Token]taivm.OpCode{
	syntax.PLUS_EQ:       taivm.OpAdd,
	syntax.MINUS_EQ:      taivm.OpSub,
	syntax.STAR_EQ:       taivm.OpMul,
	syntax.SLASH_EQ:      taivm.OpDiv,
	syntax.SLASHSLASH_EQ: taivm.OpFloorDiv,
	syntax.PERCENT_EQ:    taivm.OpMod,
	syntax.AMP_EQ:        taivm.OpBitAnd,
	syntax.PIPE_EQ:       taivm.OpBitOr,
	syntax.CIRCUMFLEX_EQ: taivm.OpBitXor,
	syntax.LTLT_EQ:       taivm.OpBitLsh,
	syntax.GTGT_EQ:       taivm.OpBitRsh,
}

func (c *compiler) compileAssign(s *syntax.AssignStmt) error {
	if s.Op == syntax.EQ {
		if err := c.compileExpr(s.RHS); err != nil {
			return err
		}
		return c.compileStore(s.LHS)
	}

	op, ok := augmentedOps[s.Op]
	if !ok {
		return c.errorf(s, "unsupported assignment operator %s", s.Op)
	}
	if op == taivm.OpAdd {
		op = op.With(1)
	}

	switch lhs := s.LHS.(type) {
	case *syntax.Ident:
		if err := c.compileExpr(lhs); err != nil {
			return err
		}
		if err := c.compileExpr(s.RHS); err != nil {
			return err
		}
		c.emit(op)
		c.emit(taivm.OpStoreVar.With(c.addConst(lhs.Name)))
	case *syntax.IndexExpr:
		if err := c.compileExpr(lhs.X); err != nil {
			return err
		}
		if err := c.compileExpr(lhs.Y); err != nil {
			return err
		}
		c.emit(taivm.OpDup2)
		c.emit(taivm.OpGetIndex)
		if err := c.compileExpr(s.RHS); err != nil {
			return err
		}
		c.emit(op)
		c.emit(taivm.OpRot3)
		c.emit(taivm.OpSetIndex)
	case *syntax.ParenExpr:
		return c.compileAssign(&syntax.AssignStmt{
			OpPos: s.OpPos,
			Op:    s.Op,
			LHS:   lhs.X,
			RHS:   s.RHS,
		})
	default:
		return c.errorf(s, "illegal expression for augmented assignment")
	}
	return nil
}

// compileStore assigns the value on top of the operand stack to lhs.
func (c *compiler) compileStore(lhs syntax.Expr) error {
	switch node := lhs.(type) {
	case *syntax.Ident:
		switch node.Name {
		case "None", "True", "False":
			return c.errorf(node, "cannot assign to %s", node.Name)
		}
		c.emit(taivm.OpStoreVar.With(c.addConst(node.Name)))
		return nil
	case *syntax.ParenExpr:
		return c.compileStore(node.X)
	case *syntax.ListExpr:
		return c.compileUnpackStore(node.List)
	case *syntax.TupleExpr:
		return c.compileUnpackStore(node.List)
	case *syntax.IndexExpr:
		if err := c.compileExpr(node.X); err != nil {
			return err
		}
		if err := c.compileExpr(node.Y); err != nil {
			return err
		}
		c.emit(taivm.OpSetIndex)
		return nil
	case *syntax.DotExpr:
		return c.errorf(node, "cannot assign to attribute '%s'", node.Name.Name)
	default:
		return c.errorf(lhs, "cannot assign to expression")
	}
}

func (c *compiler) compileUnpackStore(targets []syntax.Expr) error {
	c.emit(taivm.OpUnpack.With(len(targets)))
	for _, elem := range targets {
		if err := c.compileStore(elem); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileBranch(s *syntax.BranchStmt) error {
	if s.Token == syntax.PASS {
		return nil
	}

	if len(c.loops) == 0 {
		return c.errorf(s, "'%s' outside loop", s.Token)
	}
	loop := c.loops[len(c.loops)-1]

	switch s.Token {
	case syntax.BREAK:
		loop.breakIPs = append(loop.breakIPs, c.currentIP())
		c.emit(taivm.OpJump)
	case syntax.CONTINUE:
		c.jumpTo(taivm.OpJump, loop.continueIP)
	}
	return nil
}

func (c *compiler) compileIf(s *syntax.IfStmt) error {
	c.line(s)
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	jumpFalseIP := c.currentIP()
	c.emit(taivm.OpJumpFalse)

	if err := c.compileStmts(s.True); err != nil {
		return err
	}

	if len(s.False) == 0 {
		c.patchJump(jumpFalseIP, c.currentIP())
		return nil
	}

	jumpEndIP := c.currentIP()
	c.emit(taivm.OpJump)
	c.patchJump(jumpFalseIP, c.currentIP())
	if err := c.compileStmts(s.False); err != nil {
		return err
	}
	c.patchJump(jumpEndIP, c.currentIP())
	return nil
}

func (c *compiler) compileWhile(s *syntax.WhileStmt) error {
	startIP := c.currentIP()
	loop := &loopContext{
		continueIP: startIP,
	}
	c.loops = append(c.loops, loop)

	c.line(s)
	if err := c.compileExpr(s.Cond); err != nil {
		return err
	}
	jumpExitIP := c.currentIP()
	c.emit(taivm.OpJumpFalse)

	if err := c.compileStmts(s.Body); err != nil {
		return err
	}
	c.jumpTo(taivm.OpJump, startIP)

	c.patchJump(jumpExitIP, c.currentIP())
	for _, ip := range loop.breakIPs {
		c.patchJump(ip, c.currentIP())
	}
	c.loops = c.loops[:len(c.loops)-1]
	return nil
}

func (c *compiler) compileFor(s *syntax.ForStmt) error {
	if err := c.compileExpr(s.X); err != nil {
		return err
	}
	c.emit(taivm.OpGetIter)

	headIP := c.currentIP()
	loop := &loopContext{
		continueIP:  headIP,
		hasIterator: true,
	}
	c.loops = append(c.loops, loop)

	c.line(s)
	nextIterIP := c.currentIP()
	c.emit(taivm.OpNextIter)
	if err := c.compileStore(s.Vars); err != nil {
		return err
	}
	if err := c.compileStmts(s.Body); err != nil {
		return err
	}
	c.jumpTo(taivm.OpJump, headIP)

	// breaks leave the iterator on the stack
	if len(loop.breakIPs) > 0 {
		breakIP := c.currentIP()
		c.emit(taivm.OpPop)
		for _, ip := range loop.breakIPs {
			c.patchJump(ip, breakIP)
		}
	}
	c.patchJump(nextIterIP, c.currentIP())

	c.loops = c.loops[:len(c.loops)-1]
	return nil
}

func (c *compiler) compileDef(s *syntax.DefStmt) error {
	if err := c.compileFunction(s.Name.Name, lineOf(s), s.Params, func(sub *compiler) error {
		return sub.compileStmts(s.Body)
	}); err != nil {
		return err
	}
	c.emit(taivm.OpStoreVar.With(c.addConst(s.Name.Name)))
	return nil
}

func (c *compiler) compileFunction(
	name string,
	line int,
	params []syntax.Expr,
	body func(sub *compiler) error,
) error {
	sub := newCompiler(name, c.source)
	if err := body(sub); err != nil {
		return err
	}
	fn := sub.toFunction()
	fn.Line = line

	var defaults []syntax.Expr
	for _, param := range params {
		switch p := param.(type) {

		case *syntax.Ident:
			if len(defaults) > 0 {
				return c.errorf(p, "non-default argument follows default argument")
			}
			if fn.VarArgs != "" || fn.VarKwargs != "" {
				return c.errorf(p, "keyword-only parameters are not supported")
			}
			fn.ParamNames = append(fn.ParamNames, p.Name)

		case *syntax.BinaryExpr:
			ident, ok := p.X.(*syntax.Ident)
			if p.Op != syntax.EQ || !ok {
				return c.errorf(p, "invalid parameter")
			}
			if fn.VarArgs != "" || fn.VarKwargs != "" {
				return c.errorf(p, "keyword-only parameters are not supported")
			}
			fn.ParamNames = append(fn.ParamNames, ident.Name)
			defaults = append(defaults, p.Y)

		case *syntax.UnaryExpr:
			ident, ok := p.X.(*syntax.Ident)
			if !ok {
				return c.errorf(p, "keyword-only parameters are not supported")
			}
			switch p.Op {
			case syntax.STAR:
				fn.VarArgs = ident.Name
			case syntax.STARSTAR:
				fn.VarKwargs = ident.Name
			default:
				return c.errorf(p, "invalid parameter")
			}

		default:
			return c.errorf(param, "invalid parameter")
		}
	}
	fn.NumDefaults = len(defaults)

	for _, d := range defaults {
		if err := c.compileExpr(d); err != nil {
			return err
		}
	}
	c.emit(taivm.OpMakeClosure.With(c.addConst(fn)))
	return nil
}

func (c *compiler) compileExpr(expr syntax.Expr) error {
	switch e := expr.(type) {
	case *syntax.Literal:
		return c.compileLiteral(e)
	case *syntax.Ident:
		switch e.Name {
		case "None":
			c.emit(taivm.OpLoadConst.With(c.addConst(nil)))
		case "True":
			c.emit(taivm.OpLoadConst.With(c.addConst(true)))
		case "False":
			c.emit(taivm.OpLoadConst.With(c.addConst(false)))
		default:
			c.emit(taivm.OpLoadVar.With(c.addConst(e.Name)))
		}
	case *syntax.UnaryExpr:
		return c.compileUnaryExpr(e)
	case *syntax.BinaryExpr:
		return c.compileBinaryExpr(e)
	case *syntax.CallExpr:
		return c.compileCallExpr(e)
	case *syntax.ListExpr:
		if err := c.compileExprs(e.List); err != nil {
			return err
		}
		c.emit(taivm.OpMakeList.With(len(e.List)))
	case *syntax.TupleExpr:
		if err := c.compileExprs(e.List); err != nil {
			return err
		}
		c.emit(taivm.OpMakeTuple.With(len(e.List)))
	case *syntax.DictExpr:
		for _, item := range e.List {
			entry := item.(*syntax.DictEntry)
			if err := c.compileExpr(entry.Key); err != nil {
				return err
			}
			if err := c.compileExpr(entry.Value); err != nil {
				return err
			}
		}
		c.emit(taivm.OpMakeDict.With(len(e.List)))
	case *syntax.IndexExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		if err := c.compileExpr(e.Y); err != nil {
			return err
		}
		c.emit(taivm.OpGetIndex)
	case *syntax.ParenExpr:
		return c.compileExpr(e.X)
	case *syntax.SliceExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		for _, part := range []syntax.Expr{e.Lo, e.Hi, e.Step} {
			if err := c.compileOptional(part); err != nil {
				return err
			}
		}
		c.emit(taivm.OpGetSlice)
	case *syntax.DotExpr:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(taivm.OpGetAttr.With(c.addConst(e.Name.Name)))
	case *syntax.CondExpr:
		return c.compileCondExpr(e)
	case *syntax.LambdaExpr:
		return c.compileFunction("<lambda>", lineOf(e), e.Params, func(sub *compiler) error {
			sub.line(e.Body)
			if err := sub.compileExpr(e.Body); err != nil {
				return err
			}
			sub.emit(taivm.OpReturn)
			return nil
		})
	case *syntax.Comprehension:
		return c.compileComprehension(e)
	default:
		return c.errorf(expr, "unsupported expression")
	}
	return nil
}

func (c *compiler) compileExprs(exprs []syntax.Expr) error {
	for _, expr := range exprs {
		if err := c.compileExpr(expr); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileOptional(expr syntax.Expr) error {
	if expr == nil {
		c.emit(taivm.OpLoadConst.With(c.addConst(nil)))
		return nil
	}
	return c.compileExpr(expr)
}

func (c *compiler) compileLiteral(e *syntax.Literal) error {
	switch v := e.Value.(type) {
	case int64:
		c.emit(taivm.OpLoadConst.With(c.addConst(v)))
	case *big.Int:
		return c.errorf(e, "integer literal too large: %s", e.Raw)
	case float64:
		c.emit(taivm.OpLoadConst.With(c.addConst(v)))
	case string:
		if e.Token == syntax.BYTES {
			c.emit(taivm.OpLoadConst.With(c.addConst(taivm.Bytes(v))))
		} else {
			c.emit(taivm.OpLoadConst.With(c.addConst(v)))
		}
	default:
		return c.errorf(e, "unsupported literal %s", e.Raw)
	}
	return nil
}

var unaryOps = map[syntax.Token]taivm.OpCode{
	syntax.MINUS: taivm.OpNeg,
	syntax.PLUS:  taivm.OpPos,
	syntax.NOT:   taivm.OpNot,
	syntax.TILDE: taivm.OpBitNot,
}

func (c *compiler) compileUnaryExpr(e *syntax.UnaryExpr) error {
	op, ok := unaryOps[e.Op]
	if !ok || e.X == nil {
		return c.errorf(e, "unexpected %s", e.Op)
	}
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	c.emit(op)
	return nil
}

var binaryOps = map[syntax.Token]taivm.OpCode{
	syntax.PLUS:       taivm.OpAdd,
	syntax.MINUS:      taivm.OpSub,
	syntax.STAR:       taivm.OpMul,
	syntax.SLASH:      taivm.OpDiv,
	syntax.SLASHSLASH: taivm.OpFloorDiv,
	syntax.PERCENT:    taivm.OpMod,
	syntax.AMP:        taivm.OpBitAnd,
	syntax.PIPE:       taivm.OpBitOr,
	syntax.CIRCUMFLEX: taivm.OpBitXor,
	syntax.LTLT:       taivm.OpBitLsh,
	syntax.GTGT:       taivm.OpBitRsh,
	syntax.EQL:        taivm.OpEq,
	syntax.NEQ:        taivm.OpNe,
	syntax.LT:         taivm.OpLt,
	syntax.LE:         taivm.OpLe,
	syntax.GT:         taivm.OpGt,
	syntax.GE:         taivm.OpGe,
	syntax.IN:         taivm.OpContains,
	syntax.NOT_IN:     taivm.OpNotContains,
}

func (c *compiler) compileBinaryExpr(e *syntax.BinaryExpr) error {
	switch e.Op {
	case syntax.AND, syntax.OR:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.emit(taivm.OpDup)
		jumpIP := c.currentIP()
		if e.Op == syntax.AND {
			c.emit(taivm.OpJumpFalse)
		} else {
			c.emit(taivm.OpJumpTrue)
		}
		c.emit(taivm.OpPop)
		if err := c.compileExpr(e.Y); err != nil {
			return err
		}
		c.patchJump(jumpIP, c.currentIP())
		return nil
	}

	op, ok := binaryOps[e.Op]
	if !ok {
		return c.errorf(e, "unsupported operator %s", e.Op)
	}
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	if err := c.compileExpr(e.Y); err != nil {
		return err
	}
	c.emit(op)
	return nil
}

func (c *compiler) compileCallExpr(e *syntax.CallExpr) error {
	if err := c.compileExpr(e.Fn); err != nil {
		return err
	}

	var positional []syntax.Expr
	var keywords []*syntax.BinaryExpr
	var star, dstar syntax.Expr
	for _, arg := range e.Args {
		switch a := arg.(type) {
		case *syntax.BinaryExpr:
			if a.Op == syntax.EQ {
				keywords = append(keywords, a)
				continue
			}
		case *syntax.UnaryExpr:
			switch a.Op {
			case syntax.STAR:
				star = a.X
				continue
			case syntax.STARSTAR:
				dstar = a.X
				continue
			}
		}
		positional = append(positional, arg)
	}
	if len(positional) > taivm.MaxCallArgs || len(keywords) > taivm.MaxCallArgs {
		return c.errorf(e, "too many arguments")
	}

	if err := c.compileExprs(positional); err != nil {
		return err
	}
	for _, kw := range keywords {
		ident, ok := kw.X.(*syntax.Ident)
		if !ok {
			return c.errorf(kw, "keyword argument must be a name")
		}
		c.emit(taivm.OpLoadConst.With(c.addConst(ident.Name)))
		if err := c.compileExpr(kw.Y); err != nil {
			return err
		}
	}
	if star != nil {
		if err := c.compileExpr(star); err != nil {
			return err
		}
	}
	if dstar != nil {
		if err := c.compileExpr(dstar); err != nil {
			return err
		}
	}

	c.emit(taivm.OpCall.With(taivm.EncodeCall(
		len(positional),
		len(keywords),
		star != nil,
		dstar != nil,
	)))
	return nil
}

func (c *compiler) compileCondExpr(e *syntax.CondExpr) error {
	if err := c.compileExpr(e.Cond); err != nil {
		return err
	}
	jumpFalseIP := c.currentIP()
	c.emit(taivm.OpJumpFalse)
	if err := c.compileExpr(e.True); err != nil {
		return err
	}
	jumpEndIP := c.currentIP()
	c.emit(taivm.OpJump)
	c.patchJump(jumpFalseIP, c.currentIP())
	if err := c.compileExpr(e.False); err != nil {
		return err
	}
	c.patchJump(jumpEndIP, c.currentIP())
	return nil
}

func (c *compiler) compileComprehension(e *syntax.Comprehension) error {
	var entry *syntax.DictEntry
	if e.Curly {
		var ok bool
		entry, ok = e.Body.(*syntax.DictEntry)
		if !ok {
			return c.errorf(e, "set comprehension is not supported")
		}
	}

	c.emit(taivm.OpEnterScope)
	if e.Curly {
		c.emit(taivm.OpMakeDict.With(0))
	} else {
		c.emit(taivm.OpMakeList.With(0))
	}

	type clauseLoop struct {
		headIP int
	}
	var loops []clauseLoop
	for _, clause := range e.Clauses {
		switch cl := clause.(type) {
		case *syntax.ForClause:
			if err := c.compileExpr(cl.X); err != nil {
				return err
			}
			c.emit(taivm.OpGetIter)
			loops = append(loops, clauseLoop{
				headIP: c.currentIP(),
			})
			c.emit(taivm.OpNextIter)
			if err := c.compileStore(cl.Vars); err != nil {
				return err
			}
		case *syntax.IfClause:
			if len(loops) == 0 {
				return c.errorf(cl, "comprehension must start with a for clause")
			}
			if err := c.compileExpr(cl.Cond); err != nil {
				return err
			}
			c.jumpTo(taivm.OpJumpFalse, loops[len(loops)-1].headIP)
		}
	}

	if entry != nil {
		if err := c.compileExpr(entry.Key); err != nil {
			return err
		}
		if err := c.compileExpr(entry.Value); err != nil {
			return err
		}
		c.emit(taivm.OpDictSet.With(len(loops)))
	} else {
		if err := c.compileExpr(e.Body); err != nil {
			return err
		}
		c.emit(taivm.OpListAppend.With(len(loops)))
	}

	for i := len(loops) - 1; i >= 0; i-- {
		c.jumpTo(taivm.OpJump, loops[i].headIP)
		c.patchJump(loops[i].headIP, c.currentIP())
	}
	c.emit(taivm.OpLeaveScope)
	return nil
}
