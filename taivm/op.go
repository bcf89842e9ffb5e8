package taivm

type OpCode uint32

const (
	OpLoadConst OpCode = iota + 8
	OpLoadVar
	OpStoreVar
	OpPop
	OpDup
	OpDup2
	OpRot3
	OpJump
	OpJumpFalse
	OpJumpTrue
	OpLine
	OpCall
	OpReturn
	OpMakeClosure
	OpMakeList
	OpMakeTuple
	OpMakeDict
	OpGetIndex
	OpSetIndex
	OpGetSlice
	OpGetAttr
	OpGetIter
	OpNextIter
	OpUnpack
	OpListAppend
	OpDictSet
	OpEnterScope
	OpLeaveScope
	OpNeg
	OpPos
	OpNot
	OpBitNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitLsh
	OpBitRsh
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpContains
	OpNotContains
)

func (o OpCode) With(arg int) OpCode {
	return o | (OpCode(arg) << 8)
}

// call operand layout
const (
	CallArgcBits  = 8
	CallKwcShift  = 8
	CallStarFlag  = 1 << 16
	CallDStarFlag = 1 << 17
	MaxCallArgs   = 1<<CallArgcBits - 1
)

// EncodeCall packs positional count, keyword count and star flags into an OpCall argument.
func EncodeCall(argc, kwc int, star, dstar bool) int {
	arg := argc | kwc<<CallKwcShift
	if star {
		arg |= CallStarFlag
	}
	if dstar {
		arg |= CallDStarFlag
	}
	return arg
}

func decodeCall(arg int) (argc, kwc int, star, dstar bool) {
	argc = arg & MaxCallArgs
	kwc = (arg >> CallKwcShift) & MaxCallArgs
	star = arg&CallStarFlag != 0
	dstar = arg&CallDStarFlag != 0
	return
}

var opNames = map[OpCode]string{
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpFloorDiv: "//",
	OpMod:      "%",
	OpBitAnd:   "&",
	OpBitOr:    "|",
	OpBitXor:   "^",
	OpBitLsh:   "<<",
	OpBitRsh:   ">>",
	OpEq:       "==",
	OpNe:       "!=",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpNeg:      "unary -",
	OpPos:      "unary +",
	OpBitNot:   "unary ~",
}

func (o OpCode) String() string {
	if name, ok := opNames[o&0xff]; ok {
		return name
	}
	return "op"
}
