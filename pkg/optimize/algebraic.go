package optimize

import "github.com/raymyers/tacc/pkg/tac"

// Simplify rewrites algebraic identities into plain copies:
//
//	x+0 = x    0+x = x    x-0 = x    x-x = 0
//	x*1 = x    1*x = x    x*0 = 0    0*x = 0
//	x/1 = x    x/x = 1    0/x = 0
//
// x/x only applies when x is not the literal 0, and 0/x only when x is not
// the literal 0.
func Simplify(code []tac.Instruction) []tac.Instruction {
	out := make([]tac.Instruction, len(code))
	for i, inst := range code {
		if v, ok := simplifyInstruction(inst); ok {
			out[i] = tac.Copy(inst.Result, v).WithLabel(inst.Label)
		} else {
			out[i] = inst
		}
	}
	return out
}

func simplifyInstruction(inst tac.Instruction) (tac.Operand, bool) {
	if !inst.Op.IsArith() || !inst.Result.Present() {
		return tac.NoOperand, false
	}
	x, y := inst.Arg1, inst.Arg2

	switch inst.Op {
	case tac.OpAdd:
		switch {
		case isZero(y):
			return x, true
		case isZero(x):
			return y, true
		}
	case tac.OpSub:
		switch {
		case isZero(y):
			return x, true
		case x == y && x.IsName():
			return "0", true
		}
	case tac.OpMul:
		switch {
		case isOne(y):
			return x, true
		case isOne(x):
			return y, true
		case isZero(x), isZero(y):
			return "0", true
		}
	case tac.OpDiv:
		switch {
		case isOne(y):
			return x, true
		case x == y && !isZero(x):
			return "1", true
		case isZero(x) && !isZero(y):
			return "0", true
		}
	}
	return tac.NoOperand, false
}

func isZero(o tac.Operand) bool {
	v, ok := numeric(o)
	return ok && v == 0
}

func isOne(o tac.Operand) bool {
	v, ok := numeric(o)
	return ok && v == 1
}

func numeric(o tac.Operand) (float64, bool) {
	if !o.IsNumeric() {
		return 0, false
	}
	return o.Float()
}
