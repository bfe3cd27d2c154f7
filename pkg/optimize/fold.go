// Package optimize implements the TAC optimization passes and the driver
// that runs them to a fixpoint. Every pass maps an instruction list to a new
// list and leaves its input untouched.
package optimize

import "github.com/raymyers/tacc/pkg/tac"

// Fold evaluates arithmetic whose operands are both literals, replacing the
// instruction with a copy of the computed value.
//
// Integer operands fold with int64 semantics, so division truncates toward
// zero (3/2 is 1, -7/2 is -3). A float literal on either side folds in
// float64. Division by zero is left alone.
func Fold(code []tac.Instruction) []tac.Instruction {
	out := make([]tac.Instruction, len(code))
	for i, inst := range code {
		out[i] = foldInstruction(inst)
	}
	return out
}

func foldInstruction(inst tac.Instruction) tac.Instruction {
	if !inst.Op.IsArith() || !inst.Arg1.IsNumeric() || !inst.Arg2.IsNumeric() {
		return inst
	}
	v, ok := evaluate(inst.Op, inst.Arg1, inst.Arg2)
	if !ok {
		return inst
	}
	return tac.Copy(inst.Result, v).WithLabel(inst.Label)
}

func evaluate(op tac.Op, lhs, rhs tac.Operand) (tac.Operand, bool) {
	a, aok := lhs.Int()
	b, bok := rhs.Int()
	if aok && bok {
		switch op {
		case tac.OpAdd:
			return tac.Int64(a + b), true
		case tac.OpSub:
			return tac.Int64(a - b), true
		case tac.OpMul:
			return tac.Int64(a * b), true
		case tac.OpDiv:
			if b == 0 {
				return tac.NoOperand, false
			}
			return tac.Int64(a / b), true
		}
		return tac.NoOperand, false
	}

	x, xok := lhs.Float()
	y, yok := rhs.Float()
	if !xok || !yok {
		return tac.NoOperand, false
	}
	switch op {
	case tac.OpAdd:
		return tac.Float64(x + y), true
	case tac.OpSub:
		return tac.Float64(x - y), true
	case tac.OpMul:
		return tac.Float64(x * y), true
	case tac.OpDiv:
		if y == 0 {
			return tac.NoOperand, false
		}
		return tac.Float64(x / y), true
	}
	return tac.NoOperand, false
}
