package optimize

import "github.com/raymyers/tacc/pkg/tac"

// Propagate substitutes known constants and copies into later operands.
//
// A bare copy records name -> value, with the value already resolved, so a
// single lookup is enough. Facts about a name are dropped when the name, or
// the name it was copied from, is redefined. Any label starts with an empty
// table, as does the instruction after a call.
func Propagate(code []tac.Instruction) []tac.Instruction {
	facts := make(map[tac.Operand]tac.Operand)
	out := make([]tac.Instruction, 0, len(code))

	for _, inst := range code {
		if inst.Label != "" {
			clear(facts)
		}

		inst = substitute(inst, facts)

		if d := inst.Def(); d.Present() {
			invalidate(facts, d)
		}
		if inst.Op == tac.OpCall {
			clear(facts)
		}
		if inst.IsBareCopy() && inst.Arg1.Present() && inst.Result != inst.Arg1 {
			facts[inst.Result] = inst.Arg1
		}

		out = append(out, inst)
	}
	return out
}

func substitute(inst tac.Instruction, facts map[tac.Operand]tac.Operand) tac.Instruction {
	if len(facts) == 0 {
		return inst
	}
	resolve := func(o tac.Operand) tac.Operand {
		if v, ok := facts[o]; ok {
			return v
		}
		return o
	}

	switch {
	case inst.Op == tac.OpCall:
		args := inst.CallArgs()
		for i, a := range args {
			args[i] = resolve(a)
		}
		inst.Arg2 = tac.JoinArgs(args)
	case inst.Op == tac.OpCopy, inst.Op == tac.OpIf, inst.Op == tac.OpReturn:
		inst.Arg1 = resolve(inst.Arg1)
	case inst.Op.IsBinary():
		inst.Arg1 = resolve(inst.Arg1)
		inst.Arg2 = resolve(inst.Arg2)
	}
	return inst
}

func invalidate(facts map[tac.Operand]tac.Operand, name tac.Operand) {
	delete(facts, name)
	for k, v := range facts {
		if v == name {
			delete(facts, k)
		}
	}
}
