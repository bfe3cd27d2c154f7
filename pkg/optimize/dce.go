package optimize

import "github.com/raymyers/tacc/pkg/tac"

// EliminateDeadCode removes instructions whose result is read nowhere in the
// list. Liveness is approximated over the whole list, not per block, so a
// name read anywhere keeps every definition of it alive. Branches and calls
// are never removed. A removed instruction's label is kept as a bare label.
func EliminateDeadCode(code []tac.Instruction) []tac.Instruction {
	used := readSet(code)

	out := make([]tac.Instruction, 0, len(code))
	for _, inst := range code {
		if !isDead(inst, used) {
			out = append(out, inst)
			continue
		}
		if inst.Label != "" {
			out = append(out, tac.Label(inst.Label))
		}
	}
	return out
}

func isDead(inst tac.Instruction, used map[tac.Operand]int) bool {
	if inst.Op == tac.OpIf || inst.Op == tac.OpCall {
		return false
	}
	d := inst.Def()
	return d.Present() && used[d] == 0
}

// readSet counts how often each operand is read.
func readSet(code []tac.Instruction) map[tac.Operand]int {
	used := make(map[tac.Operand]int)
	for _, inst := range code {
		for _, u := range inst.Uses() {
			used[u]++
		}
	}
	return used
}
