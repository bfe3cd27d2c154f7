package optimize

import "github.com/raymyers/tacc/pkg/tac"

// Coalesce folds "dst = src" into the instruction right before it when that
// instruction computed src, renaming its result to dst:
//
//	t1 = a + b          x = a + b
//	x = t1         =>
//
// The copy must carry no label, and src must be read by this copy only.
func Coalesce(code []tac.Instruction) []tac.Instruction {
	reads := readSet(code)

	out := make([]tac.Instruction, 0, len(code))
	for _, inst := range code {
		if n := len(out); n > 0 && canCoalesce(out[n-1], inst, reads) {
			out[n-1].Result = inst.Result
			continue
		}
		out = append(out, inst)
	}
	return out
}

func canCoalesce(prev, cp tac.Instruction, reads map[tac.Operand]int) bool {
	if !cp.IsBareCopy() || cp.Label != "" || !cp.Arg1.IsName() {
		return false
	}
	d := prev.Def()
	return d.Present() && d == cp.Arg1 && reads[d] == 1
}
