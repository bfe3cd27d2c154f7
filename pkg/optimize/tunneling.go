// Branch tunneling for TAC.
// This pass shortcuts jumps that jump to other jumps.
// E.g., "goto .L1" where .L1 is "goto .L2" becomes "goto .L2"
package optimize

import "github.com/raymyers/tacc/pkg/tac"

// Tunnel retargets branches through chains of unconditional jumps.
func Tunnel(code []tac.Instruction) []tac.Instruction {
	if len(code) == 0 {
		return code
	}

	// label -> what it jumps to (if just a goto)
	jumpTargets := buildJumpTargetMap(code)
	resolved := resolveChains(jumpTargets)

	out := make([]tac.Instruction, len(code))
	for i, inst := range code {
		out[i] = tunnelInstruction(inst, resolved)
	}
	return out
}

// buildJumpTargetMap finds labels whose first real instruction is a goto,
// either on the labeled instruction itself or right after a bare label.
func buildJumpTargetMap(code []tac.Instruction) map[string]string {
	result := make(map[string]string)

	for i, inst := range code {
		if inst.Label == "" {
			continue
		}
		switch {
		case inst.Op == tac.OpGoto:
			result[inst.Label] = string(inst.Result)
		case inst.IsLabelOnly() && i+1 < len(code) && code[i+1].Op == tac.OpGoto:
			result[inst.Label] = string(code[i+1].Result)
		}
	}

	return result
}

// resolveChains follows jump chains to their ultimate target.
func resolveChains(jumpTargets map[string]string) map[string]string {
	result := make(map[string]string, len(jumpTargets))
	for lbl := range jumpTargets {
		result[lbl] = resolveLabel(lbl, jumpTargets)
	}
	return result
}

// resolveLabel follows a jump chain to its ultimate target.
// A cycle resolves to the label where it was detected.
func resolveLabel(lbl string, jumpTargets map[string]string) string {
	visited := make(map[string]bool)
	current := lbl

	for {
		if visited[current] {
			return current
		}
		visited[current] = true

		target, ok := jumpTargets[current]
		if !ok {
			return current
		}
		current = target
	}
}

func tunnelInstruction(inst tac.Instruction, resolved map[string]string) tac.Instruction {
	retarget := func(o tac.Operand) tac.Operand {
		if target, ok := resolved[string(o)]; ok {
			return tac.Operand(target)
		}
		return o
	}

	switch inst.Op {
	case tac.OpGoto:
		inst.Result = retarget(inst.Result)
	case tac.OpIf:
		inst.Arg2 = retarget(inst.Arg2)
		inst.Result = retarget(inst.Result)
	}
	return inst
}
