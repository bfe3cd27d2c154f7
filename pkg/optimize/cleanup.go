// Label cleanup for TAC.
// This pass removes synthesized labels that are not referenced by any branch.
package optimize

import "github.com/raymyers/tacc/pkg/tac"

// CleanupLabels drops unreferenced synthesized labels. Function labels are
// always kept. A bare label disappears; a labeled instruction loses its label.
func CleanupLabels(code []tac.Instruction) []tac.Instruction {
	if len(code) == 0 {
		return code
	}

	used := collectUsedLabels(code)

	out := make([]tac.Instruction, 0, len(code))
	for _, inst := range code {
		if inst.Label == "" || tac.IsFunctionLabel(inst.Label) || used[inst.Label] {
			out = append(out, inst)
			continue
		}
		if inst.IsLabelOnly() {
			continue
		}
		inst.Label = ""
		out = append(out, inst)
	}
	return out
}

// collectUsedLabels returns all labels that are targets of branches.
func collectUsedLabels(code []tac.Instruction) map[string]bool {
	used := make(map[string]bool)
	for _, inst := range code {
		for _, target := range inst.Targets() {
			used[target] = true
		}
	}
	return used
}
