package optimize

import (
	"github.com/cespare/xxhash/v2"
	"tlog.app/go/tlog"

	"github.com/raymyers/tacc/pkg/config"
	"github.com/raymyers/tacc/pkg/tac"
)

// Pass is a named list-to-list transformation gated by a feature toggle.
type Pass struct {
	Name    string
	Feature config.Feature
	Run     func([]tac.Instruction) []tac.Instruction
}

var (
	SimplifyPass  = Pass{"simplify", config.FeatSimplify, Simplify}
	FoldPass      = Pass{"fold", config.FeatFold, Fold}
	PropagatePass = Pass{"propagate", config.FeatPropagate, Propagate}
	DCEPass       = Pass{"dce", config.FeatDCE, EliminateDeadCode}
	CoalescePass  = Pass{"coalesce", config.FeatCoalesce, Coalesce}
	TunnelPass    = Pass{"tunnel", config.FeatTunnel, Tunnel}
	CleanupPass   = Pass{"cleanup-labels", config.FeatCleanupLabels, CleanupLabels}
)

// FixpointPasses is one round of the fixpoint loop, in order.
var FixpointPasses = []Pass{SimplifyPass, FoldPass, PropagatePass, DCEPass}

// Level selects an optimization preset.
type Level int

const (
	O0 Level = iota // no optimization
	O1              // fixpoint
	O2              // fixpoint, jump cleanup, coalescing, fixpoint
)

// Driver runs passes under a configuration.
type Driver struct {
	cfg *config.Config

	// Rounds is the number of fixpoint rounds in the last Run, summed over
	// every fixpoint it performed.
	Rounds int
}

// NewDriver creates a driver. A nil config means defaults.
func NewDriver(cfg *config.Config) *Driver {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Driver{cfg: cfg}
}

// Run optimizes code at the given level.
func (d *Driver) Run(level Level, code []tac.Instruction) []tac.Instruction {
	d.Rounds = 0
	switch level {
	case O0:
		return code
	case O1:
		return d.Fixpoint(code)
	default:
		code = d.Fixpoint(code)
		code = d.Apply(code, TunnelPass, CleanupPass, CoalescePass, FoldPass)
		return d.Fixpoint(code)
	}
}

// Apply runs each enabled pass once, in order.
func (d *Driver) Apply(code []tac.Instruction, passes ...Pass) []tac.Instruction {
	for _, p := range passes {
		if !d.cfg.IsFeatureEnabled(p.Feature) {
			continue
		}
		code = p.Run(code)
		if tlog.If("optimize") {
			tlog.Printw("pass", "name", p.Name, "instructions", len(code))
		}
	}
	return code
}

// Fixpoint repeats FixpointPasses until a round leaves the list unchanged.
// A round that reproduces an earlier list, or hitting MaxRounds, also stops.
func (d *Driver) Fixpoint(code []tac.Instruction) []tac.Instruction {
	seen := map[uint64]bool{fingerprint(code): true}

	for round := 1; round <= d.cfg.MaxRounds; round++ {
		d.Rounds++
		next := d.Apply(code, FixpointPasses...)
		if tac.Equal(next, code) {
			tlog.V("optimize").Printw("fixpoint reached", "rounds", round, "instructions", len(next))
			return next
		}

		fp := fingerprint(next)
		if seen[fp] {
			tlog.V("optimize").Printw("fixpoint cycle", "rounds", round)
			return next
		}
		seen[fp] = true
		code = next
	}

	tlog.V("optimize").Printw("fixpoint round limit", "max_rounds", d.cfg.MaxRounds)
	return code
}

// fingerprint hashes the textual form of a list.
func fingerprint(code []tac.Instruction) uint64 {
	h := xxhash.New()
	for _, inst := range code {
		_, _ = h.WriteString(inst.String())
		_, _ = h.WriteString("\n")
	}
	return h.Sum64()
}
