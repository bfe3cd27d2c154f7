package asmgen

import (
	"tlog.app/go/errors"

	"github.com/raymyers/tacc/pkg/asm"
	"github.com/raymyers/tacc/pkg/config"
	"github.com/raymyers/tacc/pkg/symtab"
	"github.com/raymyers/tacc/pkg/tac"
)

// x86-64 frame layout (called function's view):
//
//	+---------------------------+
//	| stack arguments 5, 6, ... |  +16, +24, ... from rbp
//	| return address            |  +8 from rbp
//	| saved rbp                 |  <- rbp
//	+---------------------------+
//	| locals, first use first   |  -8, -16, ... from rbp
//	+---------------------------+  <- rsp (16-byte aligned)
//
// The first arguments arrive in the argument registers and stay there.

// Frame maps the names used by one function to their locations.
type Frame struct {
	Function string

	Params  []string // declaration order
	Locals  []string // first-use order
	Globals []string // first-use order

	Locations map[tac.Operand]asm.Operand

	LocalSize int64 // one word per local
	Size      int64 // LocalSize rounded up to the stack alignment
}

// NewFrame lays out the frame of fn, whose instructions are body.
func NewFrame(fn string, body []tac.Instruction, syms *symtab.Table, cfg *config.Config) *Frame {
	f := &Frame{
		Function:  fn,
		Locations: make(map[tac.Operand]asm.Operand),
	}
	word := int64(cfg.WordSize)

	for i, p := range syms.FunctionParams(fn) {
		name := tac.Operand(p.Name)
		f.Params = append(f.Params, p.Name)
		if i < len(cfg.ArgRegisters) {
			f.Locations[name] = asm.Reg(cfg.ArgRegisters[i])
		} else {
			f.Locations[name] = asm.Mem{Base: asm.RBP, Offset: 2*word + word*int64(i-len(cfg.ArgRegisters))}
		}
	}

	for _, name := range collectNames(body) {
		if _, ok := f.Locations[name]; ok {
			continue
		}
		if isGlobalVariable(syms, string(name), fn) {
			f.Globals = append(f.Globals, string(name))
			f.Locations[name] = asm.Sym(name)
			continue
		}
		f.Locals = append(f.Locals, string(name))
		f.Locations[name] = asm.Mem{Base: asm.RBP, Offset: -word * int64(len(f.Locals))}
	}

	f.LocalSize = word * int64(len(f.Locals))
	f.Size = alignUp(f.LocalSize, int64(cfg.StackAlignment))
	return f
}

// Location returns where name lives.
func (f *Frame) Location(name tac.Operand) (asm.Operand, error) {
	loc, ok := f.Locations[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownVariable, "%s in %s", name, f.Function)
	}
	return loc, nil
}

// ParamRegisters returns the argument registers holding parameters.
func (f *Frame) ParamRegisters() []asm.Reg {
	var regs []asm.Reg
	for _, p := range f.Params {
		if r, ok := f.Locations[tac.Operand(p)].(asm.Reg); ok {
			regs = append(regs, r)
		}
	}
	return regs
}

// HoldsRegister reports whether a parameter lives in reg.
func (f *Frame) HoldsRegister(reg asm.Reg) bool {
	for _, r := range f.ParamRegisters() {
		if r == reg {
			return true
		}
	}
	return false
}

// collectNames returns the distinct named operands of body in first-use order.
func collectNames(body []tac.Instruction) []tac.Operand {
	seen := make(map[tac.Operand]bool)
	var names []tac.Operand
	add := func(o tac.Operand) {
		if o.IsName() && !seen[o] {
			seen[o] = true
			names = append(names, o)
		}
	}
	for _, inst := range body {
		for _, u := range inst.Uses() {
			add(u)
		}
		add(inst.Def())
	}
	return names
}

func isGlobalVariable(syms *symtab.Table, name, fn string) bool {
	e := syms.Lookup(name, fn)
	return e != nil && e.Scope == symtab.Global && e.Kind == symtab.Variable
}

// alignUp rounds n up to a multiple of align
func alignUp(n, align int64) int64 {
	if align == 0 {
		return n
	}
	return ((n + align - 1) / align) * align
}
