// Package asmgen translates TAC to x86-64 assembly.
//
// Each function gets a frame pointer based frame. The first four parameters
// stay in their argument registers (rcx, rdx, r8, r9), further parameters
// are read from the caller's pushes, and every other name gets a stack slot.
// All arithmetic is staged through rax.
package asmgen

import (
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/tacc/pkg/asm"
	"github.com/raymyers/tacc/pkg/config"
	"github.com/raymyers/tacc/pkg/symtab"
	"github.com/raymyers/tacc/pkg/tac"
)

var (
	// ErrUnknownVariable is returned for a name with no location.
	ErrUnknownVariable = errors.New("unknown variable")

	// ErrNonIntegerLiteral is returned for literals the integer backend
	// cannot represent.
	ErrNonIntegerLiteral = errors.New("non-integer literal")

	// ErrGlobalInit is returned for code outside a function that is not a
	// constant global initializer.
	ErrGlobalInit = errors.New("non-constant global initializer")
)

// Assembler holds the state of one translation.
type Assembler struct {
	syms *symtab.Table
	cfg  *config.Config

	argRegs []asm.Reg
	acc     asm.Reg // accumulator and return value
	scratch asm.Reg // divisor and wide immediates
	saveRDX asm.Reg // holds rdx across cqo/idiv

	// per function
	fn       *asm.Function
	frame    *Frame
	exit     string
	needExit bool
}

// New creates an assembler. A nil config means defaults.
func New(syms *symtab.Table, cfg *config.Config) *Assembler {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	a := &Assembler{
		syms:    syms,
		cfg:     cfg,
		acc:     asm.Reg(cfg.ReturnRegister),
		scratch: asm.Reg(cfg.ScratchRegister),
		saveRDX: asm.R10,
	}
	for _, r := range cfg.ArgRegisters {
		a.argRegs = append(a.argRegs, asm.Reg(r))
	}
	return a
}

// Assemble translates a whole instruction list.
func Assemble(code []tac.Instruction, syms *symtab.Table, cfg *config.Config) (*asm.Program, error) {
	return New(syms, cfg).Assemble(code)
}

type funcCode struct {
	name string
	body []tac.Instruction
}

// splitFunctions separates top-level code from function bodies. A function
// runs from its label up to the next function label.
func splitFunctions(code []tac.Instruction) (top []tac.Instruction, funcs []funcCode) {
	for _, inst := range code {
		if tac.IsFunctionLabel(inst.Label) {
			funcs = append(funcs, funcCode{name: inst.Label})
		}
		if len(funcs) == 0 {
			top = append(top, inst)
			continue
		}
		last := &funcs[len(funcs)-1]
		last.body = append(last.body, inst)
	}
	return top, funcs
}

// Assemble translates code into a program.
func (a *Assembler) Assemble(code []tac.Instruction) (*asm.Program, error) {
	top, funcs := splitFunctions(code)

	globals, err := a.globals(top)
	if err != nil {
		return nil, err
	}
	prog := &asm.Program{Globals: globals}

	for _, fc := range funcs {
		fn, err := a.function(fc.name, fc.body)
		if err != nil {
			return nil, errors.Wrap(err, "func %s", fc.name)
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

// globals collects global variables in declaration order, initialized from
// the literal copies that precede the first function.
func (a *Assembler) globals(top []tac.Instruction) ([]asm.GlobVar, error) {
	var vars []asm.GlobVar
	index := make(map[string]int)
	for _, e := range a.syms.Entries(symtab.Global) {
		if e.Kind != symtab.Variable {
			continue
		}
		index[e.Name] = len(vars)
		vars = append(vars, asm.GlobVar{Name: e.Name})
	}

	for _, inst := range top {
		if inst.IsLabelOnly() {
			return nil, errors.Wrap(ErrGlobalInit, "label %s outside a function", inst.Label)
		}
		if !inst.IsBareCopy() || !inst.Arg1.IsNumeric() {
			return nil, errors.Wrap(ErrGlobalInit, "%s", inst)
		}
		i, ok := index[string(inst.Result)]
		if !ok {
			return nil, errors.Wrap(ErrUnknownVariable, "global %s", inst.Result)
		}
		v, ok := inst.Arg1.Int()
		if !ok {
			return nil, errors.Wrap(ErrNonIntegerLiteral, "%s", inst)
		}
		vars[i].Init = v
	}
	return vars, nil
}

func (a *Assembler) function(name string, body []tac.Instruction) (*asm.Function, error) {
	a.frame = NewFrame(name, body, a.syms, a.cfg)
	a.fn = asm.NewFunction(name)
	a.exit = ".L" + name + "_exit"
	a.needExit = false

	a.fn.AppendLabel(name)
	a.emit(asm.PUSH, asm.RBP)
	a.emit(asm.MOV, asm.RBP, asm.RSP)
	if a.frame.Size > 0 {
		a.emit(asm.SUB, asm.RSP, asm.Imm(a.frame.Size))
	}

	for i, inst := range body {
		if i > 0 && inst.Label != "" {
			a.fn.AppendLabel(inst.Label)
		}
		if err := a.instruction(inst, i == len(body)-1); err != nil {
			return nil, errors.Wrap(err, "%s", inst)
		}
	}

	if a.needExit {
		a.fn.AppendLabel(a.exit)
	}
	a.emit(asm.MOV, asm.RSP, asm.RBP)
	a.emit(asm.POP, asm.RBP)
	a.emit(asm.RET)

	tlog.V("asmgen").Printw("function", "name", name, "params", len(a.frame.Params),
		"locals", len(a.frame.Locals), "frame", a.frame.Size, "instructions", len(a.fn.Code))
	return a.fn, nil
}

var arithOps = map[tac.Op]asm.Op{
	tac.OpAdd: asm.ADD,
	tac.OpSub: asm.SUB,
	tac.OpMul: asm.IMUL,
}

var setOps = map[tac.Op]asm.Op{
	tac.OpLt: asm.SETL,
	tac.OpGt: asm.SETG,
	tac.OpEq: asm.SETE,
	tac.OpNe: asm.SETNE,
}

func (a *Assembler) instruction(inst tac.Instruction, last bool) error {
	switch {
	case inst.Op == tac.OpNone:
		return nil
	case inst.Op == tac.OpCopy:
		return a.copyInst(inst)
	case inst.Op == tac.OpDiv:
		return a.divide(inst)
	case inst.Op.IsArith():
		return a.arith(inst)
	case inst.Op.IsCompare():
		return a.compare(inst)
	case inst.Op == tac.OpReturn:
		return a.ret(inst, last)
	case inst.Op == tac.OpIf:
		return a.branch(inst)
	case inst.Op == tac.OpGoto:
		a.emit(asm.JMP, asm.LabelRef(inst.Result))
		return nil
	case inst.Op == tac.OpCall:
		return a.call(inst)
	}
	return errors.New("cannot assemble %s", inst)
}

func (a *Assembler) copyInst(inst tac.Instruction) error {
	dst, err := a.operand(inst.Result)
	if err != nil {
		return err
	}
	src, err := a.operand(inst.Arg1)
	if err != nil {
		return err
	}
	a.move(dst, src)
	return nil
}

func (a *Assembler) binaryOperands(inst tac.Instruction) (dst, lhs, rhs asm.Operand, err error) {
	if dst, err = a.operand(inst.Result); err != nil {
		return
	}
	if lhs, err = a.operand(inst.Arg1); err != nil {
		return
	}
	rhs, err = a.operand(inst.Arg2)
	return
}

func (a *Assembler) arith(inst tac.Instruction) error {
	dst, lhs, rhs, err := a.binaryOperands(inst)
	if err != nil {
		return err
	}
	a.load(a.acc, lhs)
	a.emit(arithOps[inst.Op], a.acc, a.aluSource(rhs))
	a.move(dst, a.acc)
	return nil
}

func (a *Assembler) compare(inst tac.Instruction) error {
	dst, lhs, rhs, err := a.binaryOperands(inst)
	if err != nil {
		return err
	}
	a.load(a.acc, lhs)
	a.emit(asm.CMP, a.acc, a.aluSource(rhs))
	a.emit(setOps[inst.Op], asm.AL)
	a.emit(asm.MOVZX, a.acc, asm.AL)
	a.move(dst, a.acc)
	return nil
}

// divide sign-extends rax into rdx:rax and divides. A parameter living in
// rdx is parked in r10 around the division.
func (a *Assembler) divide(inst tac.Instruction) error {
	dst, lhs, rhs, err := a.binaryOperands(inst)
	if err != nil {
		return err
	}
	a.load(a.acc, lhs)

	divisor := rhs
	switch rhs.(type) {
	case asm.Imm, asm.Reg:
		a.load(a.scratch, rhs)
		divisor = a.scratch
	}

	keepRDX := a.frame.HoldsRegister(asm.RDX)
	if keepRDX {
		a.emit(asm.MOV, a.saveRDX, asm.RDX)
	}
	a.emit(asm.CQO)
	a.emit(asm.IDIV, divisor)
	if keepRDX {
		a.emit(asm.MOV, asm.RDX, a.saveRDX)
	}
	a.move(dst, a.acc)
	return nil
}

func (a *Assembler) ret(inst tac.Instruction, last bool) error {
	if inst.Arg1.Present() {
		v, err := a.operand(inst.Arg1)
		if err != nil {
			return err
		}
		a.load(a.acc, v)
	}
	if !last {
		a.emit(asm.JMP, asm.LabelRef(a.exit))
		a.needExit = true
	}
	return nil
}

func (a *Assembler) branch(inst tac.Instruction) error {
	cond, err := a.operand(inst.Arg1)
	if err != nil {
		return err
	}
	a.load(a.acc, cond)
	a.emit(asm.CMP, a.acc, asm.Imm(0))
	a.emit(asm.JNE, asm.LabelRef(inst.Arg2))
	a.emit(asm.JMP, asm.LabelRef(inst.Result))
	return nil
}

// call follows the calling convention: arguments past the registers are
// pushed in reverse so the fifth lands nearest the return address, and rsp
// is 16-byte aligned at the call. This function's own register parameters
// are saved around the call.
func (a *Assembler) call(inst tac.Instruction) error {
	var args []asm.Operand
	for _, arg := range inst.CallArgs() {
		v, err := a.operand(arg)
		if err != nil {
			return err
		}
		args = append(args, v)
	}

	saved := a.frame.ParamRegisters()
	for _, r := range saved {
		a.emit(asm.PUSH, r)
	}

	nReg := min(len(args), len(a.argRegs))
	nStack := len(args) - nReg
	pad := (len(saved) + nStack) % 2
	if pad != 0 {
		a.emit(asm.SUB, asm.RSP, asm.Imm(a.cfg.WordSize))
	}
	for i := len(args) - 1; i >= nReg; i-- {
		a.push(args[i])
	}
	a.loadArgs(args[:nReg])

	a.emit(asm.CALL, asm.LabelRef(inst.Arg1))

	if cleanup := int64(a.cfg.WordSize) * int64(nStack+pad); cleanup > 0 {
		a.emit(asm.ADD, asm.RSP, asm.Imm(cleanup))
	}
	for i := len(saved) - 1; i >= 0; i-- {
		a.emit(asm.POP, saved[i])
	}

	if inst.Result.Present() {
		dst, err := a.operand(inst.Result)
		if err != nil {
			return err
		}
		a.move(dst, a.acc)
	}
	return nil
}

// loadArgs moves arguments into the argument registers. When a source is
// itself an argument register the moves go through the stack, so no
// argument is overwritten before it is read.
func (a *Assembler) loadArgs(args []asm.Operand) {
	overlap := false
	for _, arg := range args {
		if r, ok := arg.(asm.Reg); ok && a.isArgReg(r) {
			overlap = true
		}
	}

	if !overlap {
		for i, arg := range args {
			a.load(a.argRegs[i], arg)
		}
		return
	}
	for i := len(args) - 1; i >= 0; i-- {
		a.push(args[i])
	}
	for i := range args {
		a.emit(asm.POP, a.argRegs[i])
	}
}

func (a *Assembler) isArgReg(r asm.Reg) bool {
	for _, ar := range a.argRegs {
		if ar == r {
			return true
		}
	}
	return false
}

func (a *Assembler) emit(op asm.Op, operands ...asm.Operand) {
	a.fn.Append(asm.Inst(op, operands...))
}

// operand resolves a TAC operand to an immediate or a location.
func (a *Assembler) operand(o tac.Operand) (asm.Operand, error) {
	if o.IsNumeric() {
		v, ok := o.Int()
		if !ok {
			return nil, errors.Wrap(ErrNonIntegerLiteral, "%s", o)
		}
		return asm.Imm(v), nil
	}
	return a.frame.Location(o)
}

// load puts src in reg.
func (a *Assembler) load(reg asm.Reg, src asm.Operand) {
	if src == asm.Operand(reg) {
		return
	}
	a.emit(asm.MOV, reg, src)
}

// move copies src to dst, staging through the accumulator when both are in
// memory or the immediate is too wide to store directly.
func (a *Assembler) move(dst, src asm.Operand) {
	if dst == src {
		return
	}
	if asm.IsMemory(dst) && (asm.IsMemory(src) || isWide(src)) {
		a.load(a.acc, src)
		a.emit(asm.MOV, dst, a.acc)
		return
	}
	a.emit(asm.MOV, dst, src)
}

func (a *Assembler) push(src asm.Operand) {
	if isWide(src) {
		a.load(a.acc, src)
		src = a.acc
	}
	a.emit(asm.PUSH, src)
}

// aluSource returns an operand usable as the second operand of an ALU
// instruction against the accumulator.
func (a *Assembler) aluSource(src asm.Operand) asm.Operand {
	if isWide(src) {
		a.load(a.scratch, src)
		return a.scratch
	}
	return src
}

func isWide(o asm.Operand) bool {
	imm, ok := o.(asm.Imm)
	return ok && !imm.FitsImm32()
}
