// Package asm defines the x86-64 assembly representation.
// This is the final output of the compiler, printed in GNU as Intel syntax.
package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// Operand is anything an instruction can name.
type Operand interface {
	implOperand()
	String() string
}

// Reg is a machine register.
type Reg string

const (
	RAX Reg = "rax"
	RCX Reg = "rcx"
	RDX Reg = "rdx"
	RBP Reg = "rbp"
	RSP Reg = "rsp"
	R8  Reg = "r8"
	R9  Reg = "r9"
	R10 Reg = "r10"
	R11 Reg = "r11"
	AL  Reg = "al"
)

func (r Reg) String() string { return string(r) }

// Imm is an immediate integer.
type Imm int64

func (i Imm) String() string { return strconv.FormatInt(int64(i), 10) }

// FitsImm32 reports whether the immediate can be encoded as a sign-extended
// 32-bit field, which is all most instructions accept.
func (i Imm) FitsImm32() bool {
	return int64(i) >= -1<<31 && int64(i) < 1<<31
}

// Mem is a quadword at a fixed offset from a base register.
type Mem struct {
	Base   Reg
	Offset int64
}

func (m Mem) String() string {
	switch {
	case m.Offset > 0:
		return fmt.Sprintf("QWORD PTR [%s+%d]", m.Base, m.Offset)
	case m.Offset < 0:
		return fmt.Sprintf("QWORD PTR [%s-%d]", m.Base, -m.Offset)
	default:
		return fmt.Sprintf("QWORD PTR [%s]", m.Base)
	}
}

// Sym is a quadword global addressed relative to rip.
type Sym string

func (s Sym) String() string { return fmt.Sprintf("QWORD PTR [rip+%s]", string(s)) }

// LabelRef names a branch or call target.
type LabelRef string

func (l LabelRef) String() string { return string(l) }

// Raw is operand text passed through verbatim, for directives.
type Raw string

func (r Raw) String() string { return string(r) }

func (Reg) implOperand()      {}
func (Imm) implOperand()      {}
func (Mem) implOperand()      {}
func (Sym) implOperand()      {}
func (LabelRef) implOperand() {}
func (Raw) implOperand()      {}

// IsMemory reports whether o lives in memory.
func IsMemory(o Operand) bool {
	switch o.(type) {
	case Mem, Sym:
		return true
	}
	return false
}

// Op is an instruction mnemonic or assembler directive.
type Op string

const (
	MOV   Op = "mov"
	MOVZX Op = "movzx"
	ADD   Op = "add"
	SUB   Op = "sub"
	IMUL  Op = "imul"
	IDIV  Op = "idiv"
	CQO   Op = "cqo"
	CMP   Op = "cmp"
	SETL  Op = "setl"
	SETG  Op = "setg"
	SETE  Op = "sete"
	SETNE Op = "setne"
	JMP   Op = "jmp"
	JNE   Op = "jne"
	CALL  Op = "call"
	PUSH  Op = "push"
	POP   Op = "pop"
	RET   Op = "ret"

	DirIntelSyntax Op = ".intel_syntax"
	DirText        Op = ".text"
	DirData        Op = ".data"
	DirGlobl       Op = ".globl"
	DirQuad        Op = ".quad"
)

// Instruction is one line of assembly. A label line has only Label set.
type Instruction struct {
	Label string
	Op    Op
	Dest  Operand
	Src   Operand
}

// LabelDef creates a label line.
func LabelDef(name string) Instruction {
	return Instruction{Label: name}
}

// Inst creates an instruction with up to two operands.
func Inst(op Op, operands ...Operand) Instruction {
	inst := Instruction{Op: op}
	if len(operands) > 0 {
		inst.Dest = operands[0]
	}
	if len(operands) > 1 {
		inst.Src = operands[1]
	}
	return inst
}

// String renders the line: "<label>:", "\t<op>", "\t<op>\t<dest>" or
// "\t<op>\t<dest>, <src>".
func (i Instruction) String() string {
	var sb strings.Builder
	if i.Label != "" {
		sb.WriteString(i.Label)
		sb.WriteByte(':')
		if i.Op == "" {
			return sb.String()
		}
		sb.WriteByte('\n')
	}
	sb.WriteByte('\t')
	sb.WriteString(string(i.Op))
	if i.Dest != nil {
		sb.WriteByte('\t')
		sb.WriteString(i.Dest.String())
		if i.Src != nil {
			sb.WriteString(", ")
			sb.WriteString(i.Src.String())
		}
	}
	return sb.String()
}

// Function is the code of one function, label included.
type Function struct {
	Name string
	Code []Instruction
}

// NewFunction creates a new assembly function
func NewFunction(name string) *Function {
	return &Function{Name: name}
}

// Append adds instructions to the function
func (f *Function) Append(insts ...Instruction) {
	f.Code = append(f.Code, insts...)
}

// AppendLabel adds a label definition
func (f *Function) AppendLabel(name string) {
	f.Code = append(f.Code, LabelDef(name))
}

// GlobVar is a quadword global with an initial value.
type GlobVar struct {
	Name string
	Init int64
}

// Program is a complete assembly unit.
type Program struct {
	Globals   []GlobVar
	Functions []*Function
}

// Instructions flattens the program, directives included, into the order
// it is printed.
func (p *Program) Instructions() []Instruction {
	code := []Instruction{Inst(DirIntelSyntax, Raw("noprefix"))}

	code = append(code, p.dataSection()...)

	code = append(code, Inst(DirText))
	for _, f := range p.Functions {
		code = append(code, Inst(DirGlobl, LabelRef(f.Name)))
		code = append(code, f.Code...)
	}
	return code
}

func (p *Program) dataSection() []Instruction {
	if len(p.Globals) == 0 {
		return nil
	}
	code := []Instruction{Inst(DirData)}
	for _, g := range p.Globals {
		code = append(code,
			Inst(DirGlobl, LabelRef(g.Name)),
			LabelDef(g.Name),
			Inst(DirQuad, Imm(g.Init)),
		)
	}
	return code
}
