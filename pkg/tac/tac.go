// Package tac defines the three-address code instruction model.
// An Instruction carries at most two source operands and one destination;
// a label on an instruction marks it as a jump target and, for plain
// identifiers, as the entry of a function.
package tac

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is the operator of an instruction.
type Op int

const (
	OpNone   Op = iota // label-only instruction
	OpCopy             // result = arg1
	OpAdd              // result = arg1 + arg2
	OpSub              // result = arg1 - arg2
	OpMul              // result = arg1 * arg2
	OpDiv              // result = arg1 / arg2
	OpLt               // result = arg1 < arg2
	OpGt               // result = arg1 > arg2
	OpEq               // result = arg1 == arg2
	OpNe               // result = arg1 != arg2
	OpIf               // if arg1 goto arg2 else goto result
	OpGoto             // goto result
	OpReturn           // return arg1
	OpCall             // result = arg1(arg2)
)

var opNames = [...]string{
	OpNone:   "",
	OpCopy:   "=",
	OpAdd:    "+",
	OpSub:    "-",
	OpMul:    "*",
	OpDiv:    "/",
	OpLt:     "<",
	OpGt:     ">",
	OpEq:     "==",
	OpNe:     "!=",
	OpIf:     "if",
	OpGoto:   "goto",
	OpReturn: "return",
	OpCall:   "call",
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// ParseOp maps an operator symbol to its Op.
func ParseOp(s string) (Op, bool) {
	for o, n := range opNames {
		if n == s && Op(o) != OpNone {
			return Op(o), true
		}
	}
	return OpNone, false
}

// IsArith reports whether o is one of + - * /.
func (o Op) IsArith() bool {
	return o >= OpAdd && o <= OpDiv
}

// IsCompare reports whether o is one of < > == !=.
func (o Op) IsCompare() bool {
	return o >= OpLt && o <= OpNe
}

// IsBinary reports whether o combines two operands into a result.
func (o Op) IsBinary() bool {
	return o.IsArith() || o.IsCompare()
}

// Operand is a literal value or a variable name. The empty operand is absent.
type Operand string

// NoOperand is the absent operand.
const NoOperand Operand = ""

// Present reports whether the operand is set.
func (o Operand) Present() bool { return o != "" }

// IsNumeric reports whether the operand parses as a number. Anything that
// does not is a named location.
func (o Operand) IsNumeric() bool {
	s := strings.TrimLeft(string(o), "+-")
	// names such as "inf" or "nan" would otherwise parse as floats
	if s == "" || !(s[0] == '.' || s[0] >= '0' && s[0] <= '9') {
		return false
	}
	if _, err := strconv.ParseInt(string(o), 10, 64); err == nil {
		return true
	}
	_, err := strconv.ParseFloat(string(o), 64)
	return err == nil
}

// IsInteger reports whether the operand is an integer literal.
func (o Operand) IsInteger() bool {
	_, err := strconv.ParseInt(string(o), 10, 64)
	return err == nil
}

// Int returns the integer value of a literal operand.
func (o Operand) Int() (int64, bool) {
	v, err := strconv.ParseInt(string(o), 10, 64)
	return v, err == nil
}

// Float returns the real value of a literal operand.
func (o Operand) Float() (float64, bool) {
	v, err := strconv.ParseFloat(string(o), 64)
	return v, err == nil
}

// IsName reports whether the operand refers to a location.
func (o Operand) IsName() bool {
	return o.Present() && !o.IsNumeric()
}

// Int64 formats an integer as an operand.
func Int64(v int64) Operand {
	return Operand(strconv.FormatInt(v, 10))
}

// Float64 formats a real number as an operand.
func Float64(v float64) Operand {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		// keep the literal recognisably real
		s += ".0"
	}
	return Operand(s)
}

// Instruction is one TAC instruction. Instructions are values: passes build
// new lists instead of editing instructions in place.
type Instruction struct {
	Label  string
	Op     Op
	Arg1   Operand
	Arg2   Operand
	Result Operand
}

// Label creates a label-only instruction.
func Label(name string) Instruction {
	return Instruction{Label: name}
}

// Copy creates result = src.
func Copy(result, src Operand) Instruction {
	return Instruction{Op: OpCopy, Arg1: src, Result: result}
}

// Binary creates result = lhs op rhs.
func Binary(op Op, result, lhs, rhs Operand) Instruction {
	return Instruction{Op: op, Arg1: lhs, Arg2: rhs, Result: result}
}

// If creates a two-way branch on cond.
func If(cond Operand, ifTrue, ifFalse string) Instruction {
	return Instruction{Op: OpIf, Arg1: cond, Arg2: Operand(ifTrue), Result: Operand(ifFalse)}
}

// Goto creates an unconditional jump.
func Goto(target string) Instruction {
	return Instruction{Op: OpGoto, Result: Operand(target)}
}

// Return creates a return of value, which may be absent.
func Return(value Operand) Instruction {
	return Instruction{Op: OpReturn, Arg1: value}
}

// Call creates result = callee(args...).
func Call(result Operand, callee string, args ...Operand) Instruction {
	return Instruction{Op: OpCall, Arg1: Operand(callee), Arg2: JoinArgs(args), Result: result}
}

const argSep = ", "

// JoinArgs packs call arguments into a single operand.
func JoinArgs(args []Operand) Operand {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = string(a)
	}
	return Operand(strings.Join(parts, argSep))
}

// CallArgs returns the arguments of a call instruction.
func (i Instruction) CallArgs() []Operand {
	if i.Op != OpCall || i.Arg2 == "" {
		return nil
	}
	parts := strings.Split(string(i.Arg2), ",")
	args := make([]Operand, len(parts))
	for j, p := range parts {
		args[j] = Operand(strings.TrimSpace(p))
	}
	return args
}

// WithLabel returns a copy of i carrying label.
func (i Instruction) WithLabel(label string) Instruction {
	i.Label = label
	return i
}

// IsLabelOnly reports whether i only marks a position.
func (i Instruction) IsLabelOnly() bool {
	return i.Op == OpNone && i.Label != "" && !i.Arg1.Present() && !i.Arg2.Present() && !i.Result.Present()
}

// IsBareCopy reports whether i is result = arg1 with no second operand.
func (i Instruction) IsBareCopy() bool {
	return i.Op == OpCopy && !i.Arg2.Present() && i.Result.Present()
}

// Targets returns the labels an instruction may branch to.
func (i Instruction) Targets() []string {
	switch i.Op {
	case OpIf:
		return []string{string(i.Arg2), string(i.Result)}
	case OpGoto:
		return []string{string(i.Result)}
	}
	return nil
}

// Uses returns the operands the instruction reads, excluding labels and callees.
func (i Instruction) Uses() []Operand {
	var uses []Operand
	add := func(o Operand) {
		if o.Present() {
			uses = append(uses, o)
		}
	}
	switch {
	case i.Op == OpCall:
		for _, a := range i.CallArgs() {
			add(a)
		}
	case i.Op == OpIf, i.Op == OpReturn, i.Op == OpCopy:
		add(i.Arg1)
	case i.Op == OpGoto:
	default:
		add(i.Arg1)
		add(i.Arg2)
	}
	return uses
}

// Def returns the operand the instruction writes, or NoOperand.
func (i Instruction) Def() Operand {
	switch i.Op {
	case OpIf, OpGoto, OpReturn, OpNone:
		return NoOperand
	}
	return i.Result
}

// IsFunctionLabel reports whether a label names a function entry rather than
// a synthesized branch target.
func IsFunctionLabel(label string) bool {
	return label != "" && !strings.HasPrefix(label, ".")
}

// String renders the instruction body, preceded by "<label>:" on its own
// line when labeled.
func (i Instruction) String() string {
	body := i.body()
	switch {
	case i.Label == "":
		return body
	case body == "":
		return i.Label + ":"
	default:
		return i.Label + ":\n" + body
	}
}

func (i Instruction) body() string {
	switch {
	case i.Op == OpIf:
		return fmt.Sprintf("if %s goto %s else goto %s", i.Arg1, i.Arg2, i.Result)
	case i.Op == OpCall:
		return fmt.Sprintf("%s = %s(%s)", i.Result, i.Arg1, i.Arg2)
	case i.Op == OpGoto:
		return fmt.Sprintf("goto %s", i.Result)
	case i.Op == OpCopy && i.Result.Present():
		return fmt.Sprintf("%s = %s", i.Result, i.Arg1)
	case i.Op.IsBinary() && i.Result.Present() && i.Arg1.Present() && i.Arg2.Present():
		return fmt.Sprintf("%s = %s %s %s", i.Result, i.Arg1, i.Op, i.Arg2)
	case i.Op == OpReturn:
		if !i.Arg1.Present() {
			return "return"
		}
		return fmt.Sprintf("return %s", i.Arg1)
	}

	var parts []string
	for _, s := range []string{string(i.Result), string(i.Arg1), i.Op.String(), string(i.Arg2)} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Equal reports whether two instruction lists are structurally identical.
func Equal(a, b []Instruction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Format renders a list one line per label or instruction.
func Format(code []Instruction) string {
	var sb strings.Builder
	for _, inst := range code {
		sb.WriteString(inst.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
