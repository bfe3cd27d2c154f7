package tac

import (
	"bytes"
	"testing"
)

func TestInstructionString(t *testing.T) {
	tests := []struct {
		name string
		inst Instruction
		want string
	}{
		{"copy", Copy("x", "5"), "x = 5"},
		{"binary", Binary(OpAdd, "t1", "a", "b"), "t1 = a + b"},
		{"compare", Binary(OpNe, "t2", "a", "0"), "t2 = a != 0"},
		{"if", If("t1", ".L1", ".L2"), "if t1 goto .L1 else goto .L2"},
		{"goto", Goto(".L3"), "goto .L3"},
		{"return value", Return("x"), "return x"},
		{"return void", Return(NoOperand), "return"},
		{"call", Call("t3", "add", "a", "2"), "t3 = add(a, 2)"},
		{"call no args", Call("t4", "f"), "t4 = f()"},
		{"label only", Label(".L1"), ".L1:"},
		{"labeled copy", Copy("x", "1").WithLabel("main"), "main:\nx = 1"},
		{"fallback", Instruction{Arg1: "a", Result: "r"}, "r a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inst.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOperandClassification(t *testing.T) {
	tests := []struct {
		op      Operand
		numeric bool
		integer bool
	}{
		{"42", true, true},
		{"-7", true, true},
		{"3.5", true, false},
		{".5", true, false},
		{"x", false, false},
		{"t1", false, false},
		{"inf", false, false},
		{"nan", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := tt.op.IsNumeric(); got != tt.numeric {
			t.Errorf("%q.IsNumeric() = %v, want %v", tt.op, got, tt.numeric)
		}
		if got := tt.op.IsInteger(); got != tt.integer {
			t.Errorf("%q.IsInteger() = %v, want %v", tt.op, got, tt.integer)
		}
	}
}

func TestFloat64KeepsRealForm(t *testing.T) {
	if got := Float64(5); got != "5.0" {
		t.Errorf("Float64(5) = %q, want 5.0", got)
	}
	if got := Float64(1.5); got != "1.5" {
		t.Errorf("Float64(1.5) = %q, want 1.5", got)
	}
}

func TestCallArgs(t *testing.T) {
	inst := Call("t1", "f", "a", "1", "t2")
	args := inst.CallArgs()
	if len(args) != 3 || args[0] != "a" || args[1] != "1" || args[2] != "t2" {
		t.Errorf("CallArgs() = %v", args)
	}
	if got := Call("t1", "f").CallArgs(); got != nil {
		t.Errorf("CallArgs() of no-arg call = %v, want nil", got)
	}
}

func TestUsesAndDef(t *testing.T) {
	tests := []struct {
		inst Instruction
		uses []Operand
		def  Operand
	}{
		{Binary(OpMul, "t1", "a", "b"), []Operand{"a", "b"}, "t1"},
		{Copy("x", "y"), []Operand{"y"}, "x"},
		{If("c", ".L1", ".L2"), []Operand{"c"}, NoOperand},
		{Goto(".L1"), nil, NoOperand},
		{Return("r"), []Operand{"r"}, NoOperand},
		{Return(NoOperand), nil, NoOperand},
		{Call("t9", "g", "p", "q"), []Operand{"p", "q"}, "t9"},
		{Label("main"), nil, NoOperand},
	}
	for _, tt := range tests {
		uses := tt.inst.Uses()
		if len(uses) != len(tt.uses) {
			t.Errorf("%s: Uses() = %v, want %v", tt.inst, uses, tt.uses)
			continue
		}
		for i := range uses {
			if uses[i] != tt.uses[i] {
				t.Errorf("%s: Uses() = %v, want %v", tt.inst, uses, tt.uses)
			}
		}
		if d := tt.inst.Def(); d != tt.def {
			t.Errorf("%s: Def() = %q, want %q", tt.inst, d, tt.def)
		}
	}
}

func TestIsFunctionLabel(t *testing.T) {
	if !IsFunctionLabel("main") {
		t.Error("main should be a function label")
	}
	if IsFunctionLabel(".L3") {
		t.Error(".L3 is a synthesized label")
	}
	if IsFunctionLabel("") {
		t.Error("empty label is not a function")
	}
}

func TestEqual(t *testing.T) {
	a := []Instruction{Copy("x", "1"), Return("x")}
	b := []Instruction{Copy("x", "1"), Return("x")}
	if !Equal(a, b) {
		t.Error("identical lists should be equal")
	}
	b[1] = Return("y")
	if Equal(a, b) {
		t.Error("different lists should not be equal")
	}
	if Equal(a, a[:1]) {
		t.Error("lists of different length should not be equal")
	}
}

func TestParseOp(t *testing.T) {
	for _, s := range []string{"+", "-", "*", "/", "<", ">", "==", "!="} {
		op, ok := ParseOp(s)
		if !ok || op.String() != s || !op.IsBinary() {
			t.Errorf("ParseOp(%q) = %v, %v", s, op, ok)
		}
	}
	if _, ok := ParseOp("%"); ok {
		t.Error("modulo is not an operator")
	}
}

func TestPrinter(t *testing.T) {
	code := []Instruction{
		Label("main"),
		Copy("x", "1"),
		If("x", ".L1", ".L2"),
		Label(".L1"),
		Return("x"),
		Label(".L2"),
		Return("0"),
		Label("f"),
		Return(NoOperand),
	}
	var buf bytes.Buffer
	NewPrinter(&buf).PrintCode(code)

	want := `main:
  x = 1
  if x goto .L1 else goto .L2
.L1:
  return x
.L2:
  return 0

f:
  return
`
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}
