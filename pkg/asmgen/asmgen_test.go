package asmgen

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/raymyers/tacc/pkg/asm"
	"github.com/raymyers/tacc/pkg/config"
	"github.com/raymyers/tacc/pkg/symtab"
	"github.com/raymyers/tacc/pkg/tac"
)

// symbols declares functions with their parameters, then global variables.
func symbols(t *testing.T, funcs map[string][]string, globals ...string) *symtab.Table {
	t.Helper()
	tab := symtab.New()
	for name, params := range funcs {
		_, err := tab.Add(name, "int", symtab.Global, symtab.Function)
		require.NoError(t, err)
		for _, p := range params {
			_, err := tab.Add(p, "int", name, symtab.Parameter)
			require.NoError(t, err)
		}
	}
	for _, g := range globals {
		_, err := tab.Add(g, "int", symtab.Global, symtab.Variable)
		require.NoError(t, err)
	}
	return tab
}

func lines(code []asm.Instruction) []string {
	var buf bytes.Buffer
	asm.NewPrinter(&buf).PrintCode(code)
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

var (
	prologue = []string{"main:", "\tpush\trbp", "\tmov\trbp, rsp", "\tsub\trsp, 16"}
	epilogue = []string{"\tmov\trsp, rbp", "\tpop\trbp", "\tret"}
)

func withFrame(name string, body ...string) []string {
	out := []string{name + ":", "\tpush\trbp", "\tmov\trbp, rsp", "\tsub\trsp, 16"}
	out = append(out, body...)
	return append(out, epilogue...)
}

func assembleOne(t *testing.T, code []tac.Instruction, syms *symtab.Table) []string {
	t.Helper()
	prog, err := Assemble(code, syms, nil)
	require.NoError(t, err)
	require.Len(t, prog.Functions, 1)
	return lines(prog.Functions[0].Code)
}

func TestAssembleStraightLine(t *testing.T) {
	code := []tac.Instruction{
		tac.Label("main"),
		tac.Copy("x", "5"),
		tac.Binary(tac.OpAdd, "t1", "x", "2"),
		tac.Return("t1"),
	}
	got := assembleOne(t, code, symbols(t, map[string][]string{"main": nil}))

	want := withFrame("main",
		"\tmov\tQWORD PTR [rbp-8], 5",
		"\tmov\trax, QWORD PTR [rbp-8]",
		"\tadd\trax, 2",
		"\tmov\tQWORD PTR [rbp-16], rax",
		"\tmov\trax, QWORD PTR [rbp-16]",
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameSixParams(t *testing.T) {
	syms := symbols(t, map[string][]string{"f": {"a", "b", "c", "d", "e", "g"}})
	body := []tac.Instruction{
		tac.Label("f"),
		tac.Binary(tac.OpAdd, "t1", "a", "g"),
		tac.Return("t1"),
	}
	frame := NewFrame("f", body, syms, config.NewConfig())

	want := map[tac.Operand]asm.Operand{
		"a":  asm.RCX,
		"b":  asm.RDX,
		"c":  asm.R8,
		"d":  asm.R9,
		"e":  asm.Mem{Base: asm.RBP, Offset: 16},
		"g":  asm.Mem{Base: asm.RBP, Offset: 24},
		"t1": asm.Mem{Base: asm.RBP, Offset: -8},
	}
	if diff := cmp.Diff(want, frame.Locations); diff != "" {
		t.Errorf("locations mismatch (-want +got):\n%s", diff)
	}
	if frame.Size != 16 {
		t.Errorf("Size = %d, want 16", frame.Size)
	}
	if got := frame.ParamRegisters(); len(got) != 4 {
		t.Errorf("ParamRegisters() = %v, want 4 registers", got)
	}

	got := assembleOne(t, body, syms)
	if diff := cmp.Diff([]string{
		"\tmov\trax, rcx",
		"\tadd\trax, QWORD PTR [rbp+24]",
	}, got[4:6]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameSizeAligned(t *testing.T) {
	body := []tac.Instruction{
		tac.Label("main"),
		tac.Copy("a", "1"),
		tac.Copy("b", "2"),
		tac.Copy("c", "3"),
		tac.Return(tac.NoOperand),
	}
	frame := NewFrame("main", body, symbols(t, map[string][]string{"main": nil}), config.NewConfig())
	if frame.LocalSize != 24 || frame.Size != 32 {
		t.Errorf("LocalSize, Size = %d, %d, want 24, 32", frame.LocalSize, frame.Size)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, frame.Locals); diff != "" {
		t.Errorf("locals (-want +got):\n%s", diff)
	}
}

func TestAssembleCallStackArgs(t *testing.T) {
	syms := symbols(t, map[string][]string{"main": nil, "f": nil})

	tests := []struct {
		name string
		args []tac.Operand
		want []string
	}{
		{
			name: "six arguments",
			args: []tac.Operand{"1", "2", "3", "4", "5", "6"},
			want: []string{
				"\tpush\t6",
				"\tpush\t5",
				"\tmov\trcx, 1",
				"\tmov\trdx, 2",
				"\tmov\tr8, 3",
				"\tmov\tr9, 4",
				"\tcall\tf",
				"\tadd\trsp, 16",
			},
		},
		{
			name: "odd stack arguments are padded",
			args: []tac.Operand{"1", "2", "3", "4", "5"},
			want: []string{
				"\tsub\trsp, 8",
				"\tpush\t5",
				"\tmov\trcx, 1",
				"\tmov\trdx, 2",
				"\tmov\tr8, 3",
				"\tmov\tr9, 4",
				"\tcall\tf",
				"\tadd\trsp, 16",
			},
		},
		{
			name: "register arguments only",
			args: []tac.Operand{"7"},
			want: []string{
				"\tmov\trcx, 7",
				"\tcall\tf",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := []tac.Instruction{
				tac.Label("main"),
				tac.Call("t1", "f", tt.args...),
				tac.Return("t1"),
			}
			got := assembleOne(t, code, syms)

			want := append([]string{}, prologue...)
			want = append(want, tt.want...)
			want = append(want,
				"\tmov\tQWORD PTR [rbp-8], rax",
				"\tmov\trax, QWORD PTR [rbp-8]",
			)
			want = append(want, epilogue...)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssembleCallSavesParamRegisters(t *testing.T) {
	syms := symbols(t, map[string][]string{"g": {"a", "b"}, "f": {"x", "y"}})
	code := []tac.Instruction{
		tac.Label("g"),
		tac.Call("t1", "f", "b", "a"),
		tac.Return("t1"),
	}
	got := assembleOne(t, code, syms)

	want := withFrame("g",
		"\tpush\trcx",
		"\tpush\trdx",
		"\tpush\trcx",
		"\tpush\trdx",
		"\tpop\trcx",
		"\tpop\trdx",
		"\tcall\tf",
		"\tpop\trdx",
		"\tpop\trcx",
		"\tmov\tQWORD PTR [rbp-8], rax",
		"\tmov\trax, QWORD PTR [rbp-8]",
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleDivision(t *testing.T) {
	t.Run("register operands", func(t *testing.T) {
		syms := symbols(t, map[string][]string{"d": {"a", "b"}})
		code := []tac.Instruction{
			tac.Label("d"),
			tac.Binary(tac.OpDiv, "t1", "a", "b"),
			tac.Return("t1"),
		}
		want := withFrame("d",
			"\tmov\trax, rcx",
			"\tmov\tr11, rdx",
			"\tmov\tr10, rdx",
			"\tcqo",
			"\tidiv\tr11",
			"\tmov\trdx, r10",
			"\tmov\tQWORD PTR [rbp-8], rax",
			"\tmov\trax, QWORD PTR [rbp-8]",
		)
		if diff := cmp.Diff(want, assembleOne(t, code, syms)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("literal divisor", func(t *testing.T) {
		syms := symbols(t, map[string][]string{"main": nil})
		code := []tac.Instruction{
			tac.Label("main"),
			tac.Binary(tac.OpDiv, "t1", "x", "3"),
			tac.Return("t1"),
		}
		want := withFrame("main",
			"\tmov\trax, QWORD PTR [rbp-8]",
			"\tmov\tr11, 3",
			"\tcqo",
			"\tidiv\tr11",
			"\tmov\tQWORD PTR [rbp-16], rax",
			"\tmov\trax, QWORD PTR [rbp-16]",
		)
		if diff := cmp.Diff(want, assembleOne(t, code, syms)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestAssembleBranchAndEarlyReturn(t *testing.T) {
	code := []tac.Instruction{
		tac.Label("main"),
		tac.Binary(tac.OpLt, "t1", "x", "10"),
		tac.If("t1", ".L1", ".L2"),
		tac.Label(".L1"),
		tac.Return("1"),
		tac.Label(".L2"),
		tac.Return("0"),
	}
	got := assembleOne(t, code, symbols(t, map[string][]string{"main": nil}))

	want := append([]string{}, prologue...)
	want = append(want,
		"\tmov\trax, QWORD PTR [rbp-8]",
		"\tcmp\trax, 10",
		"\tsetl\tal",
		"\tmovzx\trax, al",
		"\tmov\tQWORD PTR [rbp-16], rax",
		"\tmov\trax, QWORD PTR [rbp-16]",
		"\tcmp\trax, 0",
		"\tjne\t.L1",
		"\tjmp\t.L2",
		".L1:",
		"\tmov\trax, 1",
		"\tjmp\t.Lmain_exit",
		".L2:",
		"\tmov\trax, 0",
		".Lmain_exit:",
	)
	want = append(want, epilogue...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleGlobals(t *testing.T) {
	syms := symbols(t, map[string][]string{"main": nil}, "g", "h")
	code := []tac.Instruction{
		tac.Copy("g", "5"),
		tac.Label("main"),
		tac.Binary(tac.OpAdd, "t1", "g", "1"),
		tac.Copy("g", "t1"),
		tac.Return("g"),
	}

	prog, err := Assemble(code, syms, nil)
	require.NoError(t, err)

	wantGlobals := []asm.GlobVar{{Name: "g", Init: 5}, {Name: "h", Init: 0}}
	if diff := cmp.Diff(wantGlobals, prog.Globals); diff != "" {
		t.Errorf("globals (-want +got):\n%s", diff)
	}

	want := withFrame("main",
		"\tmov\trax, QWORD PTR [rip+g]",
		"\tadd\trax, 1",
		"\tmov\tQWORD PTR [rbp-8], rax",
		"\tmov\trax, QWORD PTR [rbp-8]",
		"\tmov\tQWORD PTR [rip+g], rax",
		"\tmov\trax, QWORD PTR [rip+g]",
	)
	if diff := cmp.Diff(want, lines(prog.Functions[0].Code)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleWideImmediate(t *testing.T) {
	code := []tac.Instruction{
		tac.Label("main"),
		tac.Copy("x", "5000000000"),
		tac.Return("x"),
	}
	got := assembleOne(t, code, symbols(t, map[string][]string{"main": nil}))
	want := withFrame("main",
		"\tmov\trax, 5000000000",
		"\tmov\tQWORD PTR [rbp-8], rax",
		"\tmov\trax, QWORD PTR [rbp-8]",
	)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAssembleErrors(t *testing.T) {
	syms := symbols(t, map[string][]string{"main": nil}, "g")
	tests := []struct {
		name string
		code []tac.Instruction
		want error
	}{
		{"float literal", []tac.Instruction{tac.Label("main"), tac.Copy("x", "1.5")}, ErrNonIntegerLiteral},
		{"non-constant global", []tac.Instruction{tac.Copy("g", "y"), tac.Label("main")}, ErrGlobalInit},
		{"unknown global", []tac.Instruction{tac.Copy("nope", "1"), tac.Label("main")}, ErrUnknownVariable},
		{"stray label", []tac.Instruction{tac.Label(".L1"), tac.Label("main")}, ErrGlobalInit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(tt.code, syms, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFrameLocationUnknown(t *testing.T) {
	frame := NewFrame("main", nil, symtab.New(), config.NewConfig())
	_, err := frame.Location("ghost")
	if !errors.Is(err, ErrUnknownVariable) {
		t.Errorf("err = %v, want ErrUnknownVariable", err)
	}
}

func TestSplitFunctions(t *testing.T) {
	code := []tac.Instruction{
		tac.Copy("g", "1"),
		tac.Label("f"),
		tac.Return(tac.NoOperand),
		tac.Label("main"),
		tac.Label(".L1"),
		tac.Return("0"),
	}
	top, funcs := splitFunctions(code)
	if len(top) != 1 || len(funcs) != 2 {
		t.Fatalf("top, funcs = %d, %d, want 1, 2", len(top), len(funcs))
	}
	if funcs[1].name != "main" || len(funcs[1].body) != 3 {
		t.Errorf("main = %s with %d instructions", funcs[1].name, len(funcs[1].body))
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align, want int64
	}{
		{0, 16, 0},
		{8, 16, 16},
		{16, 16, 16},
		{24, 16, 32},
		{5, 0, 5},
	}
	for _, tt := range tests {
		if got := alignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}
