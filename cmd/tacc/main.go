package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/tacc/pkg/asm"
	"github.com/raymyers/tacc/pkg/asmgen"
	"github.com/raymyers/tacc/pkg/ast"
	"github.com/raymyers/tacc/pkg/cfg"
	"github.com/raymyers/tacc/pkg/config"
	"github.com/raymyers/tacc/pkg/optimize"
	"github.com/raymyers/tacc/pkg/tac"
	"github.com/raymyers/tacc/pkg/tacgen"
	"github.com/raymyers/tacc/pkg/unit"
)

var version = "0.1.0"

// Debug flags for dumping intermediate representations
var (
	dTokens bool
	dAST    bool
	dTAC    bool
	dOpt    bool
	dOpt2   bool
	dProp   bool
	dAlg    bool
	dCFG    bool
	dAsm    bool
)

// Pipeline options
var (
	optLevel     int
	fallthroughs bool
	dotOutput    bool
	configFile   string
	logTopics    string
	disabled     []string
	maxRounds    int
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the dump flags that also accept single-dash style.
var debugFlagNames = []string{"dtokens", "dast", "dtac", "dopt", "dopt2", "dprop", "dalg", "dcfg", "dasm"}

// normalizeFlags converts single-dash dump flags like -dtac to --dtac
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tacc [file]",
		Short: "tacc lowers a syntax tree to three-address code and x86-64 assembly",
		Long: `tacc reads a compilation unit (a syntax tree and its symbol table
stored as YAML), generates three-address code, optimizes it, and
emits x86-64 assembly in Intel syntax. Each stage can be dumped.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if logTopics != "" {
				tlog.SetVerbosity(logTopics)
			}

			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			conf, err := buildConfig(errOut)
			if err != nil {
				return err
			}

			switch {
			case dTokens:
				return doTokens(filename, out, errOut)
			case dAST:
				return doAST(filename, out, errOut)
			case dTAC:
				return doTAC(filename, out, errOut)
			case dOpt:
				return doOpt(filename, optimize.O1, conf, out, errOut)
			case dOpt2:
				return doOpt(filename, optimize.O2, conf, out, errOut)
			case dProp:
				return doPass(filename, "prop", optimize.Propagate, out, errOut)
			case dAlg:
				return doPass(filename, "alg", optimize.Simplify, out, errOut)
			case dCFG:
				return doCFG(filename, conf, out, errOut)
			case dAsm:
				return doAsm(filename, conf, out, errOut)
			}

			return doCompile(filename, conf, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	// Add debug flags
	rootCmd.Flags().BoolVar(&dTokens, "dtokens", false, "Dump the tree's tokens")
	rootCmd.Flags().BoolVar(&dAST, "dast", false, "Dump the syntax tree and symbol table")
	rootCmd.Flags().BoolVar(&dTAC, "dtac", false, "Dump three-address code")
	rootCmd.Flags().BoolVar(&dOpt, "dopt", false, "Dump optimized TAC (O1)")
	rootCmd.Flags().BoolVar(&dOpt2, "dopt2", false, "Dump optimized TAC (O2)")
	rootCmd.Flags().BoolVar(&dProp, "dprop", false, "Dump TAC after copy propagation alone")
	rootCmd.Flags().BoolVar(&dAlg, "dalg", false, "Dump TAC after algebraic simplification alone")
	rootCmd.Flags().BoolVar(&dCFG, "dcfg", false, "Dump basic blocks and the control-flow graph")
	rootCmd.Flags().BoolVar(&dAsm, "dasm", false, "Dump assembly")

	// Add pipeline flags
	rootCmd.Flags().IntVarP(&optLevel, "optimize", "O", 1, "Optimization level (0-2) for --dcfg, --dasm and compilation")
	rootCmd.Flags().BoolVar(&fallthroughs, "fallthrough", false, "Add fallthrough edges to the CFG")
	rootCmd.Flags().BoolVar(&dotOutput, "dot", false, "Write the CFG in Graphviz format")
	rootCmd.Flags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.Flags().StringVar(&logTopics, "log", "", "Enable log topics (tacgen,optimize,cfg,asmgen,unit)")
	rootCmd.Flags().StringArrayVar(&disabled, "disable", nil, "Disable an optimization pass by name")
	rootCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Bound on fixpoint rounds (0 keeps the configured value)")
	rootCmd.Flags().SetNormalizeFunc(wordSepNormalizeFunc)

	return rootCmd
}

// wordSepNormalizeFunc lets --max_rounds mean --max-rounds.
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// buildConfig assembles the configuration from --config and the pass flags.
func buildConfig(errOut io.Writer) (*config.Config, error) {
	conf := config.NewConfig()
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			fmt.Fprintf(errOut, "tacc: %v\n", err)
			return nil, err
		}
	}
	for _, name := range disabled {
		if err := conf.SetFeatureByName(name, false); err != nil {
			fmt.Fprintf(errOut, "tacc: --disable %s: %v (known: %s)\n", name, err, strings.Join(conf.FeatureNames(), ", "))
			return nil, err
		}
	}
	if fallthroughs {
		conf.SetFeature(config.FeatFallthrough, true)
	}
	if maxRounds < 0 {
		err := errors.New("--max-rounds must not be negative, got %d", maxRounds)
		fmt.Fprintf(errOut, "tacc: %v\n", err)
		return nil, err
	}
	if maxRounds > 0 {
		conf.MaxRounds = maxRounds
	}
	return conf, nil
}

func loadUnit(filename string, errOut io.Writer) (*unit.Unit, error) {
	u, err := unit.Load(filename)
	if err != nil {
		fmt.Fprintf(errOut, "tacc: %v\n", err)
		return nil, err
	}
	return u, nil
}

// generate loads a unit and lowers it to TAC.
func generate(filename string, errOut io.Writer) (*unit.Unit, []tac.Instruction, error) {
	u, err := loadUnit(filename, errOut)
	if err != nil {
		return nil, nil, err
	}

	code, err := tacgen.Generate(u.Tree, u.Symbols)
	if err != nil {
		fmt.Fprintf(errOut, "tacc: %s: %v\n", filename, err)
		return nil, nil, err
	}
	return u, code, nil
}

func optimized(filename string, conf *config.Config, errOut io.Writer) (*unit.Unit, []tac.Instruction, error) {
	u, code, err := generate(filename, errOut)
	if err != nil {
		return nil, nil, err
	}
	return u, optimize.NewDriver(conf).Run(optimize.Level(optLevel), code), nil
}

func doTokens(filename string, out, errOut io.Writer) error {
	u, err := loadUnit(filename, errOut)
	if err != nil {
		return err
	}
	ast.NewPrinter(out).PrintTokens(u.Tree)
	return nil
}

func doAST(filename string, out, errOut io.Writer) error {
	u, err := loadUnit(filename, errOut)
	if err != nil {
		return err
	}

	color := isTerminal(out)

	header(out, "tree", color)
	ast.NewPrinter(out).PrintTree(u.Tree)

	header(out, "symbols", color)
	u.Symbols.Print(out)

	header(out, "nodes", color)
	cs := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, DisableCapacities: true, SortKeys: true}
	for _, tok := range u.Tree.Tokens() {
		cs.Fdump(out, tok)
	}
	return nil
}

func doTAC(filename string, out, errOut io.Writer) error {
	_, code, err := generate(filename, errOut)
	if err != nil {
		return err
	}
	return writeDump(filename, ".tac", out, errOut, func(w io.Writer) {
		tac.NewPrinter(w).PrintCode(code)
	})
}

func doOpt(filename string, level optimize.Level, conf *config.Config, out, errOut io.Writer) error {
	_, code, err := generate(filename, errOut)
	if err != nil {
		return err
	}

	d := optimize.NewDriver(conf)
	code = d.Run(level, code)
	tlog.V("optimize").Printw("optimized", "file", filename, "level", int(level), "rounds", d.Rounds)

	ext := ".opt.tac"
	if level == optimize.O2 {
		ext = ".opt2.tac"
	}
	return writeDump(filename, ext, out, errOut, func(w io.Writer) {
		tac.NewPrinter(w).PrintCode(code)
	})
}

// doPass dumps the result of a single pass over raw TAC.
func doPass(filename, name string, pass func([]tac.Instruction) []tac.Instruction, out, errOut io.Writer) error {
	_, code, err := generate(filename, errOut)
	if err != nil {
		return err
	}
	code = pass(code)
	return writeDump(filename, "."+name+".tac", out, errOut, func(w io.Writer) {
		tac.NewPrinter(w).PrintCode(code)
	})
}

func doCFG(filename string, conf *config.Config, out, errOut io.Writer) error {
	_, code, err := optimized(filename, conf, errOut)
	if err != nil {
		return err
	}

	g, err := cfg.Build(code, cfg.Options{Fallthrough: conf.IsFeatureEnabled(config.FeatFallthrough)})
	if err != nil {
		fmt.Fprintf(errOut, "tacc: %s: %v\n", filename, err)
		return err
	}

	if dotOutput {
		var buf bytes.Buffer
		if err := cfg.WriteDot(&buf, g); err != nil {
			fmt.Fprintf(errOut, "tacc: %s: %v\n", filename, err)
			return err
		}
		return writeDump(filename, ".dot", out, errOut, func(w io.Writer) {
			w.Write(buf.Bytes())
		})
	}

	return writeDump(filename, ".cfg", out, errOut, func(w io.Writer) {
		cfg.NewPrinter(w).PrintGraph(g)
	})
}

func assemble(filename string, conf *config.Config, errOut io.Writer) (*asm.Program, error) {
	u, code, err := optimized(filename, conf, errOut)
	if err != nil {
		return nil, err
	}

	prog, err := asmgen.Assemble(code, u.Symbols, conf)
	if err != nil {
		fmt.Fprintf(errOut, "tacc: %s: %v\n", filename, err)
		return nil, err
	}
	return prog, nil
}

func doAsm(filename string, conf *config.Config, out, errOut io.Writer) error {
	prog, err := assemble(filename, conf, errOut)
	if err != nil {
		return err
	}
	return writeDump(filename, ".s", out, errOut, func(w io.Writer) {
		asm.NewPrinter(w).PrintProgram(prog)
	})
}

// doCompile writes the assembly file without echoing it.
func doCompile(filename string, conf *config.Config, errOut io.Writer) error {
	prog, err := assemble(filename, conf, errOut)
	if err != nil {
		return err
	}
	return writeDump(filename, ".s", io.Discard, errOut, func(w io.Writer) {
		asm.NewPrinter(w).PrintProgram(prog)
	})
}

// writeDump prints to the sibling output file and to out.
func writeDump(filename, ext string, out, errOut io.Writer, dump func(io.Writer)) error {
	outputFilename := outputFilename(filename, ext)

	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "tacc: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	dump(outFile)

	// Also print to stdout for convenience
	dump(out)

	return nil
}

// outputFilename computes a sibling path: prog.yaml -> prog.tac
func outputFilename(filename, ext string) string {
	for _, in := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(filename, in) {
			return filename[:len(filename)-len(in)] + ext
		}
	}
	return filename + ext
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func header(w io.Writer, title string, color bool) {
	if color {
		fmt.Fprintf(w, "\x1b[1;36m== %s ==\x1b[0m\n", title)
		return
	}
	fmt.Fprintf(w, "== %s ==\n", title)
}
