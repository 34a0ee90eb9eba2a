// Command rpn is a persistent postfix calculator with step-by-step
// reduction display, parameterized functions and external variables.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"nickandperla.net/rpn/pkg/rpn"
)

func main() {
	var (
		stepMode   bool
		endStep    bool
		infixMode  bool
		precompile bool
		noColor    bool
		markStyle  bool
		noPrompt   bool
		ctxJSON    string
		printVars  bool
		resetVars  bool
		seedInit   bool
		dbPath     string
		showHelp   bool
	)
	flag.BoolVar(&stepMode, "step", false, "Step mode")
	flag.BoolVar(&stepMode, "s", false, "Step mode (shorthand)")
	flag.BoolVar(&endStep, "endstep", false, "After each step, print the new postfix with the result highlighted")
	flag.BoolVar(&infixMode, "infix", false, `Render operator steps as infix (e.g. "9 - 5 = 4")`)
	flag.BoolVar(&infixMode, "i", false, "Render operator steps as infix (shorthand)")
	flag.BoolVar(&precompile, "precompile", false, "Inline function bodies (without pN) before evaluating")
	flag.BoolVar(&precompile, "p", false, "Inline function bodies (shorthand)")
	flag.BoolVar(&noColor, "nocolor", false, "Disable colors")
	flag.BoolVar(&noColor, "c", false, "Disable colors (shorthand)")
	flag.BoolVar(&noColor, "n", false, "Disable colors (shorthand)")
	flag.BoolVar(&markStyle, "mark", false, "Highlight with a yellow background")
	flag.BoolVar(&markStyle, "m", false, "Highlight with a yellow background (shorthand)")
	flag.BoolVar(&noPrompt, "noprompt", false, "Suppress parameter prompt labels (input is still read)")
	flag.StringVar(&ctxJSON, "ctx", "", `Inline context JSON, e.g. {"params": {"p1": 1}, "simvars": {"A": {"K": 2}}}`)
	flag.BoolVar(&printVars, "print", false, "Print the persistent registers and exit")
	flag.BoolVar(&resetVars, "reset", false, "Reset the persistent registers and exit")
	flag.BoolVar(&seedInit, "init", false, "Seed default functions and simvars when empty, then exit")
	flag.StringVar(&dbPath, "db", "", "SQLite database path (default: JSON state files)")
	flag.BoolVar(&showHelp, "help", false, "Show help")
	flag.BoolVar(&showHelp, "?", false, "Show help (shorthand)")
	flag.Usage = printUsage

	flag.Parse()

	rc := renderConfig{
		step:    stepMode,
		endStep: endStep,
		infix:   infixMode,
		noColor: noColor,
		mark:    markStyle,
	}
	expr := strings.TrimSpace(flag.Arg(0))

	if showHelp {
		printUsage()
		if expr == "" {
			return
		}
	}

	// Build options
	opts := []rpn.Option{
		rpn.WithPrecompile(precompile),
		rpn.WithStepMode(rc.active()),
		rpn.WithNoPrompt(noPrompt),
	}
	if dbPath != "" {
		opts = append(opts, rpn.WithSQLiteStore(dbPath))
	}
	if ctxJSON != "" {
		params, sim, err := parseCtx(ctxJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: -ctx is not valid JSON: %v\n", err)
			os.Exit(1)
		}
		if len(params) > 0 {
			opts = append(opts, rpn.WithParams(params))
		}
		if len(sim) > 0 {
			opts = append(opts, rpn.WithSimVars(sim))
		}
	}

	// Create the prompt reader once; all parameter prompts share it.
	stdinReader := bufio.NewReader(os.Stdin)
	opts = append(opts, rpn.WithInputReader(func(prompt string) (string, error) {
		if prompt != "" {
			fmt.Print(prompt)
		}
		return stdinReader.ReadString('\n')
	}))

	runtime, err := rpn.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer runtime.Close()

	switch {
	case resetVars:
		if err := runtime.ResetRegisters(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registers s0..s9 reset.")
		printStateLocation(os.Stdout, runtime, dbPath)
		return
	case printVars:
		regs, err := runtime.Registers()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Persistent registers (s0..s9):", regs)
		printStateLocation(os.Stdout, runtime, dbPath)
		return
	case seedInit:
		if err := rpn.SeedDefaults(runtime.Store()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Seeded default functions and simvars.")
		printStateLocation(os.Stdout, runtime, dbPath)
		return
	}

	if expr != "" {
		evalAndPrint(runtime, expr, rc)
		return
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		runREPL(runtime, rc)
		return
	}

	// piped input: evaluate one line
	line, _ := stdinReader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	evalAndPrint(runtime, line, rc)
}

// evalAndPrint runs one expression and prints either the step replay
// or the final stack. A nil outcome is an evaluation error; a non-nil
// outcome with an error means state could not be saved afterwards.
func evalAndPrint(runtime *rpn.Runtime, expr string, rc renderConfig) {
	out, err := runtime.Eval(expr)
	if out == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if rc.active() {
		r := &renderer{w: os.Stdout, rc: rc}
		r.Render(out)
	} else {
		fmt.Println(rpn.FormatStack(out.Stack))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warn: %v\n", err)
	}
}

// parseCtx decodes the -ctx JSON: parameter bindings keyed "p1".."pN"
// and an external-variable overlay.
func parseCtx(src string) (rpn.Params, rpn.SimVars, error) {
	var ctx struct {
		Params  map[string]float64 `json:"params"`
		SimVars rpn.SimVars        `json:"simvars"`
	}
	if err := json.Unmarshal([]byte(src), &ctx); err != nil {
		return nil, nil, err
	}
	params := rpn.Params{}
	for name, v := range ctx.Params {
		if !strings.HasPrefix(name, "p") {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil || n < 1 {
			continue
		}
		params[n] = v
	}
	return params, ctx.SimVars, nil
}

func printStateLocation(w io.Writer, runtime *rpn.Runtime, dbPath string) {
	if fs, ok := runtime.Store().(*rpn.FileStore); ok {
		fmt.Fprintln(w, "State file:", fs.StatePath)
	} else if dbPath != "" {
		fmt.Fprintln(w, "Database:", dbPath)
	}
}

func printUsage() {
	files := rpn.NewFileStore()
	fmt.Printf(`Usage:
  rpn "<expr>" [flags]
  rpn              # starts the REPL

Flags:
  -step, -s        Step mode
  -endstep         After each step, print the new postfix with the result highlighted
  -infix, -i       Render operator steps as infix (e.g. "9 - 5 = 4")
  -precompile, -p  Inline function bodies (without pN) before evaluating
  -nocolor, -c, -n Disable colors
  -mark, -m        Highlight with a yellow background
  -noprompt        Suppress parameter prompt labels (input is still read)
  -ctx JSON        Inline context (params, simvars)
  -db PATH         Use a SQLite store at PATH instead of the JSON files
  -print           Print the persistent registers and exit
  -reset           Reset the persistent registers and exit
  -init            Seed default functions and simvars when empty, then exit
  -help, -?        Show this help

State files:
  State:   %s
  SimVars: %s
  Funcs:   %s
  Results: %s
`, files.StatePath, files.SimPath, files.FuncPath, files.StackPath)
}
