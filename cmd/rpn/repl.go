package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"nickandperla.net/rpn/pkg/rpn"
)

const (
	historyEnv  = "RPN_REPL_HISTORY"
	historyFile = ".rpn_repl_history"
	historyMax  = 100
)

var replCommands = []string{
	":e", ":fe", ":s", ":l", ":r", ":rl", ":f", ":?",
	":step", ":p", ":color", ":mark", ":end", ":infix",
	":si", ":sp", ":spi", ":sip", ":i", ":ip", ":noprompt", ":q", ":=",
}

// replSession holds the display toggles and the input-mode buffer
// around one runtime.
type replSession struct {
	rt          *rpn.Runtime
	ln          *liner.State
	w           io.Writer
	rc          renderConfig
	inputMode   bool
	inputEcho   bool
	buffer      []string
	lastPostfix string
}

func runREPL(rt *rpn.Runtime, rc renderConfig) {
	s := &replSession{rt: rt, rc: rc, w: os.Stdout}
	s.ln = liner.NewLiner()
	defer s.ln.Close()
	s.ln.SetCtrlCAborts(true)
	s.ln.SetWordCompleter(s.complete)

	// Parameter prompts go through the line editor
	rt.SetInputReader(func(label string) (string, error) {
		return s.ln.Prompt(label)
	})

	histPath := historyPath()
	// Load history (best-effort)
	if f, err := os.Open(histPath); err == nil {
		s.ln.ReadHistory(f)
		f.Close()
	}

	s.printHelp()
	for {
		prompt := "rpn> "
		if s.inputMode {
			prompt = "rpn✓> "
		}
		line, err := s.ln.Prompt(prompt)
		if err != nil {
			// EOF and Ctrl-C both leave the REPL
			fmt.Fprintln(s.w)
			break
		}
		line = strings.TrimSpace(line)
		if line != "" {
			s.ln.AppendHistory(line)
		}
		if s.dispatch(line) {
			break
		}
	}

	// Persist history (best-effort)
	if f, err := os.Create(histPath); err == nil {
		s.ln.WriteHistory(f)
		f.Close()
		trimHistory(histPath)
	}
}

// dispatch handles one line; true means quit.
func (s *replSession) dispatch(line string) bool {
	if s.inputMode {
		return s.inputLine(line)
	}
	if line == "" {
		s.printHelp()
		return false
	}
	if strings.HasPrefix(line, ":") {
		return s.command(line)
	}
	s.lastPostfix = line
	s.eval(line)
	return false
}

// inputLine accumulates tokens until an empty line or "=" evaluates
// the buffer. :q and :i leave token accumulation.
func (s *replSession) inputLine(line string) bool {
	switch line {
	case ":q", ":i":
		s.inputMode = false
		s.buffer = nil
		fmt.Fprintln(s.w, "Input mode (token-wise): OFF")
		return false
	case "", "=":
		if len(s.buffer) > 0 {
			expr := strings.Join(s.buffer, " ")
			s.buffer = nil
			s.lastPostfix = expr
			s.eval(expr)
		} else {
			s.printHelp()
		}
		return false
	}
	s.buffer = append(s.buffer, strings.Fields(line)...)
	if s.inputEcho {
		fmt.Fprintln(s.w, strings.Join(s.buffer, " "))
	}
	return false
}

func (s *replSession) command(cmd string) bool {
	switch {
	case cmd == ":q":
		return true
	case cmd == ":e":
		s.editStoreFile(func(fs *rpn.FileStore) string { return fs.SimPath })
	case cmd == ":fe":
		s.editStoreFile(func(fs *rpn.FileStore) string { return fs.FuncPath })
	case cmd == ":s":
		s.showSimVars()
	case cmd == ":l":
		s.showRegisters()
	case cmd == ":r":
		s.resetRegisters()
	case cmd == ":rl":
		s.showHistory()
	case cmd == ":f":
		s.listFunctions()
	case cmd == ":?":
		s.showLastPostfix()
	case strings.HasPrefix(cmd, ":="):
		s.evalInfix(strings.TrimSpace(cmd[2:]))
	case cmd == ":step":
		s.rt.SetStepMode(!s.rt.StepMode())
		fmt.Fprintln(s.w, "Step mode:", onOff(s.rt.StepMode()))
	case cmd == ":p":
		s.rt.SetPrecompile(!s.rt.Precompile())
		fmt.Fprintln(s.w, "Precompile:", onOff(s.rt.Precompile()))
	case cmd == ":color":
		s.rc.noColor = !s.rc.noColor
		fmt.Fprintln(s.w, "No-color:", onOff(s.rc.noColor))
	case cmd == ":mark":
		s.rc.mark = !s.rc.mark
		fmt.Fprintln(s.w, "Marker:", onOff(s.rc.mark))
	case cmd == ":end":
		s.rc.endStep = !s.rc.endStep
		fmt.Fprintln(s.w, "Endstep:", onOff(s.rc.endStep))
	case cmd == ":infix":
		s.rc.infix = !s.rc.infix
		fmt.Fprintln(s.w, "Infix:", onOff(s.rc.infix))
	case cmd == ":si":
		if !s.rt.StepMode() {
			s.rt.SetStepMode(true)
			s.rc.infix = true
			fmt.Fprintln(s.w, "Step: ON, Infix: ON")
		} else {
			s.rt.SetStepMode(false)
			fmt.Fprintln(s.w, "Step: OFF")
		}
	case cmd == ":sp":
		if !s.rt.StepMode() {
			s.rt.SetStepMode(true)
			s.rt.SetPrecompile(true)
			fmt.Fprintln(s.w, "Step: ON, Precompile: ON")
		} else {
			s.rt.SetStepMode(false)
			fmt.Fprintln(s.w, "Step: OFF")
		}
	case cmd == ":spi", cmd == ":sip":
		if !s.rt.StepMode() {
			s.rt.SetStepMode(true)
			s.rt.SetPrecompile(true)
			s.rc.infix = true
			fmt.Fprintln(s.w, "Step: ON, Precompile: ON, Infix: ON")
		} else {
			s.rt.SetStepMode(false)
			fmt.Fprintln(s.w, "Step: OFF")
		}
	case cmd == ":i":
		s.inputMode = !s.inputMode
		s.buffer = nil
		fmt.Fprintln(s.w, "Input mode (token-wise):", onOff(s.inputMode))
	case cmd == ":ip":
		s.inputEcho = !s.inputEcho
		fmt.Fprintln(s.w, "Input echo:", onOff(s.inputEcho))
	case cmd == ":noprompt":
		s.rt.SetNoPrompt(!s.rt.NoPrompt())
		fmt.Fprintln(s.w, "Param prompts without label:", onOff(s.rt.NoPrompt()))
	default:
		s.printHelp()
	}
	return false
}

// eval runs one expression; endstep implies step for the reduction
// itself, without latching the step toggle on.
func (s *replSession) eval(expr string) {
	prev := s.rt.StepMode()
	s.rt.SetStepMode(prev || s.rc.endStep)
	out, err := s.rt.Eval(expr)
	s.rt.SetStepMode(prev)
	if out == nil {
		fmt.Fprintln(s.w, "Error:", err)
		return
	}
	if prev || s.rc.endStep {
		r := &renderer{w: s.w, rc: s.rc}
		r.Render(out)
	} else {
		fmt.Fprintln(s.w, rpn.FormatStack(out.Stack))
	}
	if err != nil {
		fmt.Fprintln(s.w, "Warn:", err)
	}
}

func (s *replSession) evalInfix(src string) {
	if src == "" {
		fmt.Fprintln(s.w, "Usage: := <INFIX EXPRESSION>")
		return
	}
	post, err := rpn.ToPostfix(src)
	if err != nil {
		fmt.Fprintln(s.w, "Error converting infix to postfix:", err)
		return
	}
	fmt.Fprintln(s.w, "As postfix:", post)
	s.lastPostfix = post
	s.eval(post)
}

func (s *replSession) showLastPostfix() {
	if s.lastPostfix == "" {
		fmt.Fprintln(s.w, "(no last postfix)")
		return
	}
	if inf, err := rpn.FromPostfix(rpn.Scan(s.lastPostfix)); err == nil {
		fmt.Fprintln(s.w, inf)
		return
	}
	fmt.Fprintln(s.w, s.lastPostfix)
}

func (s *replSession) showSimVars() {
	sim, err := s.rt.SimVars()
	if err != nil {
		fmt.Fprintln(s.w, "Error:", err)
		return
	}
	if sim == nil {
		sim = rpn.SimVars{}
	}
	data, err := json.MarshalIndent(map[string]rpn.SimVars{"simvars": sim}, "", "  ")
	if err != nil {
		fmt.Fprintln(s.w, "Error:", err)
		return
	}
	fmt.Fprintln(s.w, string(data))
}

func (s *replSession) showRegisters() {
	regs, err := s.rt.Registers()
	if err != nil {
		fmt.Fprintln(s.w, "Error:", err)
		return
	}
	fmt.Fprintln(s.w, "Persistent registers (s0..s9):", regs)
	printStateLocation(s.w, s.rt, "")
}

func (s *replSession) resetRegisters() {
	if err := s.rt.ResetRegisters(); err != nil {
		fmt.Fprintln(s.w, "Error:", err)
		return
	}
	fmt.Fprintln(s.w, "Registers s0..s9 reset.")
	printStateLocation(s.w, s.rt, "")
}

func (s *replSession) showHistory() {
	hist, err := s.rt.History()
	if err != nil {
		fmt.Fprintln(s.w, "Error:", err)
		return
	}
	if hist == nil {
		hist = rpn.History{}
	}
	data, err := json.MarshalIndent(map[string]rpn.History{"results": hist}, "", "  ")
	if err != nil {
		fmt.Fprintln(s.w, "Error:", err)
		return
	}
	fmt.Fprintln(s.w, string(data))
}

func (s *replSession) listFunctions() {
	funcs, err := s.rt.Functions()
	if err != nil {
		fmt.Fprintln(s.w, "Error:", err)
		return
	}
	if len(funcs) == 0 {
		fmt.Fprintln(s.w, "(no functions)")
		return
	}
	for _, f := range funcs {
		fmt.Fprintf(s.w, "- %s(%d): %s\n", f.Name, f.Params, f.Body)
	}
}

func (s *replSession) editStoreFile(pick func(*rpn.FileStore) string) {
	fs, ok := s.rt.Store().(*rpn.FileStore)
	if !ok {
		fmt.Fprintln(s.w, "(editing requires the JSON file store)")
		return
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}
	cmd := exec.Command(editor, pick(fs))
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintln(s.w, "Error:", err)
	}
}

// complete is a word completer over commands, operators, register and
// parameter names, stored functions and simvar tokens.
func (s *replSession) complete(line string, pos int) (string, []string, string) {
	head := line[:pos]
	tail := line[pos:]
	start := strings.LastIndexAny(head, " \t") + 1
	prefix := head[start:]
	var matches []string
	for _, cand := range s.completions() {
		if strings.HasPrefix(cand, prefix) {
			matches = append(matches, cand)
		}
	}
	return head[:start], matches, tail
}

func (s *replSession) completions() []string {
	cands := append([]string{}, replCommands...)
	cands = append(cands, rpn.Operators()...)
	cands = append(cands, "if{", "else{", "}")
	for i := 0; i < 10; i++ {
		cands = append(cands, fmt.Sprintf("s%d", i), fmt.Sprintf("l%d", i), fmt.Sprintf("sp%d", i), fmt.Sprintf("lp%d", i))
	}
	for i := 1; i <= 9; i++ {
		cands = append(cands, fmt.Sprintf("p%d", i))
	}
	for i := 1; i <= 8; i++ {
		cands = append(cands, fmt.Sprintf("r%d", i))
	}
	if funcs, err := s.rt.Functions(); err == nil {
		for _, f := range funcs {
			cands = append(cands, f.Name)
		}
	}
	if sim, err := s.rt.SimVars(); err == nil {
		for pref, vals := range sim {
			cands = append(cands, "("+pref+":", "(>"+pref+":")
			for key := range vals {
				cands = append(cands, "("+pref+":"+key+")", "(>"+pref+":"+key+")")
			}
		}
	}
	return cands
}

func (s *replSession) printHelp() {
	fmt.Fprint(s.w, "\x1b[2J\x1b[H")
	fmt.Fprintln(s.w, "RPN REPL commands:")
	fmt.Fprintln(s.w, "  :e        - edit the simvars file ($EDITOR)")
	fmt.Fprintln(s.w, "  :fe       - edit the functions file ($EDITOR)")
	fmt.Fprintln(s.w, "  :s        - show simvars")
	fmt.Fprintln(s.w, "  :l        - show persistent registers")
	fmt.Fprintln(s.w, "  :r        - reset persistent registers")
	fmt.Fprintln(s.w, "  :rl       - show result stacks (r1..r8)")
	fmt.Fprintln(s.w, "  :f        - list functions")
	fmt.Fprintln(s.w, "  :?        - show the last postfix (as infix when possible)")
	fmt.Fprintln(s.w, "  := <INFIX>- convert infix to postfix and evaluate")
	fmt.Fprintln(s.w, "  :step     - toggle step mode")
	fmt.Fprintln(s.w, "  :p        - toggle precompile")
	fmt.Fprintln(s.w, "  :color    - toggle no-color")
	fmt.Fprintln(s.w, "  :mark     - toggle marker")
	fmt.Fprintln(s.w, "  :end      - toggle endstep (implies step)")
	fmt.Fprintln(s.w, "  :infix    - toggle infix output in step mode")
	fmt.Fprintln(s.w, "  :si       - step+infix ON (when off) / step OFF (when on)")
	fmt.Fprintln(s.w, "  :sp       - step+precompile ON (when off) / step OFF (when on)")
	fmt.Fprintln(s.w, "  :spi/:sip - step+precompile+infix ON (when off) / step OFF (when on)")
	fmt.Fprintln(s.w, "  :i        - toggle input mode (token-wise)")
	fmt.Fprintln(s.w, "  :ip       - toggle echoing the buffer in input mode")
	fmt.Fprintln(s.w, "  :noprompt - toggle parameter prompts without labels (REPL only)")
	fmt.Fprintln(s.w, "  :q        - quit")
	fmt.Fprintln(s.w)
	fmt.Fprintln(s.w, "Input without ':' evaluates as postfix. An empty line shows this help.")
}

func historyPath() string {
	if p := os.Getenv(historyEnv); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, historyFile)
}

// trimHistory keeps the newest historyMax lines of the history file.
func trimHistory(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) <= historyMax {
		return
	}
	lines = lines[len(lines)-historyMax:]
	os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}

func onOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}
