package rpn

import (
	"fmt"
	"sort"
	"strings"

	"nickandperla.net/rpn/internal/eval"
	"nickandperla.net/rpn/internal/infix"
	"nickandperla.net/rpn/internal/scanner"
	"nickandperla.net/rpn/internal/state"
	"nickandperla.net/rpn/internal/store"
	"nickandperla.net/rpn/internal/token"
)

// Runtime drives one evaluation end to end: load state from the
// store, prompt for unbound parameters, evaluate, persist what
// changed, and replay the reduction when step mode is on.
type Runtime struct {
	store       store.Store
	newStore    func() (store.Store, error)
	inputReader func(prompt string) (string, error)
	ctxParams   state.Params
	ctxSim      state.SimVars
	precompile  bool
	stepMode    bool
	noPrompt    bool
}

// New creates a runtime with the given options. Without a store
// option, state persists to the JSON dotfiles.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{ctxParams: state.Params{}, ctxSim: state.SimVars{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.store == nil && r.newStore != nil {
		s, err := r.newStore()
		if err != nil {
			return nil, err
		}
		r.store = s
	}
	if r.store == nil {
		r.store = store.NewFiles()
	}
	return r, nil
}

// Outcome is one evaluation's result.
type Outcome struct {
	Stack  []float64     // final stack
	Tokens []token.Token // final reduced token list, step mode only
	Steps  []eval.Step   // reductions, step mode only
}

// Eval runs one postfix expression through the full cycle. On an
// evaluation error nothing is saved and the outcome is nil. A non-nil
// outcome with a non-nil error means the evaluation succeeded but
// saving state or replaying the reduction failed afterwards.
func (r *Runtime) Eval(src string) (*Outcome, error) {
	regs, err := r.store.LoadRegisters()
	if err != nil {
		return nil, err
	}
	sim, err := r.store.LoadSimVars()
	if err != nil {
		return nil, err
	}
	if sim == nil {
		sim = state.SimVars{}
	}
	sim.Merge(r.ctxSim)
	funcs, err := r.store.LoadFunctions()
	if err != nil {
		return nil, err
	}
	hist, err := r.store.LoadHistory()
	if err != nil {
		return nil, err
	}

	toks := scanner.Scan(src)
	params := r.ctxParams.Clone()
	r.promptParams(toks, params)

	evalToks := toks
	if r.precompile {
		evalToks, err = eval.New(eval.WithFunctions(funcs)).Precompile(toks)
		if err != nil {
			return nil, err
		}
	}

	// the reducer replays from the state as it was before evaluation
	preRegs := regs
	preSim := sim.Clone()

	res, err := eval.New(
		eval.WithRegisters(&regs),
		eval.WithSimVars(sim),
		eval.WithFunctions(funcs),
		eval.WithParams(params),
		eval.WithHistory(hist),
	).Evaluate(evalToks)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Stack: res.Stack}
	var firstErr error
	keep := func(err error) {
		if firstErr == nil && err != nil {
			firstErr = err
		}
	}

	keep(r.store.SaveRegisters(regs))
	if res.SimDirty {
		keep(r.store.SaveSimVars(sim))
	}
	if !pureRecall(toks) {
		keep(r.store.SaveHistory(hist.Push(res.Stack)))
	}

	if r.stepMode {
		red := eval.NewReducer(evalToks,
			eval.WithRegisters(&preRegs),
			eval.WithSimVars(preSim),
			eval.WithFunctions(funcs),
			eval.WithParams(params),
			eval.WithHistory(hist),
		)
		steps, err := red.ReduceAll()
		keep(err)
		out.Steps = steps
		out.Tokens = red.Tokens()
	}

	return out, firstErr
}

// pureRecall reports whether the expression is a single recall token;
// those read history without appending to it.
func pureRecall(toks []token.Token) bool {
	return len(toks) == 1 && toks[0].Kind == token.Recall
}

// promptParams fills values for parameter ordinals the expression
// uses but the context does not bind, in ordinal order. Without a
// reader every missing parameter is 0; blank, unparseable, or EOF
// input reads as 0 too.
func (r *Runtime) promptParams(toks []token.Token, params state.Params) {
	seen := map[int]bool{}
	var missing []int
	for _, t := range toks {
		if t.Kind != token.Param || seen[t.Index] {
			continue
		}
		seen[t.Index] = true
		if _, ok := params[t.Index]; !ok {
			missing = append(missing, t.Index)
		}
	}
	sort.Ints(missing)
	for _, n := range missing {
		params[n] = r.readParam(n)
	}
}

func (r *Runtime) readParam(n int) float64 {
	if r.inputReader == nil {
		return 0
	}
	label := ""
	if !r.noPrompt {
		label = fmt.Sprintf("Parameter p%d: ", n)
	}
	line, err := r.inputReader(label)
	if err != nil {
		line = "0"
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return 0
	}
	v, err := token.ParseNumber(line)
	if err != nil {
		return 0
	}
	return v
}

// Registers returns the persistent bank from the store.
func (r *Runtime) Registers() (state.Registers, error) {
	return r.store.LoadRegisters()
}

// ResetRegisters zeroes the persistent bank.
func (r *Runtime) ResetRegisters() error {
	return r.store.SaveRegisters(state.Registers{})
}

// SimVars returns the stored external variables.
func (r *Runtime) SimVars() (state.SimVars, error) {
	return r.store.LoadSimVars()
}

// Functions returns the stored function table.
func (r *Runtime) Functions() (state.Functions, error) {
	return r.store.LoadFunctions()
}

// DefineFunction upserts one function in the stored table.
func (r *Runtime) DefineFunction(f state.Function) error {
	funcs, err := r.store.LoadFunctions()
	if err != nil {
		return err
	}
	return r.store.SaveFunctions(funcs.Upsert(f))
}

// History returns the stored result stacks, most recent first.
func (r *Runtime) History() (state.History, error) {
	return r.store.LoadHistory()
}

// Store exposes the backing store.
func (r *Runtime) Store() store.Store {
	return r.store
}

// Close releases the store.
func (r *Runtime) Close() error {
	return r.store.Close()
}

// SetInputReader changes the parameter prompt reader.
func (r *Runtime) SetInputReader(fn func(prompt string) (string, error)) {
	r.inputReader = fn
}

// SetStepMode toggles step replay.
func (r *Runtime) SetStepMode(on bool) { r.stepMode = on }

// StepMode reports whether step replay is on.
func (r *Runtime) StepMode() bool { return r.stepMode }

// SetPrecompile toggles static function expansion before evaluation.
func (r *Runtime) SetPrecompile(on bool) { r.precompile = on }

// Precompile reports whether static expansion is on.
func (r *Runtime) Precompile() bool { return r.precompile }

// SetNoPrompt suppresses parameter prompt labels.
func (r *Runtime) SetNoPrompt(on bool) { r.noPrompt = on }

// NoPrompt reports whether prompt labels are suppressed.
func (r *Runtime) NoPrompt() bool { return r.noPrompt }

// FormatStack renders a result stack the way results print: space
// separated, in display format.
func FormatStack(stack []float64) string {
	parts := make([]string, len(stack))
	for i, v := range stack {
		parts[i] = token.Format(v)
	}
	return strings.Join(parts, " ")
}

// Scan tokenizes a postfix expression.
func Scan(src string) []token.Token {
	return scanner.Scan(src)
}

// Operators returns the operator names, sorted.
func Operators() []string {
	return token.Operators()
}

// ToPostfix converts an infix expression to postfix source.
func ToPostfix(src string) (string, error) {
	return infix.ToPostfix(src)
}

// FromPostfix renders scanned postfix tokens as an infix expression.
func FromPostfix(toks []token.Token) (string, error) {
	return infix.FromPostfix(toks)
}
