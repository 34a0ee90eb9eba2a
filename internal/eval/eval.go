package eval

import (
	"fmt"

	"nickandperla.net/rpn/internal/scanner"
	"nickandperla.net/rpn/internal/state"
	"nickandperla.net/rpn/internal/token"
)

// MaxCallDepth bounds nested function expansion. User functions may
// call each other, so a definition cycle would otherwise recurse
// without limit.
const MaxCallDepth = 64

// Evaluator is the environment a postfix run executes against: the
// persistent register bank, the external variable table, user-defined
// functions, parameter bindings, and prior result stacks. The value
// stack and the session register bank are per-run and live in frames.
type Evaluator struct {
	regs    *state.Registers
	sim     state.SimVars
	funcs   state.Functions
	params  state.Params
	history state.History

	depth    int
	simDirty bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithRegisters shares an existing persistent register bank. Stores
// mutate it in place, so the caller observes the post-run values.
func WithRegisters(r *state.Registers) Option {
	return func(e *Evaluator) { e.regs = r }
}

// WithSimVars shares an external variable table.
func WithSimVars(s state.SimVars) Option {
	return func(e *Evaluator) { e.sim = s }
}

// WithFunctions supplies the user-defined function table.
func WithFunctions(f state.Functions) Option {
	return func(e *Evaluator) { e.funcs = f }
}

// WithParams supplies bindings for pN parameter tokens.
func WithParams(p state.Params) Option {
	return func(e *Evaluator) { e.params = p }
}

// WithHistory supplies prior result stacks for recall tokens.
func WithHistory(h state.History) Option {
	return func(e *Evaluator) { e.history = h }
}

// New creates an evaluator. Without options it runs against empty
// state: zeroed registers, no external variables, no functions, no
// parameters, no history.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		regs:   &state.Registers{},
		sim:    state.SimVars{},
		params: state.Params{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one successful evaluation.
type Result struct {
	Stack    []float64
	Session  state.Registers
	SimDirty bool
}

// frame is the per-run mutable pair: value stack plus session
// register bank. Conditional branches and function calls run on fresh
// frames while sharing the evaluator environment.
type frame struct {
	stack   []float64
	session state.Registers
}

func (f *frame) push(v float64) { f.stack = append(f.stack, v) }

func (f *frame) pop() (float64, error) {
	if len(f.stack) == 0 {
		return 0, ErrStackUnderflow
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

// top reads the top of stack without popping, 0 when empty.
func (f *frame) top() float64 {
	if len(f.stack) == 0 {
		return 0
	}
	return f.stack[len(f.stack)-1]
}

// EvalString scans and evaluates src.
func (e *Evaluator) EvalString(src string) (*Result, error) {
	return e.Evaluate(scanner.Scan(src))
}

// Evaluate runs toks to completion. A failure wraps one of the
// package sentinels; side effects applied before the failing token
// are not rolled back.
func (e *Evaluator) Evaluate(toks []token.Token) (*Result, error) {
	e.simDirty = false
	f := &frame{}
	if err := e.run(toks, f, e.history); err != nil {
		return nil, err
	}
	return &Result{Stack: f.stack, Session: f.session, SimDirty: e.simDirty}, nil
}

// run is the interpreter loop. hist is non-nil only at top level:
// recall inside a branch or function body sees no history, matching
// the isolation of the rest of the sub-environment.
func (e *Evaluator) run(toks []token.Token, f *frame, hist state.History) error {
	i := 0
	for i < len(toks) {
		t := toks[i]
		switch t.Kind {
		case token.Number:
			v, err := token.ParseNumber(t.Text)
			if err != nil {
				return fmt.Errorf("%w: %q", ErrMalformedNumber, t.Text)
			}
			f.push(v)

		case token.Param:
			// unbound parameters read as 0
			f.push(e.params[t.Index])

		case token.Recall:
			if err := recall(t, f, hist); err != nil {
				return err
			}

		case token.Store:
			if !state.InRange(t.Index) {
				return fmt.Errorf("%w: %s", ErrRegisterIndex, t.Text)
			}
			v, err := f.pop()
			if err != nil {
				return fmt.Errorf("%s: %w", t.Text, err)
			}
			e.regs[t.Index] = v

		case token.Load:
			if !state.InRange(t.Index) {
				return fmt.Errorf("%w: %s", ErrRegisterIndex, t.Text)
			}
			f.push(e.regs[t.Index])

		case token.SessionStore:
			if !state.InRange(t.Index) {
				return fmt.Errorf("%w: %s", ErrRegisterIndex, t.Text)
			}
			f.session[t.Index] = f.top()

		case token.SessionLoad:
			if !state.InRange(t.Index) {
				return fmt.Errorf("%w: %s", ErrRegisterIndex, t.Text)
			}
			f.push(f.session[t.Index])

		case token.SimWrite:
			v, err := f.pop()
			if err != nil {
				return fmt.Errorf("%s: %w", t.Text, err)
			}
			e.sim.Set(t.Prefix, t.Key, v)
			e.simDirty = true

		case token.SimRead:
			f.push(e.sim.Get(t.Prefix, t.Key))

		case token.IfOpen:
			next, err := e.conditional(toks, i, f)
			if err != nil {
				return err
			}
			i = next
			continue

		case token.ElseOpen:
			// else{ without a preceding conditional: skip the block
			end, err := matchClose(toks, i)
			if err != nil {
				return err
			}
			i = end + 1
			continue

		case token.BlockClose:
			return fmt.Errorf("%w: %q", ErrUnknownToken, t.Text)

		default: // Operator, Name, NoOp
			// a function definition shadows operators and no-ops
			if fn, ok := e.funcs.Lookup(t.Text); ok {
				if err := e.call(fn, f); err != nil {
					return err
				}
				break
			}
			if t.Kind == token.Operator {
				if err := applyOperator(t.Text, f); err != nil {
					return err
				}
				break
			}
			if t.Kind == token.NoOp {
				break
			}
			return fmt.Errorf("%w: %q", ErrUnknownToken, t.Text)
		}
		i++
	}
	return nil
}

// conditional executes an if{ ... } [else{ ... }] group opening at
// open. Both closes are located before the condition is popped. The
// taken branch runs on a fresh frame sharing the evaluator
// environment, and its result stack lands on the caller's: branch
// results surface, branch pops cannot reach caller values. Returns
// the cursor position after the group.
func (e *Evaluator) conditional(toks []token.Token, open int, f *frame) (int, error) {
	endIf, err := matchClose(toks, open)
	if err != nil {
		return 0, err
	}
	hasElse := endIf+1 < len(toks) && toks[endIf+1].Kind == token.ElseOpen
	endElse := endIf
	if hasElse {
		endElse, err = matchClose(toks, endIf+1)
		if err != nil {
			return 0, err
		}
	}
	cond, err := f.pop()
	if err != nil {
		return 0, fmt.Errorf("if{: %w", err)
	}
	var body []token.Token
	switch {
	case cond != 0:
		body = toks[open+1 : endIf]
	case hasElse:
		body = toks[endIf+2 : endElse]
	}
	if len(body) > 0 {
		sub := &frame{}
		if err := e.run(body, sub, nil); err != nil {
			return 0, err
		}
		f.stack = append(f.stack, sub.stack...)
	}
	return endElse + 1, nil
}

// matchClose returns the index of the } balancing the opener at open.
// Nested if{ and else{ raise the depth.
func matchClose(toks []token.Token, open int) (int, error) {
	depth := 1
	for i := open + 1; i < len(toks); i++ {
		switch toks[i].Kind {
		case token.IfOpen, token.ElseOpen:
			depth++
		case token.BlockClose:
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: no closing } for %q at index %d", ErrUnmatchedBlock, toks[open].Text, open)
}

// recall pushes values from a prior result stack. Index selects the
// slot, 1 being the most recent; Elem selects a single 1-based
// element, or the whole stack in order when negative.
func recall(t token.Token, f *frame, hist state.History) error {
	if t.Index < 1 || t.Index > len(hist) {
		return fmt.Errorf("%w: r%d", ErrMissingHistory, t.Index)
	}
	entry := hist[t.Index-1]
	if t.Elem < 0 {
		f.stack = append(f.stack, entry...)
		return nil
	}
	if t.Elem < 1 || t.Elem > len(entry) {
		return fmt.Errorf("%w: r%d has no element %d", ErrMissingHistory, t.Index, t.Elem)
	}
	f.push(entry[t.Elem-1])
	return nil
}
