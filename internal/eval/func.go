package eval

import (
	"fmt"

	"nickandperla.net/rpn/internal/scanner"
	"nickandperla.net/rpn/internal/state"
	"nickandperla.net/rpn/internal/token"
)

// call applies a user-defined function. The top of stack binds the
// last parameter, so arguments pop in reverse. The body is scanned at
// call time with pN tokens replaced by the bound arguments and run on
// a fresh frame; every value the body leaves behind lands on the
// caller's stack.
func (e *Evaluator) call(fn state.Function, f *frame) error {
	if e.depth >= MaxCallDepth {
		return fmt.Errorf("%w: %q", ErrDepthExceeded, fn.Name)
	}
	k := fn.Params
	if len(f.stack) < k {
		return fmt.Errorf("%w: %q needs %d argument(s), have %d", ErrFunctionArity, fn.Name, k, len(f.stack))
	}
	args := make([]float64, k)
	copy(args, f.stack[len(f.stack)-k:])
	f.stack = f.stack[:len(f.stack)-k]

	body := scanner.Scan(fn.Body)
	sub := make([]token.Token, 0, len(body))
	for _, bt := range body {
		if bt.Kind == token.Param {
			// out-of-range ordinals substitute as 0
			if bt.Index >= 1 && bt.Index <= k {
				sub = append(sub, token.Num(args[bt.Index-1]))
			} else {
				sub = append(sub, token.Num(0))
			}
			continue
		}
		sub = append(sub, bt)
	}

	g := &frame{}
	e.depth++
	err := e.run(sub, g, nil)
	e.depth--
	if err != nil {
		return fmt.Errorf("%s: %w", fn.Name, err)
	}
	f.stack = append(f.stack, g.stack...)
	return nil
}

// Precompile expands every function name in toks into its body with
// pN tokens stripped, recursively, so the result evaluates without
// consulting the function table. A definition cycle trips the depth
// bound instead of expanding forever.
func (e *Evaluator) Precompile(toks []token.Token) ([]token.Token, error) {
	return e.expand(toks, 0)
}

func (e *Evaluator) expand(toks []token.Token, depth int) ([]token.Token, error) {
	if depth >= MaxCallDepth {
		return nil, fmt.Errorf("%w: function expansion", ErrDepthExceeded)
	}
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		// only tokens evaluation would dispatch as calls expand
		expandable := t.Kind == token.Operator || t.Kind == token.Name || t.Kind == token.NoOp
		if !expandable {
			out = append(out, t)
			continue
		}
		fn, ok := e.funcs.Lookup(t.Text)
		if !ok {
			out = append(out, t)
			continue
		}
		var body []token.Token
		for _, bt := range scanner.Scan(fn.Body) {
			if bt.Kind != token.Param {
				body = append(body, bt)
			}
		}
		body, err := e.expand(body, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, body...)
	}
	return out, nil
}
