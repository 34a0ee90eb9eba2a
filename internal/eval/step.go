// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package eval

import (
	"fmt"
	"strings"

	"nickandperla.net/rpn/internal/scanner"
	"nickandperla.net/rpn/internal/state"
	"nickandperla.net/rpn/internal/token"
)

// Segment is a value span pinned during redex scanning: the token
// position it covers, its numeric value at resolution time, and the
// source spelling for display.
type Segment struct {
	Start int
	End   int
	Val   float64
	Text  string
}

// StepKind tags what a reduction step consumed.
type StepKind int

const (
	StepOperator StepKind = iota
	StepFunction
	StepConditional
	StepStore // persistent or session store, external write
	StepRecall
	StepBlock // unreachable else block
)

// Step is one visible reduction.
type Step struct {
	N       int
	Kind    StepKind
	Before  []token.Token // working list the redex was found in
	Start   int           // first consumed index in Before
	End     int           // last consumed index in Before
	Args    []Segment     // consumed value segments
	Op      token.Token   // the token reduced
	Branch  string        // IF, ELSE or NONE for conditionals
	Detail  string        // the reduction line, uncolored
	Results []token.Token // tokens spliced into the list
	After   []token.Token // working list after the splice
	Mark    int           // index in After to highlight, -1 when nothing landed
}

// Reducer replays an expression one visible reduction at a time. It
// runs from the same starting environment the evaluator ran against
// and applies real side effects as redexes fire, so a load resolves
// to the value it had at the equivalent point of the evaluation and
// the final token list matches the evaluator's final stack. Resolved
// value segments stay pinned across steps; they are never re-read.
type Reducer struct {
	env    *Evaluator
	toks   []token.Token
	sess   state.Registers
	pinned []Segment
	n      int
	done   bool
}

// NewReducer builds a step reducer over toks. The options describe
// the pre-evaluation environment. The reducer mutates the state it is
// given, so pass copies when the originals must stay untouched.
func NewReducer(toks []token.Token, opts ...Option) *Reducer {
	kept := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind != token.NoOp {
			kept = append(kept, t)
		}
	}
	return &Reducer{env: New(opts...), toks: kept}
}

// Tokens returns the current working token list.
func (r *Reducer) Tokens() []token.Token {
	return r.toks
}

// redex is one chosen reduction site.
type redex struct {
	kind    StepKind
	op      int // index of the reduced token
	tok     token.Token
	args    []Segment
	start   int // first consumed index
	end     int // last consumed index
	hasElse bool
	endIf   int
	endElse int
}

// Next applies one reduction and reports it, or returns nil when no
// redex remains.
func (r *Reducer) Next() (*Step, error) {
	if r.done {
		return nil, nil
	}
	rx, segs, err := r.findRedex()
	if err != nil {
		return nil, err
	}
	if rx == nil {
		r.pinned = segs
		r.done = true
		return nil, nil
	}

	step := &Step{
		Kind:   rx.kind,
		Before: append([]token.Token(nil), r.toks...),
		Start:  rx.start,
		End:    rx.end,
		Args:   rx.args,
		Op:     rx.tok,
		Mark:   -1,
	}

	results, err := r.apply(rx, step)
	if err != nil {
		return nil, err
	}
	step.Results = results

	after := make([]token.Token, 0, rx.start+len(results)+len(r.toks)-rx.end-1)
	after = append(after, r.toks[:rx.start]...)
	after = append(after, results...)
	after = append(after, r.toks[rx.end+1:]...)
	r.toks = after
	step.After = after

	if len(results) > 0 {
		step.Mark = rx.start + len(results) - 1
	}

	// consumed args drop off the pin list; survivors sit left of the
	// splice point, so their positions hold
	r.pinned = segs[:len(segs)-len(rx.args)]

	r.n++
	step.N = r.n
	return step, nil
}

// ReduceAll drains the reducer.
func (r *Reducer) ReduceAll() ([]Step, error) {
	var steps []Step
	for {
		s, err := r.Next()
		if err != nil {
			return steps, err
		}
		if s == nil {
			return steps, nil
		}
		steps = append(steps, *s)
	}
}

// findRedex scans left to right for the first reducible token,
// resuming after the already pinned segments. It returns the chosen
// redex and the segment list as of the stop point.
func (r *Reducer) findRedex() (*redex, []Segment, error) {
	segs := r.pinned
	i := 0
	if len(segs) > 0 {
		i = segs[len(segs)-1].End + 1
	}
	for ; i < len(r.toks); i++ {
		t := r.toks[i]
		if v, ok := r.valueOf(t); ok {
			segs = append(segs, Segment{Start: i, End: i, Val: v, Text: t.Text})
			continue
		}
		switch t.Kind {
		case token.IfOpen:
			if len(segs) == 0 {
				continue
			}
			endIf, err := matchClose(r.toks, i)
			if err != nil {
				return nil, nil, err
			}
			hasElse := endIf+1 < len(r.toks) && r.toks[endIf+1].Kind == token.ElseOpen
			endElse := endIf
			if hasElse {
				if endElse, err = matchClose(r.toks, endIf+1); err != nil {
					return nil, nil, err
				}
			}
			a := segs[len(segs)-1]
			return &redex{
				kind: StepConditional, op: i, tok: t,
				args: []Segment{a}, start: a.Start, end: endElse,
				hasElse: hasElse, endIf: endIf, endElse: endElse,
			}, segs, nil

		case token.ElseOpen:
			end, err := matchClose(r.toks, i)
			if err != nil {
				return nil, nil, err
			}
			return &redex{kind: StepBlock, op: i, tok: t, start: i, end: end}, segs, nil

		case token.Recall:
			return &redex{kind: StepRecall, op: i, tok: t, start: i, end: i}, segs, nil

		case token.Store, token.SessionStore, token.SimWrite:
			if t.Kind != token.SimWrite && !state.InRange(t.Index) {
				continue
			}
			if len(segs) == 0 {
				if t.Kind != token.SessionStore {
					continue
				}
				// an empty stack session-stores 0
				return &redex{kind: StepStore, op: i, tok: t, start: i, end: i}, segs, nil
			}
			a := segs[len(segs)-1]
			return &redex{kind: StepStore, op: i, tok: t, args: []Segment{a}, start: a.Start, end: i}, segs, nil

		case token.Operator, token.Name:
			if fn, ok := r.env.funcs.Lookup(t.Text); ok {
				k := fn.Params
				if len(segs) < k {
					continue
				}
				args := append([]Segment(nil), segs[len(segs)-k:]...)
				start := i
				if k > 0 {
					start = args[0].Start
				}
				return &redex{kind: StepFunction, op: i, tok: t, args: args, start: start, end: i}, segs, nil
			}
			if t.Kind != token.Operator {
				continue
			}
			k := token.Arity(t.Text)
			if k == 0 || len(segs) < k {
				continue
			}
			args := append([]Segment(nil), segs[len(segs)-k:]...)
			return &redex{kind: StepOperator, op: i, tok: t, args: args, start: args[0].Start, end: i}, segs, nil
		}
	}
	return nil, segs, nil
}

// valueOf resolves tokens that stand for plain values against the
// current replay state.
func (r *Reducer) valueOf(t token.Token) (float64, bool) {
	switch t.Kind {
	case token.Number:
		v, err := token.ParseNumber(t.Text)
		if err != nil {
			return 0, false
		}
		return v, true
	case token.Param:
		return r.env.params[t.Index], true
	case token.Load:
		if !state.InRange(t.Index) {
			return 0, false
		}
		return r.env.regs[t.Index], true
	case token.SessionLoad:
		if !state.InRange(t.Index) {
			return 0, false
		}
		return r.sess[t.Index], true
	case token.SimRead:
		return r.env.sim.Get(t.Prefix, t.Key), true
	}
	return 0, false
}

// apply performs the redex's reduction, fills the step's Branch and
// Detail, and returns the tokens to splice in.
func (r *Reducer) apply(rx *redex, step *Step) ([]token.Token, error) {
	switch rx.kind {
	case StepOperator:
		g := &frame{stack: segmentVals(rx.args)}
		if err := applyOperator(rx.tok.Text, g); err != nil {
			return nil, err
		}
		res := g.top()
		step.Detail = detailLine(rx.args, rx.tok.Text, token.Format(res))
		return []token.Token{token.DisplayNum(res)}, nil

	case StepFunction:
		fn, _ := r.env.funcs.Lookup(rx.tok.Text)
		body := scanner.Scan(fn.Body)
		sub := make([]token.Token, 0, len(body))
		for _, bt := range body {
			if bt.Kind == token.Param {
				if bt.Index >= 1 && bt.Index <= len(rx.args) {
					sub = append(sub, token.Num(rx.args[bt.Index-1].Val))
				} else {
					sub = append(sub, token.Num(0))
				}
				continue
			}
			sub = append(sub, bt)
		}
		out, err := r.runBody(sub)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fn.Name, err)
		}
		res := 0.0
		if len(out) > 0 {
			res = out[len(out)-1]
		}
		step.Detail = detailLine(rx.args, rx.tok.Text, token.Format(res))
		return []token.Token{token.DisplayNum(res)}, nil

	case StepConditional:
		return r.applyConditional(rx, step)

	case StepStore:
		var v float64
		if len(rx.args) > 0 {
			v = rx.args[0].Val
		}
		var results []token.Token
		shown := ""
		switch rx.tok.Kind {
		case token.Store:
			r.env.regs[rx.tok.Index] = v
		case token.SessionStore:
			r.sess[rx.tok.Index] = v
			shown = token.Format(v)
			if len(rx.args) > 0 {
				// the stored value stays available
				results = []token.Token{token.DisplayNum(v)}
			}
		case token.SimWrite:
			r.env.sim.Set(rx.tok.Prefix, rx.tok.Key, v)
		}
		step.Detail = detailLine(rx.args, rx.tok.Text, shown)
		return results, nil

	case StepRecall:
		g := &frame{}
		if err := recall(rx.tok, g, r.env.history); err != nil {
			return nil, err
		}
		results := displayTokens(g.stack)
		step.Detail = detailLine(nil, rx.tok.Text, token.Join(results))
		return results, nil

	default: // StepBlock
		step.Detail = detailLine(nil, rx.tok.Text, "")
		return nil, nil
	}
}

// applyConditional sub-evaluates the chosen branch against the live
// environment and splices every value the branch produced.
func (r *Reducer) applyConditional(rx *redex, step *Step) ([]token.Token, error) {
	ifBody := r.toks[rx.op+1 : rx.endIf]
	var elseBody []token.Token
	if rx.hasElse {
		elseBody = r.toks[rx.endIf+2 : rx.endElse]
	}

	take := rx.args[0].Val != 0
	branch := "NONE"
	var body []token.Token
	switch {
	case take:
		branch = "IF"
		body = ifBody
	case rx.hasElse:
		branch = "ELSE"
		body = elseBody
	}
	out, err := r.runBody(body)
	if err != nil {
		return nil, err
	}
	results := displayTokens(out)

	visIf := "..."
	if take {
		visIf = token.Join(ifBody)
	}
	detail := fmt.Sprintf("%s if{ %s }", rx.args[0].Text, visIf)
	if rx.hasElse {
		visElse := "..."
		if !take {
			visElse = token.Join(elseBody)
		}
		detail += fmt.Sprintf(" else{ %s }", visElse)
	}
	detail += fmt.Sprintf(" → branch: %s → %s", branch, token.Join(results))

	step.Branch = branch
	step.Detail = strings.TrimSpace(detail)
	return results, nil
}

// runBody evaluates body tokens on a fresh frame against the live
// environment, sharing side effects exactly like the evaluator's own
// sub-evaluations.
func (r *Reducer) runBody(body []token.Token) ([]float64, error) {
	if len(body) == 0 {
		return nil, nil
	}
	g := &frame{}
	if err := r.env.run(body, g, nil); err != nil {
		return nil, err
	}
	return g.stack, nil
}

func segmentVals(segs []Segment) []float64 {
	vals := make([]float64, len(segs))
	for i, s := range segs {
		vals[i] = s.Val
	}
	return vals
}

func displayTokens(vals []float64) []token.Token {
	toks := make([]token.Token, len(vals))
	for i, v := range vals {
		toks[i] = token.DisplayNum(v)
	}
	return toks
}

// detailLine renders "<args> <op> = <results>", trimmed when nothing
// was produced.
func detailLine(args []Segment, op, results string) string {
	parts := make([]string, 0, len(args)+3)
	for _, a := range args {
		parts = append(parts, a.Text)
	}
	parts = append(parts, op, "=")
	if results != "" {
		parts = append(parts, results)
	}
	return strings.Join(parts, " ")
}
