// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"fmt"
	"io"
	"strings"

	"nickandperla.net/rpn/pkg/rpn"
)

// ANSI styles for step rendering.
const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiMark   = "\x1b[43m\x1b[30m"
)

// renderConfig carries the display toggles for one evaluation.
type renderConfig struct {
	step    bool
	endStep bool
	infix   bool
	noColor bool
	mark    bool
}

// active reports whether the step replay should print at all; endstep
// implies step.
func (rc renderConfig) active() bool { return rc.step || rc.endStep }

// renderer prints a step replay: context red, redex yellow (or
// background-marked), reduction lines yellow.
type renderer struct {
	w  io.Writer
	rc renderConfig
}

func (r *renderer) color(text, style string) string {
	if r.rc.noColor || text == "" {
		return text
	}
	switch style {
	case "Y":
		return ansiYellow + text + ansiReset
	case "R":
		return ansiRed + text + ansiReset
	case "M":
		return ansiMark + text + ansiReset
	}
	return text
}

func (r *renderer) midStyle() string {
	if r.rc.mark {
		return "M"
	}
	return "Y"
}

func join(toks []rpn.Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}

func (r *renderer) highlightRange(toks []rpn.Token, a, b int) string {
	prefix := join(toks[:a])
	mid := join(toks[a : b+1])
	suffix := join(toks[b+1:])
	out := ""
	if prefix != "" {
		out += r.color(prefix, "R")
		if mid != "" || suffix != "" {
			out += " "
		}
	}
	if mid != "" {
		out += r.color(mid, r.midStyle())
		if suffix != "" {
			out += " "
		}
	}
	if suffix != "" {
		out += r.color(suffix, "R")
	}
	return out
}

func (r *renderer) highlightSingle(toks []rpn.Token, idx int) string {
	prefix := join(toks[:idx])
	suffix := join(toks[idx+1:])
	out := ""
	if prefix != "" {
		out += prefix + " "
	}
	out += r.color(toks[idx].Text, r.midStyle())
	if suffix != "" {
		out += " " + suffix
	}
	return out
}

// detail renders the reduction line, as infix for one- and
// two-operand operator steps when -infix is on.
func (r *renderer) detail(st rpn.Step) string {
	if r.rc.infix && st.Kind == rpn.StepOperator && len(st.Results) == 1 {
		switch len(st.Args) {
		case 2:
			return fmt.Sprintf("%s %s %s = %s", st.Args[0].Text, st.Op.Text, st.Args[1].Text, st.Results[0].Text)
		case 1:
			return fmt.Sprintf("%s %s = %s", st.Op.Text, st.Args[0].Text, st.Results[0].Text)
		}
	}
	return st.Detail
}

// Render prints the replay for one outcome: the starting token list,
// each reduction with its highlighted redex and reduction line, and
// the final token list.
func (r *renderer) Render(out *rpn.Outcome) {
	if len(out.Steps) > 0 {
		fmt.Fprintln(r.w, join(out.Steps[0].Before))
	} else {
		fmt.Fprintln(r.w, join(out.Tokens))
	}
	for _, st := range out.Steps {
		fmt.Fprintf(r.w, "step %d: %s\n", st.N, r.highlightRange(st.Before, st.Start, st.End))
		fmt.Fprintln(r.w, r.color(r.detail(st), "Y"))
		if r.rc.endStep {
			if st.Mark >= 0 {
				fmt.Fprintf(r.w, "step %d end: %s\n", st.N, r.highlightSingle(st.After, st.Mark))
			} else {
				fmt.Fprintf(r.w, "step %d end: %s\n", st.N, join(st.After))
			}
		}
	}
	fmt.Fprintln(r.w, join(out.Tokens))
}
