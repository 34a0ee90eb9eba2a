// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package token defines the postfix token types and the operator registry.
package token

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies a scanned token.
type Kind int

const (
	Name Kind = iota // unresolved word, candidate function name

	Number
	Param        // pN
	Store        // sN  - pop into persistent register
	Load         // lN  - push persistent register
	SessionStore // spN - copy top into session register
	SessionLoad  // lpN - push session register
	SimRead      // (PREFIX:KEY)
	SimWrite     // (>PREFIX:KEY)
	Recall       // r, rX, rX,Y or r,Y
	Operator
	IfOpen     // if{
	ElseOpen   // else{
	BlockClose // }
	NoOp       // Number, Boolean, ","
)

// Token is one unit of a postfix expression. Text always carries the
// source spelling; the remaining fields are filled per kind.
type Token struct {
	Kind   Kind
	Text   string
	Index  int    // register number, parameter ordinal, or recall stack index
	Elem   int    // recall element ordinal (1-based), -1 when the whole stack is meant
	Prefix string // external variable namespace
	Key    string // external variable key
}

// String returns the string representation of a token kind.
func (k Kind) String() string {
	switch k {
	case Name:
		return "NAME"
	case Number:
		return "NUMBER"
	case Param:
		return "PARAM"
	case Store:
		return "STORE"
	case Load:
		return "LOAD"
	case SessionStore:
		return "SESSION_STORE"
	case SessionLoad:
		return "SESSION_LOAD"
	case SimRead:
		return "SIM_READ"
	case SimWrite:
		return "SIM_WRITE"
	case Recall:
		return "RECALL"
	case Operator:
		return "OPERATOR"
	case IfOpen:
		return "IF_OPEN"
	case ElseOpen:
		return "ELSE_OPEN"
	case BlockClose:
		return "BLOCK_CLOSE"
	case NoOp:
		return "NOOP"
	}
	return "UNKNOWN"
}

// opArity maps every operator symbol to its operand count.
var opArity = map[string]int{
	"+": 2, "-": 2, "*": 2, "/": 2, "%": 2, "^": 2,
	"==": 2, "=": 2, "!=": 2, "<>": 2,
	">": 2, "<": 2, ">=": 2, "<=": 2,
	"and": 2, "&&": 2, "or": 2, "||": 2,
	"min": 2, "max": 2, "pow": 2, "sqrt": 2,
	"not": 1, "!": 1,
	"round": 1, "floor": 1, "ceil": 1, "abs": 1,
	"sin": 1, "cos": 1, "tan": 1, "log": 1, "exp": 1,
	"pow2": 1, "sqrt2": 1, "dnor": 1,
	"clamp": 3,
}

// IsOperator reports whether s is an operator symbol.
func IsOperator(s string) bool {
	_, ok := opArity[s]
	return ok
}

// Arity returns the operand count of an operator symbol, 0 for any
// other string.
func Arity(s string) int {
	return opArity[s]
}

// Operators returns every operator symbol, sorted.
func Operators() []string {
	out := make([]string, 0, len(opArity))
	for op := range opArity {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// IsNoOp reports whether s is one of the compatibility tokens the
// evaluator skips.
func IsNoOp(s string) bool {
	switch s {
	case "Number", "Boolean", ",":
		return true
	}
	return false
}

// ParseNumber parses a numeric literal, accepting comma as the
// decimal separator.
func ParseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}

// Format renders v the way results are displayed: values within 1e-12
// of an integer print as that integer, anything else at full
// precision.
func Format(v float64) string {
	r := math.Round(v)
	if math.Abs(v-r) < 1e-12 {
		if r == 0 {
			r = 0 // collapse -0
		}
		return strconv.FormatFloat(r, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Num builds a Number token carrying v at full precision, for
// splicing computed values into a token stream.
func Num(v float64) Token {
	return Token{Kind: Number, Text: strconv.FormatFloat(v, 'g', -1, 64)}
}

// DisplayNum is Num with display formatting, so spliced tokens read
// the way results print.
func DisplayNum(v float64) Token {
	return Token{Kind: Number, Text: Format(v)}
}

// Join renders tokens back to source form, space separated.
func Join(toks []Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = t.Text
	}
	return strings.Join(parts, " ")
}
