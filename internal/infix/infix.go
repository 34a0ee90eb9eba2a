// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package infix converts between infix notation and the calculator's
// postfix language. Both directions are REPL conveniences; evaluation
// always runs on postfix.
package infix

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"nickandperla.net/rpn/internal/token"
)

var (
	simVarRe = regexp.MustCompile(`^\(>?[A-Za-z]+:.*\)$`)
	recallRe = regexp.MustCompile(`^r\d*$`)
)

// wordCalls are binary operators spelled as words; they render and
// parse as two-argument calls rather than inline operators.
var wordCalls = map[string]bool{"min": true, "max": true, "pow": true, "sqrt": true}

// ToPostfix parses an infix expression and returns the equivalent
// postfix source. Function calls use name(a, b) syntax; external
// variable groups pass through unchanged.
func ToPostfix(src string) (string, error) {
	toks, err := lex(src)
	if err != nil {
		return "", err
	}
	if len(toks) == 0 {
		return "", fmt.Errorf("empty expression")
	}
	p := &parser{toks: toks}
	if err := p.expr(); err != nil {
		return "", err
	}
	if p.pos != len(p.toks) {
		return "", fmt.Errorf("unexpected token %q", p.peek())
	}
	return strings.Join(p.out, " "), nil
}

// FromPostfix rebuilds an infix rendering of postfix tokens. Binary
// operators wrap their operands in parentheses, word-named operators
// and unaries render as calls, and anything the operator registry
// does not know passes through in place.
func FromPostfix(toks []token.Token) (string, error) {
	var stack []string
	pop := func(op string, n int) ([]string, error) {
		if len(stack) < n {
			return nil, fmt.Errorf("too few operands for %q", op)
		}
		args := stack[len(stack)-n:]
		stack = stack[:len(stack)-n]
		return args, nil
	}
	for _, t := range toks {
		if t.Kind == token.NoOp {
			continue
		}
		if t.Kind != token.Operator {
			stack = append(stack, t.Text)
			continue
		}
		switch k := token.Arity(t.Text); k {
		case 1:
			args, err := pop(t.Text, 1)
			if err != nil {
				return "", err
			}
			if t.Text == "not" || t.Text == "!" {
				stack = append(stack, "("+t.Text+" "+args[0]+")")
			} else {
				stack = append(stack, t.Text+"("+args[0]+")")
			}
		case 2:
			args, err := pop(t.Text, 2)
			if err != nil {
				return "", err
			}
			if wordCalls[t.Text] {
				stack = append(stack, t.Text+"("+args[0]+", "+args[1]+")")
			} else {
				stack = append(stack, "("+args[0]+" "+t.Text+" "+args[1]+")")
			}
		default:
			args, err := pop(t.Text, k)
			if err != nil {
				return "", err
			}
			stack = append(stack, t.Text+"("+strings.Join(args, ", ")+")")
		}
	}
	if len(stack) == 1 {
		return stack[0], nil
	}
	return strings.Join(stack, " "), nil
}

// lex splits infix source into flat tokens: numbers, words, operator
// symbols, parentheses, commas, and external variable groups. Recall
// spellings like r2,3 absorb their element suffix so the comma is not
// taken for an argument separator.
func lex(src string) ([]string, error) {
	var out []string
	runes := []rune(src)
	n := len(runes)
	i := 0
	for i < n {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++

		case r == '(':
			depth := 1
			j := i + 1
			for j < n && depth > 0 {
				switch runes[j] {
				case '(':
					depth++
				case ')':
					depth--
				}
				j++
			}
			if depth == 0 && simVarRe.MatchString(string(runes[i:j])) {
				out = append(out, string(runes[i:j]))
				i = j
				break
			}
			out = append(out, "(")
			i++

		case r == ')' || r == ',':
			out = append(out, string(r))
			i++

		case strings.ContainsRune("+-*/%^<>=!&|", r):
			if i+1 < n {
				switch two := string(runes[i : i+2]); two {
				case ">=", "<=", "==", "!=", "<>", "&&", "||":
					out = append(out, two)
					i += 2
					continue
				}
			}
			out = append(out, string(r))
			i++

		case unicode.IsDigit(r) || r == '.':
			j := i
			for j < n && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			out = append(out, string(runes[i:j]))
			i = j

		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < n && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
				j++
			}
			word := string(runes[i:j])
			if recallRe.MatchString(word) && j+1 < n && runes[j] == ',' && unicode.IsDigit(runes[j+1]) {
				k := j + 1
				for k < n && unicode.IsDigit(runes[k]) {
					k++
				}
				word = string(runes[i:k])
				j = k
			}
			out = append(out, word)
			i = j

		default:
			return nil, fmt.Errorf("unexpected character %q", string(r))
		}
	}
	return out, nil
}

// binLevels orders the inline binary operators from loosest to
// tightest binding.
var binLevels = [][]string{
	{"or", "||"},
	{"and", "&&"},
	{"==", "=", "!=", "<>", ">", "<", ">=", "<="},
	{"+", "-"},
	{"*", "/", "%"},
}

type parser struct {
	toks []string
	pos  int
	out  []string
}

func (p *parser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expr() error {
	return p.binary(0)
}

func (p *parser) binary(level int) error {
	if level == len(binLevels) {
		return p.power()
	}
	if err := p.binary(level + 1); err != nil {
		return err
	}
	for hasOp(binLevels[level], p.peek()) {
		op := p.next()
		if err := p.binary(level + 1); err != nil {
			return err
		}
		p.out = append(p.out, op)
	}
	return nil
}

// power is right associative: 2^3^2 is 2^(3^2).
func (p *parser) power() error {
	if err := p.unary(); err != nil {
		return err
	}
	if p.peek() == "^" {
		p.next()
		if err := p.power(); err != nil {
			return err
		}
		p.out = append(p.out, "^")
	}
	return nil
}

func (p *parser) unary() error {
	switch t := p.peek(); t {
	case "not", "!":
		p.next()
		if err := p.unary(); err != nil {
			return err
		}
		p.out = append(p.out, t)
		return nil
	case "-":
		p.next()
		if isNumber(p.peek()) {
			p.out = append(p.out, "-"+p.next())
			return nil
		}
		// no unary minus in postfix: subtract from zero
		p.out = append(p.out, "0")
		if err := p.unary(); err != nil {
			return err
		}
		p.out = append(p.out, "-")
		return nil
	}
	return p.atom()
}

func (p *parser) atom() error {
	t := p.peek()
	switch {
	case t == "":
		return fmt.Errorf("unexpected end of expression")

	case t == "(":
		p.next()
		if err := p.expr(); err != nil {
			return err
		}
		if p.peek() != ")" {
			return fmt.Errorf("missing closing parenthesis")
		}
		p.next()
		return nil

	case isNumber(t):
		p.out = append(p.out, p.next())
		return nil

	case simVarRe.MatchString(t):
		p.out = append(p.out, p.next())
		return nil

	case isWord(t):
		name := p.next()
		if p.peek() != "(" {
			p.out = append(p.out, name)
			return nil
		}
		p.next()
		if p.peek() == ")" {
			p.next()
			p.out = append(p.out, name)
			return nil
		}
		for {
			if err := p.expr(); err != nil {
				return err
			}
			if p.peek() != "," {
				break
			}
			p.next()
		}
		if p.peek() != ")" {
			return fmt.Errorf("missing closing parenthesis in call to %s", name)
		}
		p.next()
		p.out = append(p.out, name)
		return nil
	}
	return fmt.Errorf("unexpected token %q", t)
}

func hasOp(ops []string, t string) bool {
	for _, op := range ops {
		if op == t {
			return true
		}
	}
	return false
}

func isNumber(t string) bool {
	r, _ := utf8.DecodeRuneInString(t)
	return unicode.IsDigit(r) || r == '.'
}

func isWord(t string) bool {
	r, _ := utf8.DecodeRuneInString(t)
	return unicode.IsLetter(r) || r == '_'
}
