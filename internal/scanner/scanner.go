// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package scanner splits postfix source into classified tokens.
//
// Scanning never fails: words that fit no lexical class come back as
// Name tokens and are resolved, or rejected, by the evaluator.
package scanner

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"nickandperla.net/rpn/internal/token"
)

var (
	numberRe       = regexp.MustCompile(`^[-+]?\d+(?:[.,]\d+)?$`)
	paramRe        = regexp.MustCompile(`^p(\d+)$`)
	recallRe       = regexp.MustCompile(`^r(\d+)?(?:,(\d+))?$`)
	storeRe        = regexp.MustCompile(`^s(\d+)$`)
	loadRe         = regexp.MustCompile(`^l(\d+)$`)
	sessionStoreRe = regexp.MustCompile(`^sp(\d+)$`)
	sessionLoadRe  = regexp.MustCompile(`^lp(\d+)$`)
	simVarRe       = regexp.MustCompile(`^\((>?)([A-Za-z]+):(.*)\)$`)
)

// Scan tokenizes src. Whitespace separates tokens and is never
// emitted. A run opening with "(" extends to its balancing ")"
// regardless of embedded spaces (to end of input when unbalanced).
// "if{" and "else{" are single tokens, "}" always stands alone, and
// any other maximal run free of whitespace, parens and braces is one
// token. A stray ")" or "{" scans as a one-character opaque token.
func Scan(src string) []token.Token {
	var toks []token.Token
	runes := []rune(src)
	n := len(runes)
	i := 0
	for i < n {
		c := runes[i]
		if unicode.IsSpace(c) {
			i++
			continue
		}
		if c == '(' {
			j := i + 1
			depth := 1
			for j < n && depth > 0 {
				switch runes[j] {
				case '(':
					depth++
				case ')':
					depth--
				}
				j++
			}
			toks = append(toks, classify(string(runes[i:j])))
			i = j
			continue
		}
		if hasPrefixAt(runes, i, "if{") {
			toks = append(toks, classify("if{"))
			i += 3
			continue
		}
		if hasPrefixAt(runes, i, "else{") {
			toks = append(toks, classify("else{"))
			i += 5
			continue
		}
		if c == '}' {
			toks = append(toks, classify("}"))
			i++
			continue
		}
		j := i
		for j < n && !unicode.IsSpace(runes[j]) && !isStructural(runes[j]) {
			j++
		}
		if j == i {
			// stray ")" or "{"
			toks = append(toks, classify(string(c)))
			i++
			continue
		}
		toks = append(toks, classify(string(runes[i:j])))
		i = j
	}
	return toks
}

func isStructural(r rune) bool {
	switch r {
	case '(', ')', '{', '}':
		return true
	}
	return false
}

func hasPrefixAt(runes []rune, i int, s string) bool {
	for _, r := range s {
		if i >= len(runes) || runes[i] != r {
			return false
		}
		i++
	}
	return true
}

func classify(text string) token.Token {
	t := token.Token{Text: text}
	switch text {
	case "if{":
		t.Kind = token.IfOpen
		return t
	case "else{":
		t.Kind = token.ElseOpen
		return t
	case "}":
		t.Kind = token.BlockClose
		return t
	}
	if token.IsNoOp(text) {
		t.Kind = token.NoOp
		return t
	}
	if numberRe.MatchString(text) {
		t.Kind = token.Number
		return t
	}
	if m := paramRe.FindStringSubmatch(text); m != nil {
		t.Kind = token.Param
		t.Index, _ = strconv.Atoi(m[1])
		return t
	}
	if m := recallRe.FindStringSubmatch(text); m != nil {
		t.Kind = token.Recall
		t.Index = 1
		if m[1] != "" {
			t.Index, _ = strconv.Atoi(m[1])
		}
		t.Elem = -1
		if m[2] != "" {
			t.Elem, _ = strconv.Atoi(m[2])
		}
		return t
	}
	if m := storeRe.FindStringSubmatch(text); m != nil {
		t.Kind = token.Store
		t.Index, _ = strconv.Atoi(m[1])
		return t
	}
	if m := loadRe.FindStringSubmatch(text); m != nil {
		t.Kind = token.Load
		t.Index, _ = strconv.Atoi(m[1])
		return t
	}
	if m := sessionStoreRe.FindStringSubmatch(text); m != nil {
		t.Kind = token.SessionStore
		t.Index, _ = strconv.Atoi(m[1])
		return t
	}
	if m := sessionLoadRe.FindStringSubmatch(text); m != nil {
		t.Kind = token.SessionLoad
		t.Index, _ = strconv.Atoi(m[1])
		return t
	}
	if m := simVarRe.FindStringSubmatch(text); m != nil {
		if m[1] == ">" {
			t.Kind = token.SimWrite
		} else {
			t.Kind = token.SimRead
		}
		t.Prefix = m[2]
		t.Key = strings.TrimSpace(m[3])
		return t
	}
	if token.IsOperator(text) {
		t.Kind = token.Operator
		return t
	}
	t.Kind = token.Name
	return t
}
