// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package state defines the typed containers an evaluation runs against.
package state

// NumRegisters is the size of each register bank.
const NumRegisters = 10

// Registers is a fixed bank of numeric slots. The persistent bank
// (s0-s9) lives across evaluations; every evaluation also gets a
// fresh session bank (sp0-sp9).
type Registers [NumRegisters]float64

// InRange reports whether idx addresses a register slot.
func InRange(idx int) bool {
	return idx >= 0 && idx < NumRegisters
}

// SimVars holds external variables grouped by namespace prefix.
type SimVars map[string]map[string]float64

// Get returns the value under prefix/key, 0 when absent.
func (s SimVars) Get(prefix, key string) float64 {
	return s[prefix][key]
}

// Set upserts the value under prefix/key.
func (s SimVars) Set(prefix, key string, v float64) {
	inner, ok := s[prefix]
	if !ok {
		inner = make(map[string]float64)
		s[prefix] = inner
	}
	inner[key] = v
}

// Clone returns a deep copy, nil-safe.
func (s SimVars) Clone() SimVars {
	if s == nil {
		return nil
	}
	out := make(SimVars, len(s))
	for prefix, inner := range s {
		cp := make(map[string]float64, len(inner))
		for k, v := range inner {
			cp[k] = v
		}
		out[prefix] = cp
	}
	return out
}

// Merge overlays other onto s, prefix by prefix.
func (s SimVars) Merge(other SimVars) {
	for prefix, inner := range other {
		for k, v := range inner {
			s.Set(prefix, k, v)
		}
	}
}

// Function is one named postfix function.
type Function struct {
	Name   string `json:"name"`
	Params int    `json:"params"`
	Body   string `json:"rpn"`
}

// Functions is an ordered function table.
type Functions []Function

// Lookup returns the definition bound to name. When a table carries
// duplicate names the latest definition wins.
func (fs Functions) Lookup(name string) (Function, bool) {
	for i := len(fs) - 1; i >= 0; i-- {
		if fs[i].Name == name {
			return fs[i], true
		}
	}
	return Function{}, false
}

// Upsert replaces the definition named f.Name, or appends it.
func (fs Functions) Upsert(f Function) Functions {
	for i := range fs {
		if fs[i].Name == f.Name {
			fs[i] = f
			return fs
		}
	}
	return append(fs, f)
}

// HistoryDepth bounds how many result stacks are kept.
const HistoryDepth = 8

// History holds previous result stacks, most recent first.
type History [][]float64

// Push prepends stack and trims to HistoryDepth.
func (h History) Push(stack []float64) History {
	cp := append([]float64(nil), stack...)
	out := append(History{cp}, h...)
	if len(out) > HistoryDepth {
		out = out[:HistoryDepth]
	}
	return out
}

// Params maps 1-based parameter ordinals to values.
type Params map[int]float64

// Clone returns a copy, nil-safe.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
