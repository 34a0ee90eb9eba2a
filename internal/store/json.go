// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"nickandperla.net/rpn/internal/state"
)

// Environment overrides for the default file locations.
const (
	StateEnv   = "RPN_STATE"
	SimVarsEnv = "RPN_SIMVARS"
	FuncsEnv   = "RPN_FUNCS"
	StackEnv   = "RPN_STACK"
)

// Files is the JSON-file backed store. Each piece of state lives in
// its own file so the files stay hand-editable. Writes go through a
// temp file in the same directory and a rename.
type Files struct {
	StatePath string
	SimPath   string
	FuncPath  string
	StackPath string
}

// NewFiles resolves the four file paths from the environment, falling
// back to dotfiles in the user's home directory.
func NewFiles() *Files {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	pick := func(env, name string) string {
		if p := os.Getenv(env); p != "" {
			return p
		}
		return filepath.Join(home, name)
	}
	return &Files{
		StatePath: pick(StateEnv, ".rpn_state.json"),
		SimPath:   pick(SimVarsEnv, ".simvars.json"),
		FuncPath:  pick(FuncsEnv, ".rpnfunc.json"),
		StackPath: pick(StackEnv, ".rpnstack.json"),
	}
}

// LoadRegisters reads the register bank from {"vars": [...]}. Slots
// beyond the stored length, and elements that are not numbers, stay 0.
func (f *Files) LoadRegisters() (state.Registers, error) {
	var regs state.Registers
	var doc struct {
		Vars []any `json:"vars"`
	}
	if err := readJSON(f.StatePath, &doc); err != nil {
		return regs, nil
	}
	for i, v := range doc.Vars {
		if i >= state.NumRegisters {
			break
		}
		if n, ok := toFloat(v); ok {
			regs[i] = n
		}
	}
	return regs, nil
}

// SaveRegisters writes the register bank as {"vars": [...]}.
func (f *Files) SaveRegisters(regs state.Registers) error {
	return writeJSON(f.StatePath, map[string]any{"vars": regs[:]})
}

// LoadSimVars reads external variables from {"simvars": {...}}.
// Values are grouped by prefix; legacy flat entries whose value is a
// bare number fold into the A prefix.
func (f *Files) LoadSimVars() (state.SimVars, error) {
	sim := state.SimVars{}
	var doc struct {
		SimVars map[string]any `json:"simvars"`
	}
	if err := readJSON(f.SimPath, &doc); err != nil {
		return sim, nil
	}
	for prefix, v := range doc.SimVars {
		inner, ok := v.(map[string]any)
		if !ok {
			continue
		}
		for key, raw := range inner {
			if n, ok := toFloat(raw); ok {
				sim.Set(prefix, key, n)
			}
		}
	}
	for key, v := range doc.SimVars {
		if _, ok := v.(map[string]any); ok {
			continue
		}
		if n, ok := toFloat(v); ok {
			sim.Set("A", key, n)
		}
	}
	return sim, nil
}

// SaveSimVars writes external variables as {"simvars": {...}}.
func (f *Files) SaveSimVars(sim state.SimVars) error {
	if sim == nil {
		sim = state.SimVars{}
	}
	return writeJSON(f.SimPath, map[string]any{"simvars": sim})
}

// LoadFunctions reads the function table, a bare array of
// {"name", "params", "rpn"} objects. Entries missing a field or
// carrying the wrong types are skipped.
func (f *Files) LoadFunctions() (state.Functions, error) {
	var raw []json.RawMessage
	if err := readJSON(f.FuncPath, &raw); err != nil {
		return nil, nil
	}
	var funcs state.Functions
	for _, entry := range raw {
		var fn struct {
			Name   *string `json:"name"`
			Params *int    `json:"params"`
			Body   *string `json:"rpn"`
		}
		if err := json.Unmarshal(entry, &fn); err != nil {
			continue
		}
		if fn.Name == nil || fn.Params == nil || fn.Body == nil {
			continue
		}
		if *fn.Name == "" || *fn.Params < 0 {
			continue
		}
		funcs = append(funcs, state.Function{Name: *fn.Name, Params: *fn.Params, Body: *fn.Body})
	}
	return funcs, nil
}

// SaveFunctions writes the function table in file order.
func (f *Files) SaveFunctions(funcs state.Functions) error {
	if funcs == nil {
		funcs = state.Functions{}
	}
	return writeJSON(f.FuncPath, funcs)
}

// LoadHistory reads previous result stacks from {"results": [...]},
// most recent first. Entries that are not arrays of numbers are
// skipped.
func (f *Files) LoadHistory() (state.History, error) {
	var doc struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := readJSON(f.StackPath, &doc); err != nil {
		return nil, nil
	}
	var hist state.History
	for _, entry := range doc.Results {
		var stack []float64
		if err := json.Unmarshal(entry, &stack); err != nil {
			continue
		}
		hist = append(hist, stack)
	}
	return hist, nil
}

// SaveHistory writes the most recent result stacks, trimmed to
// HistoryDepth.
func (f *Files) SaveHistory(hist state.History) error {
	if len(hist) > state.HistoryDepth {
		hist = hist[:state.HistoryDepth]
	}
	if hist == nil {
		hist = state.History{}
	}
	return writeJSON(f.StackPath, map[string]any{"results": hist})
}

// Close is a no-op for the file store.
func (f *Files) Close() error {
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON writes v indented, atomically: a temp file next to the
// target, then a rename over it.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, ".tmp-"+filepath.Base(path))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// toFloat coerces the JSON value shapes the legacy files carry:
// numbers, and numeric strings.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
