package store

import (
	"sync"

	"nickandperla.net/rpn/internal/state"
)

// Memory is an in-memory store for testing.
type Memory struct {
	mu    sync.RWMutex
	regs  state.Registers
	sim   state.SimVars
	funcs state.Functions
	hist  state.History
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{sim: state.SimVars{}}
}

// LoadRegisters returns the stored register bank.
func (m *Memory) LoadRegisters() (state.Registers, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.regs, nil
}

// SaveRegisters stores the register bank.
func (m *Memory) SaveRegisters(regs state.Registers) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs = regs
	return nil
}

// LoadSimVars returns a copy of the stored external variables.
func (m *Memory) LoadSimVars() (state.SimVars, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sim.Clone(), nil
}

// SaveSimVars stores a copy of the external variables.
func (m *Memory) SaveSimVars(sim state.SimVars) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sim = sim.Clone()
	if m.sim == nil {
		m.sim = state.SimVars{}
	}
	return nil
}

// LoadFunctions returns a copy of the function table.
func (m *Memory) LoadFunctions() (state.Functions, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(state.Functions(nil), m.funcs...), nil
}

// SaveFunctions stores a copy of the function table.
func (m *Memory) SaveFunctions(funcs state.Functions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(state.Functions(nil), funcs...)
	return nil
}

// LoadHistory returns a copy of the result history.
func (m *Memory) LoadHistory() (state.History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(state.History, len(m.hist))
	for i, stack := range m.hist {
		out[i] = append([]float64(nil), stack...)
	}
	return out, nil
}

// SaveHistory stores the result history, trimmed to HistoryDepth.
func (m *Memory) SaveHistory(hist state.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(hist) > state.HistoryDepth {
		hist = hist[:state.HistoryDepth]
	}
	out := make(state.History, len(hist))
	for i, stack := range hist {
		out[i] = append([]float64(nil), stack...)
	}
	m.hist = out
	return nil
}

// Close is a no-op for memory store.
func (m *Memory) Close() error {
	return nil
}
