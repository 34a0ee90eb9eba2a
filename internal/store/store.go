// Package store persists calculator state between runs.
package store

import "nickandperla.net/rpn/internal/state"

// Store loads and saves the four persisted pieces of calculator
// state: the register bank, external variables, the function table
// and the result history. Load methods return zero values for state
// that has never been saved; the file-backed store also treats
// unreadable or mangled files as absent.
type Store interface {
	LoadRegisters() (state.Registers, error)
	SaveRegisters(state.Registers) error

	LoadSimVars() (state.SimVars, error)
	SaveSimVars(state.SimVars) error

	LoadFunctions() (state.Functions, error)
	SaveFunctions(state.Functions) error

	LoadHistory() (state.History, error)
	SaveHistory(state.History) error

	// Close releases resources.
	Close() error
}
