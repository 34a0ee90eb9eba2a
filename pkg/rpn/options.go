// Package rpn provides the public API for the rpn calculator.
package rpn

import (
	"nickandperla.net/rpn/internal/eval"
	"nickandperla.net/rpn/internal/state"
	"nickandperla.net/rpn/internal/store"
	"nickandperla.net/rpn/internal/token"
)

// Option configures a Runtime.
type Option func(*Runtime)

// WithJSONStore configures persistence to the JSON dotfiles, with
// paths resolved from the environment. This is the default.
func WithJSONStore() Option {
	return func(r *Runtime) {
		r.store = store.NewFiles()
	}
}

// WithSQLiteStore configures SQLite persistence at the given path.
// The database opens when New runs.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) {
		r.newStore = func() (store.Store, error) {
			return store.NewSQLite(path)
		}
	}
}

// WithMemoryStore configures an in-memory store (for testing).
func WithMemoryStore() Option {
	return func(r *Runtime) {
		r.store = store.NewMemory()
	}
}

// WithStore sets a custom store.
func WithStore(s store.Store) Option {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithParams binds parameter ordinals up front; bound ordinals are
// never prompted for.
func WithParams(p state.Params) Option {
	return func(r *Runtime) {
		r.ctxParams = p.Clone()
	}
}

// WithSimVars overlays external variables onto the stored set for
// every evaluation. The overlay is persisted along with any writes.
func WithSimVars(sim state.SimVars) Option {
	return func(r *Runtime) {
		r.ctxSim = sim.Clone()
	}
}

// WithInputReader sets the reader used to prompt for parameters.
func WithInputReader(reader func(prompt string) (string, error)) Option {
	return func(r *Runtime) {
		r.inputReader = reader
	}
}

// WithPrecompile toggles static function expansion before evaluation.
func WithPrecompile(on bool) Option {
	return func(r *Runtime) {
		r.precompile = on
	}
}

// WithStepMode toggles the step-by-step reduction replay.
func WithStepMode(on bool) Option {
	return func(r *Runtime) {
		r.stepMode = on
	}
}

// WithNoPrompt suppresses parameter prompt labels; input is still
// read.
func WithNoPrompt(on bool) Option {
	return func(r *Runtime) {
		r.noPrompt = on
	}
}

// Store interface for custom stores.
type Store = store.Store

// FileStore is the JSON dotfile store; its fields expose the resolved
// paths.
type FileStore = store.Files

// NewFileStore resolves the JSON dotfile store from the environment.
func NewFileStore() *FileStore {
	return store.NewFiles()
}

// Registers is the persistent register bank.
type Registers = state.Registers

// SimVars holds external variables grouped by prefix.
type SimVars = state.SimVars

// Function is one stored function definition.
type Function = state.Function

// Functions is the stored function table.
type Functions = state.Functions

// History holds prior result stacks, most recent first.
type History = state.History

// Params binds parameter ordinals to values.
type Params = state.Params

// Token is one scanned token.
type Token = token.Token

// Step is one reduction in a step-mode replay.
type Step = eval.Step

// StepKind classifies a reduction step.
type StepKind = eval.StepKind

// Step kind constants.
const (
	StepOperator    = eval.StepOperator
	StepFunction    = eval.StepFunction
	StepConditional = eval.StepConditional
	StepStore       = eval.StepStore
	StepRecall      = eval.StepRecall
	StepBlock       = eval.StepBlock
)
