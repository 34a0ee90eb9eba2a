package eval

import "errors"

// Evaluation failures wrap one of these sentinels, so callers can
// classify with errors.Is regardless of the added context.
var (
	ErrStackUnderflow  = errors.New("stack underflow")
	ErrRegisterIndex   = errors.New("register index out of range")
	ErrMissingHistory  = errors.New("missing history slot")
	ErrUnmatchedBlock  = errors.New("unmatched conditional block")
	ErrUnknownToken    = errors.New("unknown token")
	ErrFunctionArity   = errors.New("function arity mismatch")
	ErrMalformedNumber = errors.New("malformed numeric literal")
	ErrDepthExceeded   = errors.New("call depth exceeded")
)
