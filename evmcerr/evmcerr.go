// Package evmcerr defines the typed error kinds shared across the
// compile/load/dispatch/simulate/analyze pipeline.
package evmcerr

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Kind classifies where in the pipeline an error originated.
type Kind int

const (
	KindConfig Kind = iota
	KindCompile
	KindLoad
	KindStateRead
	KindExecution
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindCompile:
		return "compile"
	case KindLoad:
		return "load"
	case KindStateRead:
		return "state-read"
	case KindExecution:
		return "execution"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with pipeline-phase context: which kind of
// failure it was, which bytecode hash (if any) it concerns, and which named
// phase of the operation was in flight when it happened.
type Error struct {
	Kind  Kind
	Phase string
	Hash  common.Hash
	Input string
	cause error
}

func (e *Error) Error() string {
	if (e.Hash != common.Hash{}) {
		return fmt.Sprintf("%s[%s]: hash=%s: %v", e.Kind, e.Phase, e.Hash.Hex(), e.cause)
	}
	if e.Input != "" {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Phase, e.Input, e.cause)
	}
	return fmt.Sprintf("%s[%s]: %v", e.Kind, e.Phase, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Wrap builds a phase-tagged Error around cause. A nil cause returns nil, so
// call sites can write `return evmcerr.Wrap(...)` unconditionally after an
// `if err != nil` guard has already fired.
func Wrap(kind Kind, phase string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Phase: phase, cause: errors.WithStack(cause)}
}

// WithHash attaches a bytecode hash to an error built via Wrap.
func WithHash(err error, hash common.Hash) error {
	if e, ok := err.(*Error); ok {
		e.Hash = hash
	}
	return err
}

// WithInput attaches a free-form input descriptor to an error built via Wrap.
func WithInput(err error, input string) error {
	if e, ok := err.(*Error); ok {
		e.Input = input
	}
	return err
}

// Result is a per-input value-or-error pair, used by batch operations that
// must report one outcome per input rather than fail the whole batch.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

func Failed[T any](err error) Result[T] {
	var zero T
	return Result[T]{Value: zero, Err: err}
}
