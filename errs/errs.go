// Package errs defines the error taxonomy shared by the pipeline components.
//
// Every public operation in arxiv, summarizer and formatter either returns its
// declared result or an *Error carrying one of the four kinds below. The
// orchestrator relabels anything else as KindPipeline so callers always
// observe a known kind.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the component it originated in.
type Kind int

const (
	// KindPipeline is the catch-all for unanticipated failures.
	KindPipeline Kind = iota

	// KindFetch covers paper search and download failures.
	KindFetch

	// KindGeneration covers language-model call failures or empty results.
	KindGeneration

	// KindFormat covers template rendering and filesystem write failures.
	KindFormat
)

func (k Kind) String() string {
	switch k {
	case KindFetch:
		return "fetch"
	case KindGeneration:
		return "generation"
	case KindFormat:
		return "format"
	default:
		return "pipeline"
	}
}

// Error is a kind-tagged error. Op names the failing operation
// (e.g. "arxiv.search") for log context.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and operation name. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf is E over a formatted message.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of the outermost *Error in err's chain,
// or KindPipeline if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPipeline
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
