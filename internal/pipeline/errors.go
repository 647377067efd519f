package pipeline

import (
	stderrors "errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitepipe/internal/document"
	"git.home.luguber.info/inful/sitepipe/internal/foundation/normalization"
)

// ModuleExecutionError reports a failure while a module processed one
// document. Modules usually fill only Source and Err; the engine adds the
// pipeline and module names before reporting.
type ModuleExecutionError struct {
	Pipeline string
	Module   string
	Source   string
	Err      error
}

func (e *ModuleExecutionError) Error() string {
	var loc []string
	if e.Pipeline != "" {
		loc = append(loc, "pipeline "+e.Pipeline)
	}
	if e.Module != "" {
		loc = append(loc, "module "+e.Module)
	}
	if e.Source != "" {
		loc = append(loc, "source "+e.Source)
	}
	if len(loc) == 0 {
		return fmt.Sprintf("module execution failed: %v", e.Err)
	}
	return fmt.Sprintf("%s: %v", strings.Join(loc, ", "), e.Err)
}

func (e *ModuleExecutionError) Unwrap() error { return e.Err }

// DocumentError wraps err as a failure for doc. An error that already is a
// ModuleExecutionError is returned unchanged.
func DocumentError(doc *document.Document, err error) error {
	if err == nil {
		return nil
	}
	var me *ModuleExecutionError
	if stderrors.As(err, &me) {
		return err
	}
	source := ""
	if doc != nil {
		source = doc.Source()
	}
	return &ModuleExecutionError{Source: source, Err: err}
}

// JoinErrors joins errs, returning nil for an empty list and the error itself
// for a single entry.
func JoinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return stderrors.Join(errs...)
	}
}

// ModuleErrors flattens err, including errors.Join trees, into its
// per-document failures.
func ModuleErrors(err error) []*ModuleExecutionError {
	var out []*ModuleExecutionError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if me, ok := e.(*ModuleExecutionError); ok {
			out = append(out, me)
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		if me := (*ModuleExecutionError)(nil); stderrors.As(e, &me) {
			out = append(out, me)
		}
	}
	walk(err)
	return out
}

// Recoverable reports whether every failure carried by err is a per-document
// ModuleExecutionError. Only recoverable errors are subject to PolicyContinue.
func Recoverable(err error) bool {
	if err == nil {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, inner := range joined.Unwrap() {
			if !Recoverable(inner) {
				return false
			}
		}
		return true
	}
	var me *ModuleExecutionError
	return stderrors.As(err, &me)
}

// ErrorPolicy decides how a pipeline reacts to recoverable module errors.
type ErrorPolicy int

const (
	// PolicyAbort turns any module error into a fatal engine error.
	PolicyAbort ErrorPolicy = iota
	// PolicyContinue logs per-document failures and keeps the outputs the
	// module returned.
	PolicyContinue
)

func (p ErrorPolicy) String() string {
	switch p {
	case PolicyContinue:
		return "continue"
	default:
		return "abort"
	}
}

var policyNormalizer = normalization.New("error policy", map[string]ErrorPolicy{
	"abort":    PolicyAbort,
	"fail":     PolicyAbort,
	"continue": PolicyContinue,
	"warn":     PolicyContinue,
}, PolicyAbort)

// ParseErrorPolicy parses a configured policy name. The empty string selects
// PolicyAbort.
func ParseErrorPolicy(raw string) (ErrorPolicy, error) {
	return policyNormalizer.Parse(raw)
}
