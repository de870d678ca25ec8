package compiler

import "fmt"

// The compiler's error taxonomy (spec.md §7): lexical, syntactic, and
// semantic errors are all user-facing ("Error: ..."); a failure that can
// only be caused by a bug in an earlier phase is reported as an internal
// error ("Internal: ..."). All four are fatal — the first one returned
// by any phase aborts the pipeline (see Compile in compile.go).

// LexError reports an unrecognized byte, a bad escape sequence, an
// unterminated character literal, or integer-literal overflow.
type LexError struct {
	Line int
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("Error: line %d: %s", e.Line, e.Msg)
}

// ParseError reports a token mismatch against the grammar in spec.md §4.2.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error: line %d: %s", e.Line, e.Msg)
}

// SemanticError reports an undefined name, a type mismatch, an arity
// mismatch, a non-integer array index, or an array used where the grammar
// requires a by-value parameter (spec.md §4.4, §7).
type SemanticError struct {
	Line int
	Msg  string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("Error: line %d: %s", e.Line, e.Msg)
}

// InternalError reports an invariant violation surfacing in the allocator
// or code generator after every earlier phase reported success — by
// spec.md §4.6 this can only mean a compiler bug.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("Internal: %s", e.Msg)
}
