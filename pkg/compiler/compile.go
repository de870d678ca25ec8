package compiler

// Compile runs the full pipeline spec.md §2 lays out — lex, parse, build
// symbols, resolve types, allocate frames, generate code — and returns
// the NASM assembly text for src. Assembling, linking, and running the
// runtime built-ins are the driver's concern, not this package's
// (spec.md §1 "Out of scope").
//
// The returned error is always one of *LexError, *ParseError,
// *SemanticError, or *InternalError (errors.go); the driver is
// responsible for turning it into the diagnostic and exit code spec.md
// §7 specifies.
func Compile(src string) (string, error) {
	tokens, err := Lex(src)
	if err != nil {
		return "", err
	}

	prog, err := Parse(tokens)
	if err != nil {
		return "", err
	}

	st, err := BuildSymbols(prog)
	if err != nil {
		return "", err
	}

	if err := ResolveProgram(prog, st); err != nil {
		return "", err
	}

	if err := AllocateProgram(prog, st); err != nil {
		return "", err
	}

	return Generate(prog, st)
}
