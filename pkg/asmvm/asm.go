// Package asmvm is the execution oracle for splc's generated code: a
// two-pass assembler for the small NASM subset pkg/compiler emits, plus
// a VM that simulates it well enough to run a compiled SPL procedure
// and inspect the result. It exists so the compiler's test suite can
// check generated assembly actually does what spec.md says, the way
// the teacher's pkg/asm+pkg/cpu pair let its compiler's tests assemble
// a program and step a CPU over it.
//
// It is not a general x86-64 emulator. It understands exactly the
// instruction shapes CodeGen produces (see pkg/compiler/codegen.go) —
// register-to-register and register-to-memory moves through [rbp+N],
// [rbx], and [rsp+N] operands, the arithmetic/compare/jump/call
// vocabulary used there, and nothing else.
package asmvm

import (
	"fmt"
	"strconv"
	"strings"
)

// Instruction is one decoded line of assembly: a mnemonic plus its
// comma-separated operands, already stripped of comments and labels.
type Instruction struct {
	Op   string
	Args []string
	Line int
}

// Program is an assembled translation unit: a flat instruction stream
// plus the label table resolved against it. Labels name either a
// procedure entry point (e.g. "main") or a jump target within one
// (e.g. ".L3", ".Lbounds_fail_main").
type Program struct {
	Instructions []Instruction
	Labels       map[string]int
	Externs      map[string]bool
}

// Assemble runs both passes over NASM text shaped like CodeGen's output
// and returns the resulting Program.
func Assemble(src string) (*Program, error) {
	p := &Program{Labels: make(map[string]int), Externs: make(map[string]bool)}
	lines := strings.Split(src, "\n")

	for i, raw := range lines {
		lineNo := i + 1
		text := strings.TrimSpace(stripComment(raw))
		if text == "" {
			continue
		}

		if label, ok := asLabel(text); ok {
			if _, dup := p.Labels[label]; dup {
				return nil, fmt.Errorf("asmvm: duplicate label %q on line %d", label, lineNo)
			}
			p.Labels[label] = len(p.Instructions)
			continue
		}

		fields := strings.Fields(text)
		switch strings.ToLower(fields[0]) {
		case "extern":
			for _, name := range strings.Split(strings.Join(fields[1:], ""), ",") {
				if name != "" {
					p.Externs[name] = true
				}
			}
			continue
		case "global", "section":
			continue
		}

		instr, err := parseInstruction(text, lineNo)
		if err != nil {
			return nil, err
		}
		p.Instructions = append(p.Instructions, instr)
	}

	for _, instr := range p.Instructions {
		if target, ok := jumpTarget(instr); ok {
			if _, known := p.Labels[target]; !known && !p.Externs[target] {
				return nil, fmt.Errorf("asmvm: undefined label %q on line %d", target, instr.Line)
			}
		}
	}

	return p, nil
}

var jumpOps = map[string]bool{
	"jmp": true, "je": true, "jne": true, "jl": true, "jle": true,
	"jg": true, "jge": true, "jae": true, "call": true,
}

func jumpTarget(instr Instruction) (string, bool) {
	if !jumpOps[instr.Op] || len(instr.Args) != 1 {
		return "", false
	}
	return instr.Args[0], true
}

// asLabel reports whether text is a bare "name:" line, the only shape
// CodeGen ever emits a label in (see codegen.go's cg.line("%s:", ...)).
func asLabel(text string) (string, bool) {
	if !strings.HasSuffix(text, ":") {
		return "", false
	}
	name := text[:len(text)-1]
	if name == "" || strings.ContainsAny(name, " \t,[]") {
		return "", false
	}
	return name, true
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

func parseInstruction(text string, lineNo int) (Instruction, error) {
	fields := strings.SplitN(text, " ", 2)
	instr := Instruction{Op: strings.ToLower(strings.TrimSpace(fields[0])), Line: lineNo}
	if len(fields) == 1 {
		return instr, nil
	}

	rest := strings.TrimSpace(fields[1])
	var args []string
	depth := 0
	start := 0
	for i, r := range rest {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(rest[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(rest[start:]))
	instr.Args = args
	return instr, nil
}

// parseImmediate parses a plain base-10 (or 0x-prefixed) integer
// operand, the only immediate shape CodeGen emits.
func parseImmediate(tok string) (int64, error) {
	v, err := strconv.ParseInt(tok, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("asmvm: invalid immediate %q: %w", tok, err)
	}
	return v, nil
}
