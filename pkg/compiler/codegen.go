package compiler

import (
	"fmt"
	"strings"
)

// CodeGen walks a resolved, allocated AST and emits NASM x86-64 assembly
// text, spec.md §4.6. It follows the teacher's stack-machine shape (RAX
// as the working value, an explicit push/pop evaluation stack for
// intermediates) but targets real x86-64 registers and the System V
// calling convention instead of the teacher's toy 16-bit ISA.
type CodeGen struct {
	st  *SymbolTables
	out strings.Builder

	nextLabel int // monotonic across the whole compilation, spec.md §4.6

	curLocalTable int    // local table of the procedure currently being generated
	curProcName   string
	boundsLabel   string // lazily created per-procedure shared bounds-check failure label
	boundsUsed    bool
}

func newCodeGen(st *SymbolTables) *CodeGen {
	return &CodeGen{st: st}
}

func (cg *CodeGen) newLabel() string {
	l := fmt.Sprintf(".L%d", cg.nextLabel)
	cg.nextLabel++
	return l
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, format+"\n", args...)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("; "+format, args...)
}

// boundsFailLabel returns this procedure's shared out-of-bounds label,
// creating it on first use (spec.md §4.6: "call exit_bounds or emit an
// inline compare-and-exit").
func (cg *CodeGen) boundsFailLabel() string {
	if cg.boundsLabel == "" {
		cg.boundsLabel = fmt.Sprintf(".Lbounds_fail_%s", cg.curProcName)
	}
	cg.boundsUsed = true
	return cg.boundsLabel
}

func regName64(r RegClass) string {
	switch r {
	case RegRDI:
		return "rdi"
	case RegRSI:
		return "rsi"
	case RegRDX:
		return "rdx"
	case RegRCX:
		return "rcx"
	case RegR8:
		return "r8"
	case RegR9:
		return "r9"
	default:
		panic((&InternalError{Msg: fmt.Sprintf("%s has no 64-bit register name", r)}).Error())
	}
}

// Generate produces the full NASM translation unit for prog, using the
// tables BuildSymbols/ResolveProgram/AllocateProgram already populated.
func Generate(prog *Program, st *SymbolTables) (string, error) {
	cg := newCodeGen(st)

	cg.line("extern printi, printc, readi, readc, exit, time_")
	cg.line("")
	for _, decl := range prog.Decls {
		if p, ok := decl.(*ProcDecl); ok {
			cg.line("global %s", p.Name)
		}
	}
	cg.line("")
	cg.line("section .text")

	for _, decl := range prog.Decls {
		if p, ok := decl.(*ProcDecl); ok {
			if err := cg.genProc(p); err != nil {
				return "", err
			}
		}
	}
	return cg.out.String(), nil
}

func (cg *CodeGen) genProc(decl *ProcDecl) error {
	procIdx, ok := cg.st.Global().Lookup(decl.Name)
	if !ok {
		return &InternalError{Msg: fmt.Sprintf("procedure %q missing from global table", decl.Name)}
	}
	proc := cg.st.Arena.Get(procIdx)

	cg.curLocalTable = proc.LocalTable
	cg.curProcName = decl.Name
	cg.boundsLabel = ""
	cg.boundsUsed = false

	cg.line("")
	cg.line("%s:", decl.Name)
	cg.line("    push rbp")
	cg.line("    mov rbp, rsp")
	if proc.FrameSize > 0 {
		cg.line("    sub rsp, %d", proc.FrameSize)
	}

	for _, p := range proc.Params {
		if p.Reg == RegStack {
			continue
		}
		cg.line("    mov [rbp%+d], %s", p.Offset, regName64(p.Reg))
	}

	for _, s := range decl.Body {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}

	cg.line("    mov rsp, rbp")
	cg.line("    pop rbp")
	cg.line("    ret")

	if cg.boundsUsed {
		cg.line("%s:", cg.boundsLabel)
		cg.comment("array index out of bounds")
		cg.line("    call exit")
	}
	return nil
}

//  Statements

func (cg *CodeGen) genStmt(s Stmt) error {
	switch st := s.(type) {
	case *StmtList:
		for _, inner := range st.Stmts {
			if err := cg.genStmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *AssignStmt:
		return cg.genAssign(st)
	case *IfStmt:
		return cg.genIf(st)
	case *WhileStmt:
		return cg.genWhile(st)
	case *CallStmt:
		return cg.genCall(st)
	default:
		return &InternalError{Msg: fmt.Sprintf("codegen: unexpected statement %T", s)}
	}
}

func (cg *CodeGen) genAssign(a *AssignStmt) error {
	cg.comment("%s", a)
	if err := cg.genExpr(a.Value); err != nil {
		return err
	}
	cg.line("    push rax")
	if err := cg.genAddress(a.LValue.V); err != nil {
		return err
	}
	cg.line("    pop rax")
	cg.line("    mov [rbx], rax")
	return nil
}

func (cg *CodeGen) genIf(s *IfStmt) error {
	falseLabel := cg.newLabel()
	if err := cg.genComparisonJumpIfFalse(s.Cond, falseLabel); err != nil {
		return err
	}
	if err := cg.genStmt(s.Then); err != nil {
		return err
	}
	if s.Else != nil {
		endLabel := cg.newLabel()
		cg.line("    jmp %s", endLabel)
		cg.line("%s:", falseLabel)
		if err := cg.genStmt(s.Else); err != nil {
			return err
		}
		cg.line("%s:", endLabel)
	} else {
		cg.line("%s:", falseLabel)
	}
	return nil
}

func (cg *CodeGen) genWhile(s *WhileStmt) error {
	topLabel := cg.newLabel()
	bottomLabel := cg.newLabel()
	cg.line("%s:", topLabel)
	if err := cg.genComparisonJumpIfFalse(s.Cond, bottomLabel); err != nil {
		return err
	}
	if err := cg.genStmt(s.Body); err != nil {
		return err
	}
	cg.line("    jmp %s", topLabel)
	cg.line("%s:", bottomLabel)
	return nil
}

// genComparisonJumpIfFalse evaluates both sides of c, then emits a jump
// to falseLabel using the condition inverted — the six comparison
// operators map to {je, jne, jl, jle, jg, jge}, inverted (spec.md §4.6).
func (cg *CodeGen) genComparisonJumpIfFalse(c *Comparison, falseLabel string) error {
	if err := cg.genExpr(c.LHS); err != nil {
		return err
	}
	cg.line("    push rax")
	if err := cg.genExpr(c.RHS); err != nil {
		return err
	}
	cg.line("    pop rcx") // rcx = LHS, rax = RHS
	cg.line("    cmp rcx, rax")
	switch c.Op {
	case CmpEq:
		cg.line("    jne %s", falseLabel)
	case CmpNe:
		cg.line("    je %s", falseLabel)
	case CmpLt:
		cg.line("    jge %s", falseLabel)
	case CmpLe:
		cg.line("    jg %s", falseLabel)
	case CmpGt:
		cg.line("    jle %s", falseLabel)
	case CmpGe:
		cg.line("    jl %s", falseLabel)
	default:
		return &InternalError{Msg: fmt.Sprintf("codegen: unknown comparison operator %s", c.Op)}
	}
	return nil
}

func (cg *CodeGen) genCall(c *CallStmt) error {
	calleeIdx, ok := cg.st.Lookup(cg.curLocalTable, c.Callee)
	if !ok {
		return &InternalError{Msg: fmt.Sprintf("codegen: undefined procedure %q", c.Callee)}
	}
	proc := cg.st.Arena.Get(calleeIdx)
	n := len(c.Args)
	regCount := min(n, len(argRegOrder))

	// Stack-passed arguments (7th onward) go straight into the
	// pre-allocated outgoing area at the frame's resting rsp.
	for i := n - 1; i >= regCount; i-- {
		if err := cg.genArgValue(proc.Params[i], c.Args[i]); err != nil {
			return err
		}
		cg.line("    mov [rsp+%d], rax", (i-regCount)*8)
	}

	// Register-passed arguments, evaluated in reverse declaration order
	// and pushed, then popped into their registers in forward order
	// (spec.md §4.6) — net stack effect is zero by the time of `call`.
	for i := regCount - 1; i >= 0; i-- {
		if err := cg.genArgValue(proc.Params[i], c.Args[i]); err != nil {
			return err
		}
		cg.line("    push rax")
	}
	for i := 0; i < regCount; i++ {
		cg.line("    pop %s", regName64(argRegOrder[i]))
	}

	cg.line("    call %s", c.Callee)
	return nil
}

// genArgValue leaves one call argument's value in RAX: the address of the
// variable when the parameter is ref or an array, otherwise its value.
func (cg *CodeGen) genArgValue(param ProcParam, arg CallArg) error {
	if param.IsRef {
		if arg.Var == nil {
			return &InternalError{Msg: "codegen: ref argument is not a variable"}
		}
		if err := cg.genAddress(arg.Var.V); err != nil {
			return err
		}
		cg.line("    mov rax, rbx")
		return nil
	}
	return cg.genExpr(arg.Expr)
}

//  Expressions

// genExpr evaluates e and leaves the result in RAX.
func (cg *CodeGen) genExpr(e Expr) error {
	switch ex := e.(type) {
	case *IntLit:
		cg.line("    mov rax, %d", ex.Value)
		return nil
	case *VarExpr:
		if err := cg.genAddress(ex.V); err != nil {
			return err
		}
		cg.line("    mov rax, [rbx]")
		return nil
	case *UnaryMinusExpr:
		if err := cg.genExpr(ex.Operand); err != nil {
			return err
		}
		cg.line("    neg rax")
		return nil
	case *BinExpr:
		return cg.genBinExpr(ex)
	default:
		return &InternalError{Msg: fmt.Sprintf("codegen: unexpected expression %T", e)}
	}
}

// genBinExpr evaluates lhs into RAX, pushes it, evaluates rhs into RAX,
// then pops LHS into RCX so RAX = RCX op RAX (spec.md §4.6). Division
// uses the cqo/idiv convention, which needs the dividend in RAX and the
// divisor elsewhere; an xchg swaps the two into place first.
func (cg *CodeGen) genBinExpr(b *BinExpr) error {
	if err := cg.genExpr(b.LHS); err != nil {
		return err
	}
	cg.line("    push rax")
	if err := cg.genExpr(b.RHS); err != nil {
		return err
	}
	cg.line("    pop rcx") // rcx = LHS, rax = RHS
	switch b.Op {
	case OpAdd:
		cg.line("    add rax, rcx")
	case OpSub:
		cg.line("    sub rcx, rax")
		cg.line("    mov rax, rcx")
	case OpMul:
		cg.line("    imul rax, rcx")
	case OpDiv:
		cg.line("    xchg rax, rcx")
		cg.line("    cqo")
		cg.line("    idiv rcx")
	default:
		return &InternalError{Msg: fmt.Sprintf("codegen: unknown arithmetic operator %s", b.Op)}
	}
	return nil
}

//  Addressing

// genAddress computes the address of v and leaves it in RBX.
func (cg *CodeGen) genAddress(v Var) error {
	switch nv := v.(type) {
	case *NamedVar:
		idx, ok := cg.st.Lookup(cg.curLocalTable, nv.Name)
		if !ok {
			return &InternalError{Msg: fmt.Sprintf("codegen: undefined variable %q", nv.Name)}
		}
		sym := cg.st.Arena.Get(idx)
		if sym.IsRef {
			cg.line("    mov rbx, [rbp%+d]", sym.Offset)
		} else {
			cg.line("    lea rbx, [rbp%+d]", sym.Offset)
		}
		return nil
	case *IndexedVar:
		return cg.genIndexedAddress(nv)
	default:
		return &InternalError{Msg: fmt.Sprintf("codegen: unexpected var %T", v)}
	}
}

func (cg *CodeGen) genIndexedAddress(nv *IndexedVar) error {
	count, elemSize, err := cg.arrayShape(nv.Base)
	if err != nil {
		return err
	}
	if err := cg.genAddress(nv.Base); err != nil {
		return err
	}
	cg.line("    push rbx")
	if err := cg.genExpr(nv.Index); err != nil {
		return err
	}
	cg.line("    cmp rax, %d", count)
	cg.line("    jae %s", cg.boundsFailLabel())
	cg.line("    mov rcx, %d", elemSize)
	cg.line("    imul rax, rcx")
	cg.line("    pop rbx")
	cg.line("    add rbx, rax")
	return nil
}

// varType mirrors the resolver's Var-typing rules, recomputed here since
// only Expr nodes (not Var nodes) carry a type-slot.
func (cg *CodeGen) varType(v Var) (SymbolIndex, error) {
	switch nv := v.(type) {
	case *NamedVar:
		idx, ok := cg.st.Lookup(cg.curLocalTable, nv.Name)
		if !ok {
			return 0, &InternalError{Msg: fmt.Sprintf("codegen: undefined variable %q", nv.Name)}
		}
		return cg.st.Arena.Get(idx).VarType, nil
	case *IndexedVar:
		baseType, err := cg.varType(nv.Base)
		if err != nil {
			return 0, err
		}
		resolved := cg.st.Arena.Resolve(baseType)
		sym := cg.st.Arena.Get(resolved)
		if sym.Kind != SymArrayType {
			return 0, &InternalError{Msg: "codegen: indexed value is not an array"}
		}
		return sym.ElemType, nil
	default:
		return 0, &InternalError{Msg: fmt.Sprintf("codegen: unexpected var %T", v)}
	}
}

func (cg *CodeGen) arrayShape(base Var) (count, elemSize int64, err error) {
	baseType, err := cg.varType(base)
	if err != nil {
		return 0, 0, err
	}
	resolved := cg.st.Arena.Resolve(baseType)
	sym := cg.st.Arena.Get(resolved)
	if sym.Kind != SymArrayType {
		return 0, 0, &InternalError{Msg: "codegen: indexed value is not an array"}
	}
	return sym.Count, sizeOf(cg.st.Arena, sym.ElemType), nil
}
