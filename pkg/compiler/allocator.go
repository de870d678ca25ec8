package compiler

import "fmt"

// This file implements the stack-frame allocator, spec.md §4.5: for each
// user procedure, it assigns every local variable and parameter a home
// offset from RBP, sizes the outgoing-argument area from the procedure's
// own call sites, and rounds the total frame size up to keep RSP 16-byte
// aligned at every call boundary.

const wordSize int64 = 8

func align16(n int64) int64 { return (n + 15) &^ 15 }
func align8(n int64) int64  { return (n + 7) &^ 7 }

// sizeOf returns the byte size of the type named by idx after alias
// resolution: 8 for int, count*sizeOf(elem) for an array (spec.md §4.5
// "Arrays occupy ceil(size/8)*8 bytes" describes the allocation unit, not
// the raw size used to compute it).
func sizeOf(arena *Arena, idx SymbolIndex) int64 {
	idx = arena.Resolve(idx)
	sym := arena.Get(idx)
	if sym.Kind == SymArrayType {
		return sym.Count * sizeOf(arena, sym.ElemType)
	}
	return wordSize
}

// AllocateProgram runs the allocator over every user procedure in prog,
// writing each one's local-area, register-spill-area, outgoing-area, and
// final frame size back into its Procedure symbol entry.
func AllocateProgram(prog *Program, st *SymbolTables) error {
	for _, decl := range prog.Decls {
		proc, ok := decl.(*ProcDecl)
		if !ok {
			continue
		}
		if err := allocateProc(proc, st); err != nil {
			return err
		}
	}
	return nil
}

func allocateProc(procDecl *ProcDecl, st *SymbolTables) error {
	procIdx, ok := st.Global().Lookup(procDecl.Name)
	if !ok {
		return &InternalError{Msg: fmt.Sprintf("procedure %q missing from global table", procDecl.Name)}
	}
	proc := st.Arena.Get(procIdx)
	tbl := st.Local(proc.LocalTable)

	// 1. Locals, declaration order, negative offsets growing downward.
	var offset int64
	for _, v := range procDecl.Locals {
		idx, ok := tbl.Lookup(v.Name)
		if !ok {
			return &InternalError{Msg: fmt.Sprintf("local %q missing from local table of %q", v.Name, procDecl.Name)}
		}
		sym := st.Arena.Get(idx)
		offset -= align8(sizeOf(st.Arena, sym.VarType))
		sym.Offset = offset
	}
	proc.LocalAreaSize = -offset

	// 2. Parameters. The first six get spill slots immediately below the
	// locals; the seventh onward get positive offsets starting at +16
	// (past the saved RBP at +0 and the return address at +8), growing
	// upward in declaration order.
	spillBase := offset
	stackOffset := int64(16)
	for i, p := range procDecl.Params {
		idx, ok := tbl.Lookup(p.Name)
		if !ok {
			return &InternalError{Msg: fmt.Sprintf("parameter %q missing from local table of %q", p.Name, procDecl.Name)}
		}
		sym := st.Arena.Get(idx)
		if i < len(argRegOrder) {
			offset -= wordSize
			sym.Offset = offset
		} else {
			sym.Offset = stackOffset
			stackOffset += wordSize
		}
	}
	proc.RegSpillArea = spillBase - offset

	for i := range proc.Params {
		idx, ok := tbl.Lookup(proc.Params[i].Name)
		if !ok {
			return &InternalError{Msg: fmt.Sprintf("parameter %q missing from local table of %q", proc.Params[i].Name, procDecl.Name)}
		}
		proc.Params[i].Offset = st.Arena.Get(idx).Offset
	}

	// 3. Outgoing area: 8 bytes per stack-passed argument at the busiest
	// call site anywhere in the body, zero if no call exceeds six args.
	var maxStackArgs int64
	walkCalls(procDecl.Body, func(c *CallStmt) {
		stackArgs := int64(len(c.Args)) - int64(len(argRegOrder))
		if stackArgs > maxStackArgs {
			maxStackArgs = stackArgs
		}
	})
	proc.OutgoingArea = wordSize * maxStackArgs

	// 4. Final frame size, 16-byte aligned.
	proc.FrameSize = align16(proc.LocalAreaSize + proc.RegSpillArea + proc.OutgoingArea)
	return nil
}

// walkCalls visits every CallStmt reachable from stmts, including those
// nested inside if/while bodies and blocks.
func walkCalls(stmts []Stmt, visit func(*CallStmt)) {
	for _, s := range stmts {
		walkCallsStmt(s, visit)
	}
}

func walkCallsStmt(s Stmt, visit func(*CallStmt)) {
	switch st := s.(type) {
	case *CallStmt:
		visit(st)
	case *StmtList:
		walkCalls(st.Stmts, visit)
	case *IfStmt:
		walkCallsStmt(st.Then, visit)
		if st.Else != nil {
			walkCallsStmt(st.Else, visit)
		}
	case *WhileStmt:
		walkCallsStmt(st.Body, visit)
	}
}
