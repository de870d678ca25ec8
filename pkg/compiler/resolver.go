package compiler

import "fmt"

// This file implements the semantic analyzer / type resolver, spec.md
// §4.4: a second pass over the AST, driven by the tables BuildSymbols
// produced, that fills every expression node's type-slot and rejects
// anything the grammar alone could not rule out (undefined names, type
// mismatches, arity mismatches, non-l-value ref arguments, array
// assignment).

// Resolver carries the two-level tables and tracks which procedure's
// local table is currently in scope; localTable is 0 (the global table)
// only transiently, between procedures.
type Resolver struct {
	st         *SymbolTables
	localTable int
}

// ResolveProgram type-checks every procedure body in prog against st,
// the tables BuildSymbols returned for the same Program.
func ResolveProgram(prog *Program, st *SymbolTables) error {
	r := &Resolver{st: st}
	for _, decl := range prog.Decls {
		proc, ok := decl.(*ProcDecl)
		if !ok {
			continue // TypeDecls carry no executable code to resolve
		}
		procIdx, ok := st.Global().Lookup(proc.Name)
		if !ok {
			return &InternalError{Msg: fmt.Sprintf("procedure %q missing from global table", proc.Name)}
		}
		r.localTable = st.Arena.Get(procIdx).LocalTable
		for _, s := range proc.Body {
			if err := r.resolveStmt(s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) isInt(idx SymbolIndex) bool {
	return r.st.Arena.Resolve(idx) == IntType
}

func (r *Resolver) resolveStmt(s Stmt) error {
	switch st := s.(type) {
	case *StmtList:
		for _, inner := range st.Stmts {
			if err := r.resolveStmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *AssignStmt:
		return r.resolveAssign(st)
	case *IfStmt:
		if err := r.resolveComparison(st.Cond); err != nil {
			return err
		}
		if err := r.resolveStmt(st.Then); err != nil {
			return err
		}
		if st.Else != nil {
			return r.resolveStmt(st.Else)
		}
		return nil
	case *WhileStmt:
		if err := r.resolveComparison(st.Cond); err != nil {
			return err
		}
		return r.resolveStmt(st.Body)
	case *CallStmt:
		return r.resolveCall(st)
	default:
		return &InternalError{Msg: fmt.Sprintf("unexpected statement %T", s)}
	}
}

func (r *Resolver) resolveAssign(a *AssignStmt) error {
	if err := r.resolveExpr(a.LValue); err != nil {
		return err
	}
	if err := r.resolveExpr(a.Value); err != nil {
		return err
	}
	lvalType := a.LValue.Type()
	if !r.isInt(lvalType) {
		return &SemanticError{Line: a.Line, Msg: "assignment target must be of type int; arrays cannot be assigned"}
	}
	if !r.st.Arena.SameType(lvalType, a.Value.Type()) {
		return &SemanticError{Line: a.Line, Msg: fmt.Sprintf("type mismatch in assignment: lvalue is #%d, value is #%d", r.st.Arena.Resolve(lvalType), r.st.Arena.Resolve(a.Value.Type()))}
	}
	return nil
}

func (r *Resolver) resolveComparison(c *Comparison) error {
	if err := r.resolveExpr(c.LHS); err != nil {
		return err
	}
	if err := r.resolveExpr(c.RHS); err != nil {
		return err
	}
	if !r.isInt(c.LHS.Type()) || !r.isInt(c.RHS.Type()) {
		return &SemanticError{Line: c.Line, Msg: "comparison operands must be of type int"}
	}
	return nil
}

func (r *Resolver) resolveCall(c *CallStmt) error {
	calleeIdx, ok := r.st.Lookup(r.localTable, c.Callee)
	if !ok {
		return &SemanticError{Line: c.Line, Msg: fmt.Sprintf("undefined procedure %q", c.Callee)}
	}
	proc := r.st.Arena.Get(calleeIdx)
	if proc.Kind != SymProcedure {
		return &SemanticError{Line: c.Line, Msg: fmt.Sprintf("%q is not a procedure", c.Callee)}
	}
	if len(c.Args) != len(proc.Params) {
		return &SemanticError{Line: c.Line, Msg: fmt.Sprintf("%q expects %d argument(s), got %d", c.Callee, len(proc.Params), len(c.Args))}
	}
	for i, arg := range c.Args {
		if err := r.resolveExpr(arg.Expr); err != nil {
			return err
		}
		param := proc.Params[i]
		if param.IsRef && arg.Var == nil {
			return &SemanticError{Line: c.Line, Msg: fmt.Sprintf("argument %d to %q must be a variable (parameter is ref or array)", i+1, c.Callee)}
		}
		if !r.st.Arena.SameType(arg.Expr.Type(), param.Type) {
			return &SemanticError{Line: c.Line, Msg: fmt.Sprintf("argument %d to %q: type mismatch, expected #%d got #%d", i+1, c.Callee, r.st.Arena.Resolve(param.Type), r.st.Arena.Resolve(arg.Expr.Type()))}
		}
	}
	return nil
}

func (r *Resolver) resolveExpr(e Expr) error {
	switch ex := e.(type) {
	case *IntLit:
		ex.SetType(IntType)
		return nil
	case *VarExpr:
		typ, err := r.resolveVar(ex.V)
		if err != nil {
			return err
		}
		ex.SetType(typ)
		return nil
	case *UnaryMinusExpr:
		if err := r.resolveExpr(ex.Operand); err != nil {
			return err
		}
		if !r.isInt(ex.Operand.Type()) {
			return &SemanticError{Line: ex.Line, Msg: "unary minus operand must be of type int"}
		}
		ex.SetType(IntType)
		return nil
	case *BinExpr:
		if err := r.resolveExpr(ex.LHS); err != nil {
			return err
		}
		if err := r.resolveExpr(ex.RHS); err != nil {
			return err
		}
		if !r.isInt(ex.LHS.Type()) || !r.isInt(ex.RHS.Type()) {
			return &SemanticError{Line: ex.Line, Msg: fmt.Sprintf("operands of %q must be of type int", ex.Op)}
		}
		ex.SetType(IntType)
		return nil
	default:
		return &InternalError{Msg: fmt.Sprintf("unexpected expression %T", e)}
	}
}

// resolveVar resolves a Var to its (possibly aliased) type, without
// forcing Resolve — callers compare through Arena.SameType, which chases
// the chain itself, so the type-slot keeps the alias index.
func (r *Resolver) resolveVar(v Var) (SymbolIndex, error) {
	switch nv := v.(type) {
	case *NamedVar:
		idx, ok := r.st.Lookup(r.localTable, nv.Name)
		if !ok {
			return 0, &SemanticError{Line: nv.Line, Msg: fmt.Sprintf("undefined name %q", nv.Name)}
		}
		sym := r.st.Arena.Get(idx)
		if sym.Kind != SymVariable {
			return 0, &SemanticError{Line: nv.Line, Msg: fmt.Sprintf("%q is not a variable", nv.Name)}
		}
		return sym.VarType, nil
	case *IndexedVar:
		baseType, err := r.resolveVar(nv.Base)
		if err != nil {
			return 0, err
		}
		resolvedBase := r.st.Arena.Resolve(baseType)
		baseSym := r.st.Arena.Get(resolvedBase)
		if baseSym.Kind != SymArrayType {
			return 0, &SemanticError{Line: nv.Line, Msg: "indexed value is not an array"}
		}
		if err := r.resolveExpr(nv.Index); err != nil {
			return 0, err
		}
		if !r.isInt(nv.Index.Type()) {
			return 0, &SemanticError{Line: nv.Line, Msg: "array index must be of type int"}
		}
		return baseSym.ElemType, nil
	default:
		return 0, &InternalError{Msg: fmt.Sprintf("unexpected var %T", v)}
	}
}
