package compiler

import "fmt"

// This file implements the symbol builder, spec.md §4.3: a single pass
// over the Program's top-level declarations that populates the global
// table, then a fresh local table per ProcDecl for its params and locals.
// It does not walk statement or expression bodies — resolving names used
// inside a procedure body is the resolver's job (resolver.go, spec.md
// §4.4), run as a second pass over the tables this file produces.

// installBuiltins installs the six built-in procedures spec.md §4.3
// requires, before any user declaration so user code may call them.
func installBuiltins(st *SymbolTables) {
	specs := []struct {
		name  string
		args  []string
		refs  []bool
	}{
		{"printi", []string{"i"}, []bool{false}},
		{"printc", []string{"c"}, []bool{false}},
		{"readi", []string{"i"}, []bool{true}},
		{"readc", []string{"c"}, []bool{true}},
		{"exit", nil, nil},
		{"time_", []string{"t"}, []bool{true}},
	}
	for _, spec := range specs {
		params := make([]ProcParam, len(spec.args))
		for i, name := range spec.args {
			params[i] = ProcParam{Name: name, IsRef: spec.refs[i], Type: IntType, Reg: regClassForParamIndex(i)}
		}
		idx := st.Arena.New(Symbol{Kind: SymProcedure, Name: spec.name, IsBuiltin: true, Params: params})
		st.Global().Insert(spec.name, idx)
	}
}

// BuildSymbols walks prog's top-level declarations and returns the
// populated two-level symbol tables, or the first SemanticError hit (an
// unknown type name or a redeclaration). An array parameter declared
// without `ref` is not an error: it is passed by reference regardless.
func BuildSymbols(prog *Program) (*SymbolTables, error) {
	st := NewSymbolTables()
	installBuiltins(st)

	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *TypeDecl:
			if err := buildTypeDecl(st, d); err != nil {
				return nil, err
			}
		case *ProcDecl:
			if err := buildProcDecl(st, d); err != nil {
				return nil, err
			}
		default:
			return nil, &InternalError{Msg: fmt.Sprintf("unexpected top-level declaration %T", d)}
		}
	}
	return st, nil
}

func buildTypeDecl(st *SymbolTables, d *TypeDecl) error {
	target, err := resolveTypeExpr(st, d.Type)
	if err != nil {
		return err
	}
	ref := st.Arena.New(Symbol{Kind: SymTypeRef, Name: d.Name, Target: target})
	if _, existed := st.Global().Insert(d.Name, ref); existed {
		return &SemanticError{Line: d.Line, Msg: fmt.Sprintf("redeclaration of type %q", d.Name)}
	}
	return nil
}

// resolveTypeExpr turns a parsed TypeExpr into an arena SymbolIndex: a
// TypeNameRef resolves by lookup in the global table; an ArrayType creates
// a fresh ArrayType entry whose ElemType is itself resolved recursively
// (spec.md §4.3 "Array type expressions create fresh ArrayType entries;
// named type uses resolve by lookup in the global table").
func resolveTypeExpr(st *SymbolTables, te TypeExpr) (SymbolIndex, error) {
	switch t := te.(type) {
	case *TypeNameRef:
		idx, ok := st.Global().Lookup(t.Name)
		if !ok {
			return 0, &SemanticError{Line: t.Line, Msg: fmt.Sprintf("unknown type %q", t.Name)}
		}
		sym := st.Arena.Get(idx)
		if sym.Kind != SymPrimitiveInt && sym.Kind != SymTypeRef && sym.Kind != SymArrayType {
			return 0, &SemanticError{Line: t.Line, Msg: fmt.Sprintf("%q does not name a type", t.Name)}
		}
		return idx, nil
	case *ArrayType:
		if t.Count < 0 {
			return 0, &SemanticError{Line: t.Line, Msg: "array count must be non-negative"}
		}
		elem, err := resolveTypeExpr(st, t.ElemType)
		if err != nil {
			return 0, err
		}
		return st.Arena.New(Symbol{Kind: SymArrayType, ElemType: elem, Count: t.Count}), nil
	default:
		return 0, &InternalError{Msg: fmt.Sprintf("unexpected type expression %T", te)}
	}
}

func buildProcDecl(st *SymbolTables, d *ProcDecl) error {
	localTable := st.NewProcTable()
	procIdx := st.Arena.New(Symbol{Kind: SymProcedure, Name: d.Name, LocalTable: localTable})
	if _, existed := st.Global().Insert(d.Name, procIdx); existed {
		return &SemanticError{Line: d.Line, Msg: fmt.Sprintf("redeclaration of procedure %q", d.Name)}
	}

	tbl := st.Local(localTable)
	params := make([]ProcParam, len(d.Params))
	for i, p := range d.Params {
		typeIdx, err := resolveTypeExpr(st, p.Type)
		if err != nil {
			return err
		}
		isArray := st.Arena.Get(st.Arena.Resolve(typeIdx)).Kind == SymArrayType
		isRef := p.IsRef || isArray // arrays are always passed by reference, spec.md §4.3

		varIdx := st.Arena.New(Symbol{
			Kind: SymVariable, Name: p.Name, VarType: typeIdx,
			IsParam: true, IsRef: isRef, Reg: regClassForParamIndex(i),
		})
		if _, existed := tbl.Insert(p.Name, varIdx); existed {
			return &SemanticError{Line: p.Line, Msg: fmt.Sprintf("redeclaration of parameter %q", p.Name)}
		}
		params[i] = ProcParam{Name: p.Name, IsRef: isRef, Type: typeIdx, Reg: regClassForParamIndex(i)}
	}

	for _, v := range d.Locals {
		typeIdx, err := resolveTypeExpr(st, v.Type)
		if err != nil {
			return err
		}
		varIdx := st.Arena.New(Symbol{Kind: SymVariable, Name: v.Name, VarType: typeIdx, Reg: RegStack})
		if _, existed := tbl.Insert(v.Name, varIdx); existed {
			return &SemanticError{Line: v.Line, Msg: fmt.Sprintf("redeclaration of %q", v.Name)}
		}
	}

	proc := st.Arena.Get(procIdx)
	proc.Params = params
	return nil
}
