package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSymbolsInstallsBuiltins(t *testing.T) {
	st, err := BuildSymbols(&Program{})
	require.NoError(t, err)
	for _, name := range []string{"printi", "printc", "readi", "readc", "exit", "time_"} {
		idx, ok := st.Global().Lookup(name)
		require.True(t, ok, "missing builtin %q", name)
		sym := st.Arena.Get(idx)
		require.Equal(t, SymProcedure, sym.Kind)
		require.True(t, sym.IsBuiltin)
	}
	readi := st.Arena.Get(mustLookup(t, st, "readi"))
	require.Len(t, readi.Params, 1)
	require.True(t, readi.Params[0].IsRef)
	require.Equal(t, RegRDI, readi.Params[0].Reg)

	exitSym := st.Arena.Get(mustLookup(t, st, "exit"))
	require.Empty(t, exitSym.Params)
}

func mustLookup(t *testing.T, st *SymbolTables, name string) SymbolIndex {
	idx, ok := st.Global().Lookup(name)
	require.True(t, ok)
	return idx
}

func TestBuildSymbolsTypeDeclAlias(t *testing.T) {
	prog := &Program{Decls: []Node{
		&TypeDecl{Name: "T1", Type: &TypeNameRef{Name: "int"}, Line: 1},
	}}
	st, err := BuildSymbols(prog)
	require.NoError(t, err)
	t1, ok := st.Global().Lookup("T1")
	require.True(t, ok)
	require.Equal(t, IntType, st.Arena.Resolve(t1))
}

func TestBuildSymbolsUnknownTypeNameAborts(t *testing.T) {
	prog := &Program{Decls: []Node{
		&TypeDecl{Name: "T1", Type: &TypeNameRef{Name: "nope"}, Line: 3},
	}}
	_, err := BuildSymbols(prog)
	require.Error(t, err)
	require.IsType(t, &SemanticError{}, err)
}

func TestBuildSymbolsArrayTypeDecl(t *testing.T) {
	prog := &Program{Decls: []Node{
		&TypeDecl{Name: "Vec", Type: &ArrayType{ElemType: &TypeNameRef{Name: "int"}, Count: 10}, Line: 1},
	}}
	st, err := BuildSymbols(prog)
	require.NoError(t, err)
	vecIdx, _ := st.Global().Lookup("Vec")
	resolved := st.Arena.Resolve(vecIdx)
	sym := st.Arena.Get(resolved)
	require.Equal(t, SymArrayType, sym.Kind)
	require.Equal(t, int64(10), sym.Count)
	require.Equal(t, IntType, sym.ElemType)
}

func TestBuildSymbolsRedeclaredProcedureAborts(t *testing.T) {
	prog := &Program{Decls: []Node{
		&ProcDecl{Name: "main", Line: 1},
		&ProcDecl{Name: "main", Line: 2},
	}}
	_, err := BuildSymbols(prog)
	require.Error(t, err)
	require.IsType(t, &SemanticError{}, err)
}

func TestBuildSymbolsParamRegisterAssignment(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	params := make([]*Param, len(names))
	for i, n := range names {
		params[i] = &Param{Name: n, Type: &TypeNameRef{Name: "int"}}
	}
	prog := &Program{Decls: []Node{
		&ProcDecl{Name: "p", Params: params},
	}}
	st, err := BuildSymbols(prog)
	require.NoError(t, err)
	procIdx, _ := st.Global().Lookup("p")
	proc := st.Arena.Get(procIdx)
	require.Equal(t, RegRDI, proc.Params[0].Reg)
	require.Equal(t, RegR9, proc.Params[5].Reg)
	require.Equal(t, RegStack, proc.Params[6].Reg)
	require.Equal(t, RegStack, proc.Params[7].Reg)
}

func TestBuildSymbolsArrayParamIsAlwaysRef(t *testing.T) {
	prog := &Program{Decls: []Node{
		&ProcDecl{Name: "p", Params: []*Param{
			{Name: "xs", IsRef: false, Type: &ArrayType{ElemType: &TypeNameRef{Name: "int"}, Count: 4}},
		}},
	}}
	st, err := BuildSymbols(prog)
	require.NoError(t, err)
	procIdx, _ := st.Global().Lookup("p")
	proc := st.Arena.Get(procIdx)
	require.True(t, proc.Params[0].IsRef, "array parameters are always passed by reference")
}

func TestBuildSymbolsRedeclaredParamAborts(t *testing.T) {
	prog := &Program{Decls: []Node{
		&ProcDecl{Name: "p", Params: []*Param{
			{Name: "x", Type: &TypeNameRef{Name: "int"}},
			{Name: "x", Type: &TypeNameRef{Name: "int"}},
		}},
	}}
	_, err := BuildSymbols(prog)
	require.Error(t, err)
}

func TestBuildSymbolsLocalsCollectedInOrder(t *testing.T) {
	prog := &Program{Decls: []Node{
		&ProcDecl{Name: "p", Locals: []*VarDecl{
			{Name: "x", Type: &TypeNameRef{Name: "int"}},
			{Name: "y", Type: &TypeNameRef{Name: "int"}},
		}},
	}}
	st, err := BuildSymbols(prog)
	require.NoError(t, err)
	procIdx, _ := st.Global().Lookup("p")
	proc := st.Arena.Get(procIdx)
	xIdx, ok := st.Local(proc.LocalTable).Lookup("x")
	require.True(t, ok)
	yIdx, ok := st.Local(proc.LocalTable).Lookup("y")
	require.True(t, ok)
	require.False(t, st.Arena.Get(xIdx).IsParam)
	require.False(t, st.Arena.Get(yIdx).IsParam)
}
