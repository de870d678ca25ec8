package compiler

import "fmt"

// This file defines the AST node set closed by spec.md §3. Rather than a
// single flat integer arena (the bootstrap compiler's representation —
// see spec.md §9 "Design Notes"), each node kind is a distinct Go type; a
// tagged-union-with-indices rewrite, not a bit-identical one, is the
// explicit license spec.md §9 grants a rewrite. The type-slot spec.md
// requires on every expression node is carried as a field (TypeRef,
// an index into a symbol Arena) instead of a reserved arena slot.

// unsetType is the type-slot sentinel spec.md §3 calls "unset"; every
// expression node's TypeRef starts here and the resolver (resolver.go)
// fills it during semantic analysis.
const unsetType SymbolIndex = -1

// Node is implemented by every AST node, top-level declaration and
// statement alike, so the symbol builder and resolver can walk
// declarations uniformly.
type Node interface {
	String() string
}

// Expr is implemented by every node that produces a value and therefore
// carries a type-slot.
type Expr interface {
	Node
	exprNode()
	Type() SymbolIndex
	SetType(SymbolIndex)
}

// Stmt is implemented by every node that does not produce a value.
type Stmt interface {
	Node
	stmtNode()
}

// exprBase carries the type-slot shared by every expression node.
type exprBase struct {
	TypeRef SymbolIndex
}

func newExprBase() exprBase { return exprBase{TypeRef: unsetType} }

func (e *exprBase) Type() SymbolIndex     { return e.TypeRef }
func (e *exprBase) SetType(i SymbolIndex) { e.TypeRef = i }

// Program is the AST root: a sequence of top-level TypeDecl/ProcDecl nodes.
type Program struct {
	Decls []Node // *TypeDecl or *ProcDecl
}

func (p *Program) String() string { return fmt.Sprintf("Program(decls=%d)", len(p.Decls)) }

// TypeDecl is  type Name = TypeExpr ;
type TypeDecl struct {
	Name string
	Type TypeExpr
	Line int
}

func (d *TypeDecl) String() string { return fmt.Sprintf("TypeDecl(%s = %s)", d.Name, d.Type) }

// TypeExpr is implemented by TypeNameRef and ArrayType: the two forms the
// grammar's `type` production can take.
type TypeExpr interface {
	Node
	typeExprNode()
}

// TypeNameRef is a use of a named type: a bare identifier in type position.
type TypeNameRef struct {
	Name string
	Line int
}

func (t *TypeNameRef) typeExprNode()  {}
func (t *TypeNameRef) String() string { return t.Name }

// ArrayType is  array [ N ] of ElemType
type ArrayType struct {
	ElemType TypeExpr
	Count    int64 // from an IntLit in the grammar; must be a non-negative literal
	Line     int
}

func (a *ArrayType) typeExprNode()  {}
func (a *ArrayType) String() string { return fmt.Sprintf("array[%d] of %s", a.Count, a.ElemType) }

// Param is one formal parameter of a ProcDecl.
type Param struct {
	Name  string
	IsRef bool
	Type  TypeExpr
	Line  int
}

func (p *Param) String() string {
	if p.IsRef {
		return fmt.Sprintf("ref %s: %s", p.Name, p.Type)
	}
	return fmt.Sprintf("%s: %s", p.Name, p.Type)
}

// VarDecl is  var Name : TypeExpr ;  — used for procedure locals. Unlike
// Param, a VarDecl never becomes a register-spilled argument slot.
type VarDecl struct {
	Name string
	Type TypeExpr
	Line int
}

func (v *VarDecl) String() string { return fmt.Sprintf("VarDecl(%s: %s)", v.Name, v.Type) }

// ProcDecl is  proc Name ( params ) { varDecls stmts }
type ProcDecl struct {
	Name   string
	Params []*Param
	Locals []*VarDecl
	Body   []Stmt
	Line   int
}

func (p *ProcDecl) String() string {
	return fmt.Sprintf("ProcDecl(%s, params=%d, locals=%d, body=%d)", p.Name, len(p.Params), len(p.Locals), len(p.Body))
}

//  Statements

// StmtList is an explicit braced block: { stmt* }. Used for if/while
// bodies written as a block instead of a single statement.
type StmtList struct {
	Stmts []Stmt
	Line  int
}

func (s *StmtList) stmtNode()      {}
func (s *StmtList) String() string { return fmt.Sprintf("StmtList(len=%d)", len(s.Stmts)) }

// AssignStmt is  lvalue := expr ;
type AssignStmt struct {
	LValue *VarExpr
	Value  Expr
	Line   int
}

func (a *AssignStmt) stmtNode()      {}
func (a *AssignStmt) String() string { return fmt.Sprintf("AssignStmt(%s := %s)", a.LValue, a.Value) }

// IfStmt is  if ( cmp ) then [ else else ]
type IfStmt struct {
	Cond *Comparison
	Then Stmt
	Else Stmt // nil if absent
	Line int
}

func (i *IfStmt) stmtNode() {}
func (i *IfStmt) String() string {
	if i.Else != nil {
		return fmt.Sprintf("IfStmt(%s then %s else %s)", i.Cond, i.Then, i.Else)
	}
	return fmt.Sprintf("IfStmt(%s then %s)", i.Cond, i.Then)
}

// WhileStmt is  while ( cmp ) body
type WhileStmt struct {
	Cond *Comparison
	Body Stmt
	Line int
}

func (w *WhileStmt) stmtNode()      {}
func (w *WhileStmt) String() string { return fmt.Sprintf("WhileStmt(%s do %s)", w.Cond, w.Body) }

// CallArg is one argument to a CallStmt: either a plain expression, or
// (when the parameter is ref / an array) a bare variable reference that
// must be addressable.
type CallArg struct {
	Expr Expr     // always set
	Var  *VarExpr // set iff this argument was parsed as a bare var
}

// CallStmt is  callee ( args ) ;
type CallStmt struct {
	Callee string
	Args   []CallArg
	Line   int
}

func (c *CallStmt) stmtNode() {}
func (c *CallStmt) String() string {
	return fmt.Sprintf("CallStmt(%s, args=%d)", c.Callee, len(c.Args))
}

//  Expressions

// CmpOp enumerates the six comparison operators.
type CmpOp int

const (
	CmpEq CmpOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

func (op CmpOp) String() string {
	return [...]string{"=", "#", "<", "<=", ">", ">="}[op]
}

// Comparison is  lhs cmpOp rhs — legal only as the condition of if/while
// (spec.md §3). It has no type-slot of its own: SPL has no boolean values
// outside control flow.
type Comparison struct {
	Op   CmpOp
	LHS  Expr
	RHS  Expr
	Line int
}

func (c *Comparison) String() string { return fmt.Sprintf("(%s %s %s)", c.LHS, c.Op, c.RHS) }

// ArithOp enumerates the four arithmetic operators.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op ArithOp) String() string {
	return [...]string{"+", "-", "*", "/"}[op]
}

// BinExpr is  lhs op rhs  for op in {+ - * /}.
type BinExpr struct {
	exprBase
	Op   ArithOp
	LHS  Expr
	RHS  Expr
	Line int
}

func newBinExpr(op ArithOp, lhs, rhs Expr, line int) *BinExpr {
	return &BinExpr{exprBase: newExprBase(), Op: op, LHS: lhs, RHS: rhs, Line: line}
}

func (*BinExpr) exprNode()        {}
func (b *BinExpr) String() string { return fmt.Sprintf("(%s %s %s)", b.LHS, b.Op, b.RHS) }

// UnaryMinusExpr is  - operand
type UnaryMinusExpr struct {
	exprBase
	Operand Expr
	Line    int
}

func newUnaryMinusExpr(operand Expr, line int) *UnaryMinusExpr {
	return &UnaryMinusExpr{exprBase: newExprBase(), Operand: operand, Line: line}
}

func (*UnaryMinusExpr) exprNode()        {}
func (u *UnaryMinusExpr) String() string { return fmt.Sprintf("(-%s)", u.Operand) }

// IntLit is a compile-time integer constant (from an INTLIT or CHARLIT
// token — spec.md §3 widens character literals to int at lex time).
type IntLit struct {
	exprBase
	Value int64
	Line  int
}

func newIntLit(v int64, line int) *IntLit {
	return &IntLit{exprBase: newExprBase(), Value: v, Line: line}
}

func (*IntLit) exprNode()        {}
func (l *IntLit) String() string { return fmt.Sprintf("%d", l.Value) }

// Var is implemented by NamedVar and IndexedVar: the two forms the
// grammar's `var` production can take.
type Var interface {
	Node
	varNode()
}

// NamedVar is a bare identifier used as a variable.
type NamedVar struct {
	Name string
	Line int
}

func (*NamedVar) varNode()        {}
func (n *NamedVar) String() string { return n.Name }

// IndexedVar is  base [ index ]
type IndexedVar struct {
	Base  Var
	Index Expr
	Line  int
}

func (*IndexedVar) varNode()        {}
func (i *IndexedVar) String() string { return fmt.Sprintf("%s[%s]", i.Base, i.Index) }

// VarExpr wraps a Var so it can appear in expression position; it carries
// its own type-slot distinct from the underlying Var (spec.md §3).
type VarExpr struct {
	exprBase
	V    Var
	Line int
}

func newVarExpr(v Var, line int) *VarExpr {
	return &VarExpr{exprBase: newExprBase(), V: v, Line: line}
}

func (*VarExpr) exprNode()        {}
func (v *VarExpr) String() string { return v.V.String() }
