package compiler

import "fmt"

// This file implements the symbol-entries arena and the two-level symbol
// tables spec.md §3 and §4.3 describe: a single global table (primitive
// int, builtin procedures, user TypeDecls, user ProcDecls) plus one fresh
// table per procedure (its params and locals). Both levels are open-
// addressed hash maps keyed by identifier, per spec.md's "hash function is
// a simple multiplicative rolling hash" instruction.

// SymbolIndex is a handle into an Arena. It stands in for spec.md §3's
// "index into the symbol-entries arena" — a newtype wrapper on an integer
// handle, per the tagged-variant rewrite spec.md §9 licenses.
type SymbolIndex int

// SymbolKind tags the shape a Symbol entry takes.
type SymbolKind int

const (
	SymPrimitiveInt SymbolKind = iota
	SymArrayType
	SymTypeRef
	SymVariable
	SymProcedure
)

func (k SymbolKind) String() string {
	switch k {
	case SymPrimitiveInt:
		return "PrimitiveInt"
	case SymArrayType:
		return "ArrayType"
	case SymTypeRef:
		return "TypeRef"
	case SymVariable:
		return "Variable"
	case SymProcedure:
		return "Procedure"
	default:
		return fmt.Sprintf("SymbolKind(%d)", int(k))
	}
}

// RegClass names the register (or the stack) an argument register-window
// slot occupies, in the System V AMD64 order spec.md §4.3/§4.6 assigns to a
// procedure's parameters by declaration order.
type RegClass int

const (
	RegStack RegClass = iota // 7th+ parameter: passed on the caller's stack
	RegRDI
	RegRSI
	RegRDX
	RegRCX
	RegR8
	RegR9
)

func (r RegClass) String() string {
	switch r {
	case RegStack:
		return "STACK"
	case RegRDI:
		return "RDI"
	case RegRSI:
		return "RSI"
	case RegRDX:
		return "RDX"
	case RegRCX:
		return "RCX"
	case RegR8:
		return "R8"
	case RegR9:
		return "R9"
	default:
		return fmt.Sprintf("RegClass(%d)", int(r))
	}
}

// argRegOrder is the System V AMD64 integer-argument register order; the
// Nth parameter (0-based) in this slice is passed in that register, the
// 7th and beyond on the stack (spec.md §4.6, §5).
var argRegOrder = [6]RegClass{RegRDI, RegRSI, RegRDX, RegRCX, RegR8, RegR9}

// regClassForParamIndex returns the register class the i'th (0-based)
// parameter of a procedure occupies before the allocator spills it to its
// home stack slot.
func regClassForParamIndex(i int) RegClass {
	if i < len(argRegOrder) {
		return argRegOrder[i]
	}
	return RegStack
}

// ProcParam is one formal parameter of a Procedure symbol, resolved from
// the AST's Param nodes during symbol building.
type ProcParam struct {
	Name   string
	IsRef  bool
	Type   SymbolIndex
	Reg    RegClass // incoming register class, spec.md §4.3
	Offset int64    // home stack-slot offset from RBP; filled by the allocator
}

// Symbol is one entry of the arena. Only the fields relevant to Kind are
// meaningful; this mirrors the teacher's single Symbol struct carrying a
// union of scalar/array/pointer fields rather than spec.md's literal
// variant-tagged arena slot layout.
type Symbol struct {
	Kind SymbolKind
	Name string // informational: type/proc/var name, for diagnostics and dumps

	// SymArrayType
	ElemType SymbolIndex
	Count    int64

	// SymTypeRef
	Target SymbolIndex

	// SymVariable
	VarType SymbolIndex
	IsParam bool
	IsRef   bool
	Reg     RegClass // RegStack for locals; incoming reg class for by-register params
	Offset  int64    // home stack-slot offset from RBP; filled by the allocator

	// SymProcedure
	IsBuiltin     bool
	LocalTable    int // index into SymbolTables.Tables; unused (0) for builtins
	Params        []ProcParam
	LocalAreaSize  int64 // bytes of declared locals, filled by the allocator
	RegSpillArea   int64 // bytes of spill slots for the first six (register) params
	OutgoingArea   int64 // bytes reserved for the largest call site's stack args
	FrameSize      int64 // local+spill+outgoing, rounded up to a 16-byte boundary
}

func (s *Symbol) String() string {
	switch s.Kind {
	case SymArrayType:
		return fmt.Sprintf("array[%d] of #%d", s.Count, s.ElemType)
	case SymTypeRef:
		return fmt.Sprintf("alias -> #%d", s.Target)
	case SymVariable:
		return fmt.Sprintf("var %s: #%d ref=%v reg=%s", s.Name, s.VarType, s.IsRef, s.Reg)
	case SymProcedure:
		return fmt.Sprintf("proc %s(params=%d) builtin=%v", s.Name, len(s.Params), s.IsBuiltin)
	default:
		return s.Kind.String()
	}
}

// Arena is the flat store of symbol entries spec.md §3 requires; every
// TypeDecl, ProcDecl, parameter, and local variable owns exactly one slot,
// addressed by the SymbolIndex handed back from New.
type Arena struct {
	entries []Symbol
}

// NewArena returns an Arena pre-seeded with the single primitive type
// SPL defines (spec.md §3: "the only primitive type is int"), always at
// index 0 so callers can refer to it as IntType without a lookup.
func NewArena() *Arena {
	a := &Arena{}
	a.entries = append(a.entries, Symbol{Kind: SymPrimitiveInt, Name: "int"})
	return a
}

// IntType is the well-known SymbolIndex of the primitive int type.
const IntType SymbolIndex = 0

func (a *Arena) New(sym Symbol) SymbolIndex {
	a.entries = append(a.entries, sym)
	return SymbolIndex(len(a.entries) - 1)
}

func (a *Arena) Get(i SymbolIndex) *Symbol {
	if int(i) < 0 || int(i) >= len(a.entries) {
		panic((&InternalError{Msg: fmt.Sprintf("symbol index %d out of range", i)}).Error())
	}
	return &a.entries[i]
}

// Resolve chases a chain of TypeRef aliases to the type it ultimately
// names, per spec.md §9's resolved open question: two TypeRefs compare
// equal after resolution iff they resolve to the same arena index, so
// aliases of int are interchangeable but aliases of distinct array types
// are not.
func (a *Arena) Resolve(i SymbolIndex) SymbolIndex {
	seen := map[SymbolIndex]bool{}
	for a.entries[i].Kind == SymTypeRef {
		if seen[i] {
			panic((&InternalError{Msg: "cyclic type alias"}).Error())
		}
		seen[i] = true
		i = a.entries[i].Target
	}
	return i
}

// SameType reports whether a and b name the same type once alias chains
// are fully resolved.
func (arena *Arena) SameType(a, b SymbolIndex) bool {
	return arena.Resolve(a) == arena.Resolve(b)
}

//  Open-addressed symbol table

// tableSlot is one bucket of a Table's backing array.
type tableSlot struct {
	used bool
	key  string
	val  SymbolIndex
}

// Table is an open-addressed hash map from identifier to SymbolIndex,
// spec.md §3's "open-addressed hash map from identifier to symbol-entry
// index", grown by doubling and rehashing once the load factor crosses
// 0.7 — the teacher's SymbolTable instead keeps Go maps directly, but
// this mirrors spec.md's data-model requirement closely rather than
// leaning on the runtime's own hash map.
type Table struct {
	slots []tableSlot
	count int
}

const tableInitialCap = 16

func newTable() *Table {
	return &Table{slots: make([]tableSlot, tableInitialCap)}
}

// rollingHash is the "simple multiplicative rolling hash" spec.md §3
// calls for: a DJB2-style h = h*33 + byte accumulator.
func rollingHash(key string) uint64 {
	var h uint64 = 5381
	for i := 0; i < len(key); i++ {
		h = h*33 + uint64(key[i])
	}
	return h
}

func (t *Table) probe(key string) int {
	mask := len(t.slots) - 1
	idx := int(rollingHash(key)) & mask
	for {
		s := &t.slots[idx]
		if !s.used || s.key == key {
			return idx
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow() {
	old := t.slots
	t.slots = make([]tableSlot, len(old)*2)
	t.count = 0
	for _, s := range old {
		if s.used {
			t.insertSlot(s.key, s.val)
		}
	}
}

func (t *Table) insertSlot(key string, val SymbolIndex) {
	idx := t.probe(key)
	if !t.slots[idx].used {
		t.count++
	}
	t.slots[idx] = tableSlot{used: true, key: key, val: val}
}

// Insert adds key -> val, returning the previous value and true if key
// was already present (a redeclaration, which the symbol builder rejects).
func (t *Table) Insert(key string, val SymbolIndex) (SymbolIndex, bool) {
	if float64(t.count+1) > 0.7*float64(len(t.slots)) {
		t.grow()
	}
	idx := t.probe(key)
	prev, existed := t.slots[idx].val, t.slots[idx].used
	t.insertSlot(key, val)
	return prev, existed
}

// Lookup returns the SymbolIndex bound to key in this table alone; it
// does not consult any other table.
func (t *Table) Lookup(key string) (SymbolIndex, bool) {
	idx := t.probe(key)
	s := &t.slots[idx]
	if !s.used {
		return 0, false
	}
	return s.val, true
}

//  Two-level symbol tables

// SymbolTables is the two-level structure spec.md §3 describes: Tables[0]
// is the global table; Tables[1:] are one per ProcDecl, created by
// NewProcTable and referenced from the owning Symbol's LocalTable field.
type SymbolTables struct {
	Arena  *Arena
	Tables []*Table
}

// NewSymbolTables returns a two-level structure with just the global
// table allocated, holding the name "int" bound to IntType.
func NewSymbolTables() *SymbolTables {
	st := &SymbolTables{Arena: NewArena(), Tables: []*Table{newTable()}}
	st.Global().Insert("int", IntType)
	return st
}

// Global is the top-level table: primitive int, builtins, user TypeDecls
// and ProcDecls (spec.md §3).
func (st *SymbolTables) Global() *Table { return st.Tables[0] }

// NewProcTable allocates a fresh local table for one procedure and
// returns its index into st.Tables.
func (st *SymbolTables) NewProcTable() int {
	st.Tables = append(st.Tables, newTable())
	return len(st.Tables) - 1
}

// Local returns the table for a procedure previously created with
// NewProcTable.
func (st *SymbolTables) Local(i int) *Table { return st.Tables[i] }

// Lookup resolves name against a procedure's local table first, then the
// global table, matching the ordinary lexical scoping spec.md §4.3/§4.4
// assume: a local shadows a same-named global. localTable may be 0 (the
// global table) when resolving outside any procedure body.
func (st *SymbolTables) Lookup(localTable int, name string) (SymbolIndex, bool) {
	if localTable != 0 {
		if idx, ok := st.Tables[localTable].Lookup(name); ok {
			return idx, true
		}
	}
	return st.Global().Lookup(name)
}
