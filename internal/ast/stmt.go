package ast

import (
	"ember/internal/source"
)

// StmtKind enumerates statement kinds. Statements drive the direction of
// memory-flow analysis; their own semantics stay thin here.
type StmtKind uint8

const (
	StmtBlock StmtKind = iota
	StmtExpr
	StmtLet
	StmtAssign
	StmtReturn
	StmtIf
)

type Stmt struct {
	Kind    StmtKind
	Span    source.Span
	Payload PayloadID
}

type StmtBlockData struct {
	Stmts []StmtID
}

type StmtExprData struct {
	Expr ExprID
}

// StmtLetData introduces a variable bound to Init. Try marks explicit
// local handling of a failure-carrying initializer.
type StmtLetData struct {
	Name source.StringID
	Type TypeSynID // NoTypeSynID when inferred
	Init ExprID
	Try  bool
}

type StmtAssignData struct {
	Name  source.StringID
	Value ExprID
}

type StmtReturnData struct {
	Value ExprID // NoExprID for bare return
}

type StmtIfData struct {
	Cond ExprID
	Then StmtID
	Else StmtID // NoStmtID when absent
}

// Stmts manages allocation of statements.
type Stmts struct {
	Arena   *Arena[Stmt]
	Blocks  *Arena[StmtBlockData]
	Exprs   *Arena[StmtExprData]
	Lets    *Arena[StmtLetData]
	Assigns *Arena[StmtAssignData]
	Returns *Arena[StmtReturnData]
	Ifs     *Arena[StmtIfData]
}

func NewStmts(capHint uint) *Stmts {
	if capHint == 0 {
		capHint = 1 << 8
	}
	return &Stmts{
		Arena:   NewArena[Stmt](capHint),
		Blocks:  NewArena[StmtBlockData](capHint),
		Exprs:   NewArena[StmtExprData](capHint),
		Lets:    NewArena[StmtLetData](capHint),
		Assigns: NewArena[StmtAssignData](capHint),
		Returns: NewArena[StmtReturnData](capHint),
		Ifs:     NewArena[StmtIfData](capHint),
	}
}

func (s *Stmts) new(kind StmtKind, span source.Span, payload PayloadID) StmtID {
	return StmtID(s.Arena.Allocate(Stmt{Kind: kind, Span: span, Payload: payload}))
}

func (s *Stmts) Get(id StmtID) *Stmt {
	return s.Arena.Get(uint32(id))
}

func (s *Stmts) NewBlock(span source.Span, stmts []StmtID) StmtID {
	payload := s.Blocks.Allocate(StmtBlockData{Stmts: stmts})
	return s.new(StmtBlock, span, PayloadID(payload))
}

func (s *Stmts) Block(id StmtID) (*StmtBlockData, bool) {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtBlock {
		return nil, false
	}
	return s.Blocks.Get(uint32(stmt.Payload)), true
}

func (s *Stmts) NewExpr(span source.Span, expr ExprID) StmtID {
	payload := s.Exprs.Allocate(StmtExprData{Expr: expr})
	return s.new(StmtExpr, span, PayloadID(payload))
}

func (s *Stmts) Expr(id StmtID) (*StmtExprData, bool) {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtExpr {
		return nil, false
	}
	return s.Exprs.Get(uint32(stmt.Payload)), true
}

func (s *Stmts) NewLet(span source.Span, name source.StringID, typ TypeSynID, init ExprID, try bool) StmtID {
	payload := s.Lets.Allocate(StmtLetData{Name: name, Type: typ, Init: init, Try: try})
	return s.new(StmtLet, span, PayloadID(payload))
}

func (s *Stmts) Let(id StmtID) (*StmtLetData, bool) {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtLet {
		return nil, false
	}
	return s.Lets.Get(uint32(stmt.Payload)), true
}

func (s *Stmts) NewAssign(span source.Span, name source.StringID, value ExprID) StmtID {
	payload := s.Assigns.Allocate(StmtAssignData{Name: name, Value: value})
	return s.new(StmtAssign, span, PayloadID(payload))
}

func (s *Stmts) Assign(id StmtID) (*StmtAssignData, bool) {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtAssign {
		return nil, false
	}
	return s.Assigns.Get(uint32(stmt.Payload)), true
}

func (s *Stmts) NewReturn(span source.Span, value ExprID) StmtID {
	payload := s.Returns.Allocate(StmtReturnData{Value: value})
	return s.new(StmtReturn, span, PayloadID(payload))
}

func (s *Stmts) Return(id StmtID) (*StmtReturnData, bool) {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtReturn {
		return nil, false
	}
	return s.Returns.Get(uint32(stmt.Payload)), true
}

func (s *Stmts) NewIf(span source.Span, cond ExprID, then, els StmtID) StmtID {
	payload := s.Ifs.Allocate(StmtIfData{Cond: cond, Then: then, Else: els})
	return s.new(StmtIf, span, PayloadID(payload))
}

func (s *Stmts) If(id StmtID) (*StmtIfData, bool) {
	stmt := s.Get(id)
	if stmt == nil || stmt.Kind != StmtIf {
		return nil, false
	}
	return s.Ifs.Get(uint32(stmt.Payload)), true
}
