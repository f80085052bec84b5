// Package astio serializes compilation units — the AST arenas, the
// declaration table and the type interner — into bundle files the
// driver consumes. The wire format is msgpack with a schema version;
// a version bump invalidates every existing bundle.
package astio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/source"
	"ember/internal/types"
)

// SchemaVersion is bumped whenever the bundle layout changes.
const SchemaVersion uint16 = 1

// Ext is the bundle file extension.
const Ext = ".embast"

// FileRec is the serialized form of one source file. Files travel with
// the unit so diagnostic spans resolve without the original tree.
type FileRec struct {
	Path    string
	Content []byte
	Flags   uint8
}

// ClassRec is the serialized form of one class declaration.
type ClassRec struct {
	Name  uint32
	Super uint32
}

// ParamRec is the serialized form of one parameter.
type ParamRec struct {
	Name     uint32
	Type     uint32
	Escaping bool
}

// FuncRec is the serialized form of one function declaration.
type FuncRec struct {
	Name        uint32
	Mood        uint8
	Owner       uint32
	Params      []ParamRec
	Return      uint32
	Error       uint32
	Initializer bool
	Body        uint32
}

// Bundle is one compilation unit in wire form. Arena contents are laid
// out flat in allocation order, so replaying them reproduces identical
// IDs.
type Bundle struct {
	Schema uint16
	Unit   string

	Strings   []string
	Types     []types.Type
	Callables []types.CallableInfo

	Exprs         []ast.Expr
	Idents        []ast.ExprIdentData
	Literals      []ast.ExprLitData
	Calls         []ast.ExprCallData
	CallableCalls []ast.ExprCallableCallData
	Supers        []ast.ExprSuperData
	TypeValues    []ast.ExprTypeAsValueData
	SizeOfs       []ast.ExprSizeOfData
	CondAssigns   []ast.ExprCondAssignData
	Unaries       []ast.ExprUnaryData
	Upcasts       []ast.ExprUpcastData

	Stmts      []ast.Stmt
	Blocks     []ast.StmtBlockData
	StmtExprs  []ast.StmtExprData
	Lets       []ast.StmtLetData
	Assigns    []ast.StmtAssignData
	Returns    []ast.StmtReturnData
	StmtIfs    []ast.StmtIfData
	Args       []ast.Args
	TypeSyns   []ast.TypeSyn

	Classes   []ClassRec
	Functions []FuncRec

	Files []FileRec
}

// AttachFiles copies the file set's sources into the bundle, in ID
// order, so spans inside the unit stay resolvable.
func (bn *Bundle) AttachFiles(fs *source.FileSet) {
	bn.Files = bn.Files[:0]
	for i := 0; i < fs.Len(); i++ {
		f := fs.Get(source.FileID(i))
		bn.Files = append(bn.Files, FileRec{
			Path:    f.Path,
			Content: f.Content,
			Flags:   uint8(f.Flags),
		})
	}
}

// FileSet replays the bundled sources. File IDs match the set the unit
// was built against.
func (bn *Bundle) FileSet() *source.FileSet {
	fs := source.NewFileSet()
	for _, rec := range bn.Files {
		fs.Add(rec.Path, rec.Content, source.FileFlags(rec.Flags))
	}
	return fs
}

// FromUnit captures a builder and its declaration table into a bundle.
func FromUnit(unit string, b *ast.Builder, table *decls.Table) *Bundle {
	snapTypes, snapCallables := table.Types.Snapshot()
	out := &Bundle{
		Schema:    SchemaVersion,
		Unit:      unit,
		Strings:   append([]string(nil), b.StringsInterner.All()...),
		Types:     append([]types.Type(nil), snapTypes...),
		Callables: append([]types.CallableInfo(nil), snapCallables...),

		Exprs:         b.Exprs.Arena.Slice(),
		Idents:        b.Exprs.Idents.Slice(),
		Literals:      b.Exprs.Literals.Slice(),
		Calls:         b.Exprs.Calls.Slice(),
		CallableCalls: b.Exprs.CallableCalls.Slice(),
		Supers:        b.Exprs.Supers.Slice(),
		TypeValues:    b.Exprs.TypeValues.Slice(),
		SizeOfs:       b.Exprs.SizeOfs.Slice(),
		CondAssigns:   b.Exprs.CondAssigns.Slice(),
		Unaries:       b.Exprs.Unaries.Slice(),
		Upcasts:       b.Exprs.Upcasts.Slice(),

		Stmts:     b.Stmts.Arena.Slice(),
		Blocks:    b.Stmts.Blocks.Slice(),
		StmtExprs: b.Stmts.Exprs.Slice(),
		Lets:      b.Stmts.Lets.Slice(),
		Assigns:   b.Stmts.Assigns.Slice(),
		Returns:   b.Stmts.Returns.Slice(),
		StmtIfs:   b.Stmts.Ifs.Slice(),
		Args:      b.Args.Arena.Slice(),
		TypeSyns:  b.TypeSyns.Arena.Slice(),
	}
	for _, cid := range table.Classes() {
		c := table.Class(cid)
		out.Classes = append(out.Classes, ClassRec{
			Name:  uint32(c.Name),
			Super: uint32(c.Super),
		})
	}
	for _, fid := range table.Functions() {
		fn := table.Function(fid)
		rec := FuncRec{
			Name:        uint32(fn.Name),
			Mood:        uint8(fn.Mood),
			Owner:       uint32(fn.Owner),
			Return:      uint32(fn.Return),
			Error:       uint32(fn.Error),
			Initializer: fn.Initializer,
			Body:        uint32(fn.Body),
		}
		for _, p := range fn.Params {
			rec.Params = append(rec.Params, ParamRec{
				Name:     uint32(p.Name),
				Type:     uint32(p.Type),
				Escaping: p.Escaping,
			})
		}
		out.Functions = append(out.Functions, rec)
	}
	return out
}

// BuildUnit reconstructs the builder and declaration table of a bundle.
// IDs in the rebuilt unit are identical to the captured ones.
func (bn *Bundle) BuildUnit() (*ast.Builder, *decls.Table, error) {
	if bn.Schema != SchemaVersion {
		return nil, nil, fmt.Errorf("astio: bundle schema %d, want %d", bn.Schema, SchemaVersion)
	}
	interner, err := types.Restore(bn.Types, bn.Callables)
	if err != nil {
		return nil, nil, err
	}

	b := ast.NewBuilder(ast.Hints{
		Exprs:    uint(len(bn.Exprs)) + 1,
		Stmts:    uint(len(bn.Stmts)) + 1,
		Args:     uint(len(bn.Args)) + 1,
		TypeSyns: uint(len(bn.TypeSyns)) + 1,
	}, nil)
	for i, s := range bn.Strings {
		if i == 0 {
			continue // the empty string is pre-seeded
		}
		b.StringsInterner.Intern(s)
	}

	replay(b.Exprs.Arena, bn.Exprs)
	replay(b.Exprs.Idents, bn.Idents)
	replay(b.Exprs.Literals, bn.Literals)
	replay(b.Exprs.Calls, bn.Calls)
	replay(b.Exprs.CallableCalls, bn.CallableCalls)
	replay(b.Exprs.Supers, bn.Supers)
	replay(b.Exprs.TypeValues, bn.TypeValues)
	replay(b.Exprs.SizeOfs, bn.SizeOfs)
	replay(b.Exprs.CondAssigns, bn.CondAssigns)
	replay(b.Exprs.Unaries, bn.Unaries)
	replay(b.Exprs.Upcasts, bn.Upcasts)

	replay(b.Stmts.Arena, bn.Stmts)
	replay(b.Stmts.Blocks, bn.Blocks)
	replay(b.Stmts.Exprs, bn.StmtExprs)
	replay(b.Stmts.Lets, bn.Lets)
	replay(b.Stmts.Assigns, bn.Assigns)
	replay(b.Stmts.Returns, bn.Returns)
	replay(b.Stmts.Ifs, bn.StmtIfs)
	replay(b.Args.Arena, bn.Args)
	replay(b.TypeSyns.Arena, bn.TypeSyns)

	table := decls.NewTable(interner)
	for _, c := range bn.Classes {
		table.NewClass(source.StringID(c.Name), decls.ClassID(c.Super))
	}
	for _, fn := range bn.Functions {
		params := make([]decls.Param, 0, len(fn.Params))
		for _, p := range fn.Params {
			params = append(params, decls.Param{
				Name:     source.StringID(p.Name),
				Type:     types.TypeID(p.Type),
				Escaping: p.Escaping,
			})
		}
		table.NewFunction(decls.Function{
			Name:        source.StringID(fn.Name),
			Mood:        ast.Mood(fn.Mood),
			Owner:       decls.ClassID(fn.Owner),
			Params:      params,
			Return:      types.TypeID(fn.Return),
			Error:       types.TypeID(fn.Error),
			Initializer: fn.Initializer,
			Body:        ast.StmtID(fn.Body),
		})
	}
	return b, table, nil
}

func replay[T any](dst *ast.Arena[T], src []T) {
	for _, v := range src {
		dst.Allocate(v)
	}
}

// Encode writes the bundle to w.
func (bn *Bundle) Encode(w io.Writer) error {
	return msgpack.NewEncoder(w).Encode(bn)
}

// Decode reads a bundle from r.
func Decode(r io.Reader) (*Bundle, error) {
	var bn Bundle
	if err := msgpack.NewDecoder(r).Decode(&bn); err != nil {
		return nil, err
	}
	return &bn, nil
}

// Store writes the bundle to path atomically.
func (bn *Bundle) Store(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	if err := bn.Encode(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}

// Load reads a bundle from path. A missing file is reported as
// (nil, os.ErrNotExist) for callers that treat absence as a miss.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
