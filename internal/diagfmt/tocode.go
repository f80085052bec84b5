package diagfmt

import (
	"strings"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/types"
)

// CodeRenderer turns expression trees back into source-like text for
// diagnostics and tooling. The output is a canonical spelling, not the
// original bytes: wrappers inserted during analysis (upcasts) render
// too, which is the point when explaining a type-widening message.
type CodeRenderer struct {
	B     *ast.Builder
	Types *types.Interner
}

func (r CodeRenderer) Expr(id ast.ExprID) string {
	var sb strings.Builder
	r.expr(&sb, id)
	return sb.String()
}

func (r CodeRenderer) expr(sb *strings.Builder, id ast.ExprID) {
	if id == ast.NoExprID {
		sb.WriteString("<expr>")
		return
	}
	exp := r.B.Exprs.Get(id)
	switch exp.Kind {
	case ast.ExprIdent:
		data, _ := r.B.Exprs.Ident(id)
		sb.WriteString(r.str(data.Name))
	case ast.ExprLit:
		data, _ := r.B.Exprs.Lit(id)
		r.literal(sb, data)
	case ast.ExprCall:
		data, _ := r.B.Exprs.Call(id)
		if data.Receiver != ast.NoExprID {
			r.expr(sb, data.Receiver)
			sb.WriteByte('.')
		}
		sb.WriteString(r.str(data.Name))
		r.args(sb, data.Args)
	case ast.ExprCallableCall:
		data, _ := r.B.Exprs.CallableCall(id)
		r.expr(sb, data.Callable)
		r.args(sb, data.Args)
	case ast.ExprSuper:
		data, _ := r.B.Exprs.Super(id)
		sb.WriteString("super.")
		sb.WriteString(r.str(data.Name))
		r.args(sb, data.Args)
	case ast.ExprTypeAsValue:
		data, _ := r.B.Exprs.TypeAsValue(id)
		sb.WriteString("type(")
		r.typeSyn(sb, data.Type)
		sb.WriteByte(')')
	case ast.ExprSizeOf:
		data, _ := r.B.Exprs.SizeOf(id)
		sb.WriteString("sizeof(")
		r.typeSyn(sb, data.Type)
		sb.WriteByte(')')
	case ast.ExprCondAssign:
		data, _ := r.B.Exprs.CondAssign(id)
		sb.WriteString(r.str(data.Name))
		sb.WriteString(" =? ")
		r.expr(sb, data.Child)
	case ast.ExprGroup:
		data, _ := r.B.Exprs.Unary(id)
		sb.WriteByte('(')
		r.expr(sb, data.Child)
		sb.WriteByte(')')
	case ast.ExprUnwrap:
		data, _ := r.B.Exprs.Unary(id)
		r.expr(sb, data.Child)
		sb.WriteByte('!')
	case ast.ExprPropagate:
		data, _ := r.B.Exprs.Unary(id)
		r.expr(sb, data.Child)
		sb.WriteByte('^')
	case ast.ExprUpcast:
		data, _ := r.B.Exprs.Upcast(id)
		r.expr(sb, data.Child)
		sb.WriteString(" as ")
		sb.WriteString(r.typeName(data.Target))
	default:
		sb.WriteString("<expr>")
	}
}

func (r CodeRenderer) literal(sb *strings.Builder, data *ast.ExprLitData) {
	val := r.str(data.Value)
	switch data.Kind {
	case ast.LitStr:
		sb.WriteByte('"')
		sb.WriteString(val)
		sb.WriteByte('"')
	case ast.LitSymbol:
		sb.WriteByte('\'')
		sb.WriteString(val)
		sb.WriteByte('\'')
	default:
		sb.WriteString(val)
	}
}

func (r CodeRenderer) args(sb *strings.Builder, id ast.ArgsID) {
	list := r.B.Args.Get(id)
	if len(list.GenericSyns) > 0 {
		sb.WriteByte('<')
		for i, syn := range list.GenericSyns {
			if i > 0 {
				sb.WriteString(", ")
			}
			r.typeSyn(sb, syn)
		}
		sb.WriteByte('>')
	}
	if list.Mood == ast.MoodInterrogative {
		sb.WriteByte('?')
	}
	sb.WriteByte('(')
	for i, arg := range list.Exprs {
		if i > 0 {
			sb.WriteString(", ")
		}
		r.expr(sb, arg)
	}
	sb.WriteByte(')')
}

func (r CodeRenderer) typeSyn(sb *strings.Builder, id ast.TypeSynID) {
	syn := r.B.TypeSyns.Get(id)
	sb.WriteString(r.str(syn.Name))
	if syn.Optional {
		sb.WriteByte('?')
	}
}

func (r CodeRenderer) typeName(id types.TypeID) string {
	if r.Types == nil {
		return "<type>"
	}
	return r.Types.String(id)
}

func (r CodeRenderer) str(id source.StringID) string {
	s, ok := r.B.StringsInterner.Lookup(id)
	if !ok {
		return "<name>"
	}
	return s
}
