package sema

import (
	"fmt"

	"ember/internal/ast"
	"ember/internal/decls"
	"ember/internal/diag"
	"ember/internal/source"
	"ember/internal/types"
)

// super analyses a superclass call. Inside an initializer the call
// delegates to a superclass initializer; elsewhere it invokes the
// overridden method of the same name.
func (a *exprAnalyser) super(id ast.ExprID, span source.Span) types.TypeID {
	data, _ := a.b.Exprs.Super(id)
	encl := a.table.Function(a.fn)

	if !encl.Owner.IsValid() || !a.table.Class(encl.Owner).Super.IsValid() {
		diag.ReportError(a.reporter, diag.SemaNoSuperclass, span,
			"super call outside of a class with a superclass").Emit()
		a.analyseArgs(data.Args, nil, span, false)
		a.res.SetCall(id, CallInfo{ErrorType: a.table.NoError()})
		return types.NoTypeID
	}
	super := a.table.Class(encl.Owner).Super

	if encl.Initializer {
		return a.analyseSuperInit(id, data, super, span)
	}

	mood := ast.MoodImperative
	if args := a.b.Args.Get(data.Args); args != nil {
		mood = args.Mood
	}
	callee, found := a.table.FindMethod(super, data.Name, mood)
	if !found {
		diag.ReportError(a.reporter, diag.SemaUnresolvedMethod, span,
			fmt.Sprintf("superclass has no method %q", a.name(data.Name))).Emit()
		a.analyseArgs(data.Args, nil, span, false)
		a.res.SetCall(id, CallInfo{ErrorType: a.table.NoError()})
		return types.NoTypeID
	}
	fn := a.table.Function(callee)
	a.analyseArgs(data.Args, fn.Params, span, true)
	a.res.SetCall(id, CallInfo{
		Callee:    callee,
		ErrorType: fn.Error,
		Prone:     a.table.DeclaresFailure(callee),
	})
	return fn.Return
}

// analyseSuperInit resolves the delegated superclass initializer. The
// call site does not reveal whether the resolved initializer can fail;
// that must be read off the supertype's own member set.
func (a *exprAnalyser) analyseSuperInit(id ast.ExprID, data *ast.ExprSuperData, super decls.ClassID, span source.Span) types.TypeID {
	init, found := a.table.FindInitializer(super, data.Name)
	if !found {
		diag.ReportError(a.reporter, diag.SemaUnresolvedInit, span,
			fmt.Sprintf("superclass has no initializer %q", a.name(data.Name))).Emit()
		a.analyseArgs(data.Args, nil, span, false)
		a.res.SetCall(id, CallInfo{ErrorType: a.table.NoError()})
		return types.NoTypeID
	}
	fn := a.table.Function(init)
	a.analyseArgs(data.Args, fn.Params, span, true)
	a.analyseSuperInitErrorProneness(id, init, span)
	// Initializer delegation produces no value.
	return a.table.Types.Builtins().NoReturn
}

// analyseSuperInitErrorProneness decides the consequences of delegating
// to a failure-declaring initializer: the enclosing initializer must
// behave as error-prone even when its own signature does not mention
// failure. The delegation always propagates; there is no way to handle
// a super-init failure locally.
func (a *exprAnalyser) analyseSuperInitErrorProneness(id ast.ExprID, init decls.FunctionID, span source.Span) {
	initFn := a.table.Function(init)
	if !a.table.DeclaresFailure(init) {
		a.res.SetCall(id, CallInfo{Callee: init, ErrorType: a.table.NoError(), SuperInit: true})
		return
	}

	encl := a.table.Function(a.fn)
	if a.table.DeclaresFailure(a.fn) {
		if !a.errorAssignable(initFn.Error, encl.Error) {
			diag.ReportError(a.reporter, diag.ErrIncompatibleError, span,
				fmt.Sprintf("superclass initializer fails with %s, which cannot flow into the declared %s",
					a.table.Types.String(initFn.Error), a.table.Types.String(encl.Error))).Emit()
		}
	} else {
		// Managed error-proneness: the signature stays as written, but
		// the initializer gains an error path for the delegation.
		a.res.MarkFnErrorProne(a.fn)
	}
	a.res.SetCall(id, CallInfo{Callee: init, ErrorType: initFn.Error, Prone: true, SuperInit: true})
	a.res.SetHandled(id, HandlePropagate)
}

// propagate analyses an explicit re-raise wrapper: the wrapped call's
// failure is forwarded through the enclosing function's error path.
func (a *exprAnalyser) propagate(id ast.ExprID, span source.Span) types.TypeID {
	data, _ := a.b.Exprs.Unary(id)
	childType := a.analyse(&data.Child, NoExpectation())

	call, ok := a.callTarget(data.Child)
	var info CallInfo
	if ok {
		info, _ = a.res.CallAt(call)
	}
	if !ok || !info.Prone {
		diag.ReportError(a.reporter, diag.ErrCannotPropagate, span,
			"nothing to propagate: the expression cannot fail").Emit()
		return childType
	}

	encl := a.table.Function(a.fn)
	switch {
	case a.table.DeclaresFailure(a.fn):
		if !a.errorAssignable(info.ErrorType, encl.Error) {
			diag.ReportError(a.reporter, diag.ErrIncompatibleError, span,
				fmt.Sprintf("callee fails with %s, which cannot flow into the declared %s",
					a.table.Types.String(info.ErrorType), a.table.Types.String(encl.Error))).Emit()
		}
	case encl.Initializer:
		a.res.MarkFnErrorProne(a.fn)
	default:
		diag.ReportError(a.reporter, diag.ErrCannotPropagate, span,
			"enclosing function declares no failure path to propagate into").Emit()
		return childType
	}
	a.res.SetHandled(call, HandlePropagate)
	return childType
}

// errorAssignable reports whether a failure of type from may flow into
// an error slot of type to.
func (a *exprAnalyser) errorAssignable(from, to types.TypeID) bool {
	if from == to {
		return true
	}
	fromCls, okFrom := a.table.ClassByType(from)
	toCls, okTo := a.table.ClassByType(to)
	return okFrom && okTo && a.table.IsSubclassOf(fromCls, toCls)
}

// verifyErrorsHandled is the verification hook run once per function
// after type analysis: every error-prone call must by now be locally
// handled or propagated.
func (a *exprAnalyser) verifyErrorsHandled() {
	for _, id := range a.res.FunctionExprs(a.fn) {
		e := a.b.Exprs.Get(id)
		if e == nil || !e.Kind.IsCallShaped() {
			continue
		}
		info, ok := a.res.CallAt(id)
		if !ok || !info.Prone {
			continue
		}
		if _, handled := a.res.HandledAt(id); handled {
			continue
		}
		diag.ReportError(a.reporter, diag.ErrUnhandledCall, e.Span,
			"call may fail but the error is neither handled nor propagated").
			WithNote(e.Span, "bind it with try, test it in a conditional assignment, or re-raise it").
			Emit()
	}
}
