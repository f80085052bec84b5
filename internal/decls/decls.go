// Package decls holds the declaration table of a compilation unit:
// classes, their member sets and function signatures, including each
// callee's failure contract. Expression analysis consults it through
// name lookups; it is fully populated before analysis begins and
// read-only afterwards.
package decls

import (
	"fmt"

	"fortio.org/safecast"

	"ember/internal/ast"
	"ember/internal/source"
	"ember/internal/types"
)

type (
	ClassID    uint32
	FunctionID uint32
)

const (
	NoClassID    ClassID    = 0
	NoFunctionID FunctionID = 0
)

func (id ClassID) IsValid() bool    { return id != NoClassID }
func (id FunctionID) IsValid() bool { return id != NoFunctionID }

// Param is a single parameter of a function signature. Escaping marks
// parameters whose argument the callee takes ownership of; the rest are
// borrowed for the duration of the call.
type Param struct {
	Name     source.StringID
	Type     types.TypeID
	Escaping bool
}

// Function describes a callable declaration. Error is the type carried
// on the failure path, or the no-return sentinel type when the function
// cannot fail.
type Function struct {
	Name        source.StringID
	Mood        ast.Mood
	Owner       ClassID // NoClassID for free functions
	Params      []Param
	Return      types.TypeID
	Error       types.TypeID
	Initializer bool
	Body        ast.StmtID
}

// Class describes a class declaration and its member sets.
type Class struct {
	Name         source.StringID
	Super        ClassID // NoClassID for root classes
	Type         types.TypeID
	Methods      []FunctionID
	Initializers []FunctionID
}

// Table is the declaration table of one compilation unit.
type Table struct {
	Types     *types.Interner
	classes   []Class
	functions []Function
	free      map[freeKey]FunctionID

	noError types.TypeID
}

type freeKey struct {
	name source.StringID
	mood ast.Mood
}

func NewTable(interner *types.Interner) *Table {
	if interner == nil {
		interner = types.NewInterner()
	}
	return &Table{
		Types:     interner,
		classes:   make([]Class, 1), // index 0 reserved for NoClassID
		functions: make([]Function, 1),
		free:      make(map[freeKey]FunctionID),
		noError:   interner.Builtins().NoReturn,
	}
}

// NoError returns the sentinel error type of functions that cannot fail.
func (t *Table) NoError() types.TypeID {
	return t.noError
}

// NewClass registers a class and interns its instance type.
func (t *Table) NewClass(name source.StringID, super ClassID) ClassID {
	lenClasses, err := safecast.Conv[uint32](len(t.classes))
	if err != nil {
		panic(fmt.Errorf("len(classes) overflow: %w", err))
	}
	id := ClassID(lenClasses)
	t.classes = append(t.classes, Class{
		Name:  name,
		Super: super,
		Type:  t.Types.Intern(types.MakeClass(uint32(id))),
	})
	return id
}

func (t *Table) Class(id ClassID) *Class {
	if id == NoClassID || int(id) >= len(t.classes) {
		return nil
	}
	return &t.classes[id]
}

// ClassByType maps an instance type back to its class.
func (t *Table) ClassByType(id types.TypeID) (ClassID, bool) {
	desc, ok := t.Types.Lookup(id)
	if !ok || desc.Kind != types.KindClass {
		return NoClassID, false
	}
	cid := ClassID(desc.Ref)
	if t.Class(cid) == nil {
		return NoClassID, false
	}
	return cid, true
}

// NewFunction registers a function. An invalid error type is normalized
// to the no-error sentinel.
func (t *Table) NewFunction(fn Function) FunctionID {
	if fn.Error == types.NoTypeID {
		fn.Error = t.noError
	}
	lenFunctions, err := safecast.Conv[uint32](len(t.functions))
	if err != nil {
		panic(fmt.Errorf("len(functions) overflow: %w", err))
	}
	id := FunctionID(lenFunctions)
	t.functions = append(t.functions, fn)
	switch {
	case !fn.Owner.IsValid():
		t.free[freeKey{name: fn.Name, mood: fn.Mood}] = id
	case fn.Initializer:
		cls := t.Class(fn.Owner)
		cls.Initializers = append(cls.Initializers, id)
	default:
		cls := t.Class(fn.Owner)
		cls.Methods = append(cls.Methods, id)
	}
	return id
}

func (t *Table) Function(id FunctionID) *Function {
	if id == NoFunctionID || int(id) >= len(t.functions) {
		return nil
	}
	return &t.functions[id]
}

// Len returns the number of registered functions, NoFunctionID excluded.
func (t *Table) Len() int {
	return len(t.functions) - 1
}

// Functions returns all valid function IDs in declaration order.
func (t *Table) Functions() []FunctionID {
	out := make([]FunctionID, 0, len(t.functions)-1)
	for i := 1; i < len(t.functions); i++ {
		out = append(out, FunctionID(i))
	}
	return out
}

// Classes returns all valid class IDs in declaration order.
func (t *Table) Classes() []ClassID {
	out := make([]ClassID, 0, len(t.classes)-1)
	for i := 1; i < len(t.classes); i++ {
		out = append(out, ClassID(i))
	}
	return out
}

// DeclaresFailure answers the failure-contract query of a callee: does
// the signature declare an error path?
func (t *Table) DeclaresFailure(id FunctionID) bool {
	fn := t.Function(id)
	return fn != nil && fn.Error != t.noError
}

// FindFree looks up a free function by name and mood.
func (t *Table) FindFree(name source.StringID, mood ast.Mood) (FunctionID, bool) {
	id, ok := t.free[freeKey{name: name, mood: mood}]
	return id, ok
}

// FindMethod looks up a method by name and mood on cls or any supertype.
func (t *Table) FindMethod(cls ClassID, name source.StringID, mood ast.Mood) (FunctionID, bool) {
	for cur := cls; cur.IsValid(); cur = t.Class(cur).Super {
		for _, fid := range t.Class(cur).Methods {
			fn := t.Function(fid)
			if fn.Name == name && fn.Mood == mood {
				return fid, true
			}
		}
	}
	return NoFunctionID, false
}

// FindInitializer looks up an initializer declared directly on cls.
// Initializers are not inherited; delegation must target the immediate
// supertype's own member set.
func (t *Table) FindInitializer(cls ClassID, name source.StringID) (FunctionID, bool) {
	c := t.Class(cls)
	if c == nil {
		return NoFunctionID, false
	}
	for _, fid := range c.Initializers {
		if t.Function(fid).Name == name {
			return fid, true
		}
	}
	return NoFunctionID, false
}

// FindClass looks up a class by name.
func (t *Table) FindClass(name source.StringID) (ClassID, bool) {
	for i := 1; i < len(t.classes); i++ {
		if t.classes[i].Name == name {
			return ClassID(i), true
		}
	}
	return NoClassID, false
}

// IsSubclassOf reports whether sub is cls or a transitive subclass.
func (t *Table) IsSubclassOf(sub, cls ClassID) bool {
	for cur := sub; cur.IsValid(); cur = t.Class(cur).Super {
		if cur == cls {
			return true
		}
	}
	return false
}
