package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the primitive value types.
type Builtins struct {
	Invalid  TypeID
	NoReturn TypeID
	Bool     TypeID
	Int      TypeID
	Real     TypeID
	Byte     TypeID
	Symbol   TypeID
	String   TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
type Interner struct {
	types     []Type
	index     map[Type]TypeID
	builtins  Builtins
	callables []CallableInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[Type]TypeID, 64),
	}
	in.callables = append(in.callables, CallableInfo{}) // reserve 0 as invalid sentinel
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.NoReturn = in.Intern(Type{Kind: KindNoReturn})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Real = in.Intern(Type{Kind: KindReal})
	in.builtins.Byte = in.Intern(Type{Kind: KindByte})
	in.builtins.Symbol = in.Intern(Type{Kind: KindSymbol})
	in.builtins.String = in.Intern(Type{Kind: KindString})
	return in
}

func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// InternCallable registers a callable signature and returns its TypeID.
// Signatures are not structurally deduplicated; every call site that
// spells out a callable type gets its own info record.
func (in *Interner) InternCallable(params []TypeID, ret TypeID) TypeID {
	lenCallables, err := safecast.Conv[uint32](len(in.callables))
	if err != nil {
		panic(fmt.Errorf("len(callables) overflow: %w", err))
	}
	ref := lenCallables
	in.callables = append(in.callables, CallableInfo{Params: params, Return: ret})
	return in.internRaw(Type{Kind: KindCallable, Ref: ref})
}

// Callable returns the signature info backing a callable TypeID.
func (in *Interner) Callable(id TypeID) (CallableInfo, bool) {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindCallable || t.Ref == 0 || int(t.Ref) >= len(in.callables) {
		return CallableInfo{}, false
	}
	return in.callables[t.Ref], true
}

// IsManaged reports whether values of the type are heap-allocated and
// reference-counted by the generated program. Memory-flow analysis only
// tracks managed values; everything else is copied by value.
func (in *Interner) IsManaged(id TypeID) bool {
	t, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch t.Kind {
	case KindClass, KindProtocol, KindBox, KindCallable, KindString:
		return true
	case KindOptional:
		return in.IsManaged(t.Elem)
	default:
		return false
	}
}

// Snapshot returns the interned descriptors and callable infos in ID
// order, for serialization.
func (in *Interner) Snapshot() ([]Type, []CallableInfo) {
	return in.types, in.callables
}

// Restore rebuilds an interner from a snapshot. The snapshot must start
// with the builtin seed NewInterner lays down; anything else means the
// data came from an incompatible producer.
func Restore(snapshot []Type, callables []CallableInfo) (*Interner, error) {
	seed := NewInterner()
	if len(snapshot) < len(seed.types) {
		return nil, fmt.Errorf("types: snapshot shorter than the builtin seed")
	}
	for i, t := range seed.types {
		if snapshot[i] != t {
			return nil, fmt.Errorf("types: snapshot builtin %d mismatch", i)
		}
	}
	in := &Interner{
		types:    append([]Type(nil), snapshot...),
		index:    make(map[Type]TypeID, len(snapshot)),
		builtins: seed.builtins,
	}
	for i, t := range in.types {
		if _, dup := in.index[t]; !dup {
			in.index[t] = TypeID(uint32(i))
		}
	}
	if len(callables) == 0 {
		callables = []CallableInfo{{}}
	}
	in.callables = append([]CallableInfo(nil), callables...)
	return in, nil
}

// String renders a type for diagnostics.
func (in *Interner) String(id TypeID) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<?>"
	}
	switch t.Kind {
	case KindClass:
		return fmt.Sprintf("class#%d", t.Ref)
	case KindProtocol:
		return fmt.Sprintf("protocol#%d", t.Ref)
	case KindBox:
		return "box " + in.String(t.Elem)
	case KindOptional:
		return "optional " + in.String(t.Elem)
	case KindTypeValue:
		return "type " + in.String(t.Elem)
	case KindCallable:
		info, ok := in.Callable(id)
		if !ok {
			return "callable<?>"
		}
		s := "callable("
		for i, p := range info.Params {
			if i > 0 {
				s += ", "
			}
			s += in.String(p)
		}
		return s + ") -> " + in.String(info.Return)
	default:
		return t.Kind.String()
	}
}
