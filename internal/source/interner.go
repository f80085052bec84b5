package source

// StringID is a handle to an interned string.
type StringID uint32

// NoStringID is the absent-string sentinel; it maps to the empty string.
const NoStringID StringID = 0

// Interner deduplicates strings and hands out stable StringIDs.
// Identifiers in the source language are emoji sequences, so interning
// avoids repeated multi-byte comparisons throughout analysis.
type Interner struct {
	byID  []string
	index map[string]StringID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": 0},
	}
}

// Intern returns the ID for s, allocating one if the string is new.
func (in *Interner) Intern(s string) StringID {
	if id, ok := in.index[s]; ok {
		return id
	}
	// Copy so the interner does not pin the caller's backing buffer.
	cpy := string([]byte(s))
	id := StringID(len(in.byID))
	in.byID = append(in.byID, cpy)
	in.index[cpy] = id
	return id
}

// InternBytes interns a byte slice without the caller converting first.
func (in *Interner) InternBytes(b []byte) StringID {
	return in.Intern(string(b))
}

// Lookup resolves an ID back to its string.
func (in *Interner) Lookup(id StringID) (string, bool) {
	if !in.Has(id) {
		return "", false
	}
	return in.byID[id], true
}

// MustLookup resolves an ID and panics on an invalid handle. Invalid
// handles can only be produced by compiler bugs, never by user input.
func (in *Interner) MustLookup(id StringID) string {
	s, ok := in.Lookup(id)
	if !ok {
		panic("invalid string ID")
	}
	return s
}

func (in *Interner) Has(id StringID) bool {
	return int(id) < len(in.byID)
}

func (in *Interner) Len() int {
	return len(in.byID)
}

// All returns the interned strings in allocation order, index 0 being the
// empty string for NoStringID. The slice is read-only.
func (in *Interner) All() []string {
	return in.byID
}
