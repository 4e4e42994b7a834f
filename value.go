package serdes

// Value is the universal type for a node in a structured-clone graph. It
// is populated exclusively with: nil (Null), Undefined, TheHole, bool,
// int32, uint32, float64, string, *Date, *RegExp, *BooleanObject,
// *NumberObject, *StringObject, *Record, *Array, *Map, *Set, *ByteBuffer,
// *TypedView, or a value recognized by a registered host-object delegate.
//
// Go's type system has no closed union for this, so Value is plain any;
// the Encoder's dispatch (see encoder.go) is the actual definition of
// "what a Value may be".
type Value = interface{}

// undefinedType is the concrete type of the Undefined sentinel.
type undefinedType struct{}

// Undefined is the sentinel Value corresponding to the Undefined tag.
var Undefined Value = undefinedType{}

// holeType is the concrete type of the TheHole sentinel.
type holeType struct{}

// TheHole is the sentinel Value for a gap in a dense array.
var TheHole Value = holeType{}

// Date represents milliseconds since the Unix epoch, encoded with the
// Date tag. Like every other composite, a Date has identity: two
// occurrences of the same *Date pointer in a graph round-trip as one
// decoded Date with two references to it, while two structurally equal
// but distinct *Date values round-trip as two independent Dates. A plain
// float64 instead encodes as Double, which has no identity.
type Date struct {
	Millis float64
}

// BooleanObject is a boxed boolean, encoded with the BooleanObject tag
// and carrying pointer identity like Date. A plain bool instead encodes
// as True/False.
type BooleanObject struct {
	Value bool
}

// NumberObject is a boxed number, encoded with the NumberObject tag and
// carrying pointer identity like Date. A plain float64 instead encodes
// as Double.
type NumberObject struct {
	Value float64
}

// StringObject is a boxed string, encoded with the StringObject tag. A
// plain string instead encodes as one of the string tags.
type StringObject struct {
	Value string
}

// RegExp is a regular expression literal: its source text and flags.
type RegExp struct {
	Source string
	Flags  RegExpFlags
}

// Record is an ordered list of string-keyed properties. Ordering is
// significant: the encoder emits keys in the order stored here, and
// determinism is only guaranteed for a fixed insertion order. Record's
// identity (for cycle and shared-subtree detection) is the *Record
// pointer.
type Record struct {
	Keys   []string
	Values []Value
}

// NewRecord returns an empty Record.
func NewRecord() *Record { return &Record{} }

// Set appends a key/value pair. It does not check for duplicate keys;
// the wire format has no such constraint, and neither does this package.
func (r *Record) Set(key string, v Value) {
	r.Keys = append(r.Keys, key)
	r.Values = append(r.Values, v)
}

// Len returns the number of properties.
func (r *Record) Len() int { return len(r.Keys) }

// Array is a JS array value: either dense (every index from 0..Length-1
// is represented positionally, with TheHole for gaps) or sparse (only
// present indices appear, as key/value pairs). Either representation may
// additionally carry non-index string-keyed Properties.
type Array struct {
	Length     uint32
	Dense      bool
	Elements   []Value  // valid length == Length when Dense; unused otherwise
	Indices    []uint32 // sparse index list, parallel to Values; unused when Dense
	Values     []Value  // sparse value list, parallel to Indices; unused when Dense
	Properties *Record  // non-index string-keyed properties, may be nil
}

// NewDenseArray returns a dense array of the given length, with every
// element initialized to TheHole.
func NewDenseArray(length uint32) *Array {
	elems := make([]Value, length)
	for i := range elems {
		elems[i] = TheHole
	}
	return &Array{Length: length, Dense: true, Elements: elems}
}

// NewSparseArray returns an empty sparse array of the given length.
func NewSparseArray(length uint32) *Array {
	return &Array{Length: length, Dense: false}
}

// SetSparse records value v at index ix of a sparse array.
func (a *Array) SetSparse(ix uint32, v Value) {
	a.Indices = append(a.Indices, ix)
	a.Values = append(a.Values, v)
}

// properties returns a to-be-iterated Record for the array's non-index
// properties, never nil.
func (a *Array) properties() *Record {
	if a.Properties == nil {
		a.Properties = NewRecord()
	}
	return a.Properties
}

// Map is an ordered key/value map, encoded with the Map tag.
type Map struct {
	Keys   []Value
	Values []Value
}

// NewMap returns an empty Map.
func NewMap() *Map { return &Map{} }

// Set appends a key/value pair.
func (m *Map) Set(key, value Value) {
	m.Keys = append(m.Keys, key)
	m.Values = append(m.Values, value)
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.Keys) }

// Set is an ordered collection of unique-by-construction values, encoded
// with the Set tag. The package does not enforce uniqueness; that is the
// caller's responsibility, matching a value graph's own conventions.
type Set struct {
	Values []Value
}

// NewSet returns an empty Set.
func NewSet() *Set { return &Set{} }

// Add appends a value.
func (s *Set) Add(v Value) { s.Values = append(s.Values, v) }

// Len returns the number of elements.
func (s *Set) Len() int { return len(s.Values) }

// ByteBuffer is a raw byte buffer, encoded with the ByteBuffer or
// ByteBufferTransfer tag depending on whether it is registered in a
// transfer map; the Encoder never writes SharedByteBuffer, though the
// Decoder accepts it. Its identity (for cycle detection, and
// for TypedView sharing) is the *ByteBuffer pointer, not its contents.
type ByteBuffer struct {
	Data []byte
}

// NewByteBuffer wraps data in a ByteBuffer. The ByteBuffer takes
// ownership of data; callers must not mutate it afterward.
func NewByteBuffer(data []byte) *ByteBuffer { return &ByteBuffer{Data: data} }

// TypedView is a typed view over a region of a ByteBuffer, encoded with
// the TypedView tag (or via the default host-object codec, see
// hostobject.go, when the Encoder's treatTypedViewsAsHostObjects flag is
// set).
type TypedView struct {
	Kind       TypedViewKind
	Buffer     *ByteBuffer
	ByteOffset uint32
	ByteLength uint32
}
