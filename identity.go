package serdes

// identityMap is the encoder side of the graph's identity map: an ordered
// mapping from a composite's identity to the 0-based id assigned at first
// visit. The key space is any rather than just Go pointers, since nothing
// here requires the keys to be pointer-identified composites, even though
// every built-in composite today happens to be one.
type identityMap struct {
	ids    map[interface{}]int
	nextID int
}

func newIdentityMap() *identityMap {
	return &identityMap{ids: make(map[interface{}]int)}
}

// lookupOrAssign returns the id associated with key, and isNew == true if
// this is the first time key has been seen (in which case a new id,
// numbered in visitation order, was just assigned).
func (m *identityMap) lookupOrAssign(key interface{}) (id int, isNew bool) {
	if id, ok := m.ids[key]; ok {
		return id, false
	}
	return m.assign(key), true
}

// lookup reports whether key has already been assigned an id, without
// assigning one if it hasn't. Used by the TypedView encoder, which must
// recurse into the underlying buffer — and let the buffer claim the next
// id — before claiming its own id, since a view's id is assigned only
// after its buffer's.
func (m *identityMap) lookup(key interface{}) (id int, ok bool) {
	id, ok = m.ids[key]
	return
}

// assign unconditionally assigns the next id to key. The caller must have
// already established (via lookup) that key has no id yet.
func (m *identityMap) assign(key interface{}) int {
	id := m.nextID
	m.ids[key] = id
	m.nextID++
	return id
}

// decodedValues is the decoder side of the identity map: an ordered
// mapping from id to the materialized value. Ids are assigned in the
// order composites are begun, via register, before their contents are
// read — this is what makes cycles decodable: a composite that refers to
// itself resolves against its own not-yet-fully-populated placeholder.
type decodedValues struct {
	values []Value
}

// register reserves the next id and records placeholder v (typically the
// zero-value shell of the composite about to be decoded) under it. The
// returned id is stable even though v is overwritten later via set.
func (d *decodedValues) register(v Value) int {
	id := len(d.values)
	d.values = append(d.values, v)
	return id
}

// set overwrites the value registered under id, once it has been fully
// decoded. Most composites don't need this — the placeholder passed to
// register is already the final pointer, and its fields are filled in
// after registration — but host objects, whose value only exists once
// the delegate has returned it, are registered as nil and filled in here.
func (d *decodedValues) set(id int, v Value) {
	d.values[id] = v
}

// get returns the value registered under id, and ok == false if id was
// never registered (an ObjectReference to an id that doesn't exist).
func (d *decodedValues) get(id int) (Value, bool) {
	if id < 0 || id >= len(d.values) {
		return nil, false
	}
	return d.values[id], true
}

// byteBufferTransferMap is shared by both Encoder and Decoder: a mapping
// from a caller-chosen 32-bit transfer id to a *ByteBuffer handle.
type byteBufferTransferMap struct {
	byID     map[uint32]*ByteBuffer
	byBuffer map[*ByteBuffer]uint32
}

func newByteBufferTransferMap() *byteBufferTransferMap {
	return &byteBufferTransferMap{
		byID:     make(map[uint32]*ByteBuffer),
		byBuffer: make(map[*ByteBuffer]uint32),
	}
}

// register associates id with buf. It fails if buf is already registered
// under a different (or the same) id.
func (m *byteBufferTransferMap) register(id uint32, buf *ByteBuffer) error {
	if _, ok := m.byBuffer[buf]; ok {
		return newCloneError("byte buffer is already registered for transfer")
	}
	m.byID[id] = buf
	m.byBuffer[buf] = id
	return nil
}

func (m *byteBufferTransferMap) lookupByBuffer(buf *ByteBuffer) (uint32, bool) {
	id, ok := m.byBuffer[buf]
	return id, ok
}

func (m *byteBufferTransferMap) lookupByID(id uint32) (*ByteBuffer, bool) {
	buf, ok := m.byID[id]
	return buf, ok
}
