package serdes

// typedViewConstructors is the shared, ordered table of view constructors
// the default host-object codec agrees on with its decode-side
// counterpart. The constructor index is this table's position; index
// len(typedViewConstructors) is the "raw byte wrapper" extra slot for a
// bare buffer with no view on top.
var typedViewConstructors = []TypedViewKind{
	ViewInt8,
	ViewUint8,
	ViewUint8Clamped,
	ViewInt16,
	ViewUint16,
	ViewInt32,
	ViewUint32,
	ViewFloat32,
	ViewFloat64,
	ViewDataView,
}

// rawBufferConstructorIndex is the extra slot past the typed-view table,
// used for a *ByteBuffer with no view wrapping it. ArrayBuffer and
// SharedArrayBuffer both land in this same slot: on the wire there is
// nothing distinguishing "shared" from "ordinary" once a bare buffer is
// routed through the host-object path, since sharing is purely a
// decode-side handle-management concern and this codec always allocates a
// fresh buffer on read.
var rawBufferConstructorIndex = len(typedViewConstructors)

// DefaultHostObjectCodec is a default host-object delegate: it rounds-trips
// *TypedView and bare *ByteBuffer values via a payload shaped as varint
// constructor-index, varint byte-length, then raw bytes. It implements both
// EncoderDelegate and DecoderDelegate. Encoder.WriteValue always writes a
// bare *ByteBuffer through the core ByteBuffer tag, so the *ByteBuffer case
// of WriteHostObject runs only when WriteHostObject is called directly.
//
// Registering it only makes sense together with
// Encoder.SetTreatTypedViewsAsHostObjects(true): otherwise typed views
// always take the core TypedView path, and this delegate is only reached
// for values nothing else recognizes.
type DefaultHostObjectCodec struct{}

// WriteHostObject implements EncoderDelegate. It is only equipped to
// handle *TypedView and *ByteBuffer; any other value is a plain
// "could not be cloned" failure, since this delegate makes no claim to be
// a general-purpose extension point.
func (DefaultHostObjectCodec) WriteHostObject(e *Encoder, v Value) error {
	switch x := v.(type) {
	case *TypedView:
		idx := -1
		for i, k := range typedViewConstructors {
			if k == x.Kind {
				idx = i
				break
			}
		}
		if idx < 0 {
			return newCannotCloneError(v)
		}
		data := x.Buffer.Data[x.ByteOffset : x.ByteOffset+x.ByteLength]
		e.WriteUint32(uint32(idx))
		e.WriteUint32(uint32(len(data)))
		e.WriteRawBytes(data)
		return nil
	case *ByteBuffer:
		e.WriteUint32(uint32(rawBufferConstructorIndex))
		e.WriteUint32(uint32(len(x.Data)))
		e.WriteRawBytes(x.Data)
		return nil
	default:
		return newCannotCloneError(v)
	}
}

// DataCloneError implements EncoderDelegate by constructing the plain
// CloneError message verbatim; this delegate has no richer error domain of
// its own to route through.
func (DefaultHostObjectCodec) DataCloneError(message string) error {
	return newCloneError(message)
}

// ReadHostObject implements DecoderDelegate, the inverse of
// WriteHostObject. If the raw-bytes region starts at an offset in the
// input that isn't a multiple of the constructor's element size, it is
// copied into a freshly allocated (always machine-aligned) buffer before
// the view is constructed over it; otherwise the decoded view aliases the
// input directly, avoiding a copy.
func (DefaultHostObjectCodec) ReadHostObject(d *Decoder) (Value, error) {
	idx, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	length, err := d.ReadUint32()
	if err != nil {
		return nil, err
	}
	start := d.Pos()
	raw, err := d.ReadRawBytes(int(length))
	if err != nil {
		return nil, err
	}
	if int(idx) == rawBufferConstructorIndex {
		data := make([]byte, len(raw))
		copy(data, raw)
		return NewByteBuffer(data), nil
	}
	if int(idx) >= len(typedViewConstructors) {
		return nil, newDeserializationError("unknown host-object constructor index %d", idx)
	}
	kind := typedViewConstructors[idx]
	elemSize := kind.elementSize()
	var data []byte
	if elemSize > 1 && start%elemSize != 0 {
		data = make([]byte, len(raw))
		copy(data, raw)
	} else {
		data = raw
	}
	buf := NewByteBuffer(data)
	return &TypedView{Kind: kind, Buffer: buf, ByteOffset: 0, ByteLength: uint32(len(data))}, nil
}
