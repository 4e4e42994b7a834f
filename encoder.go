package serdes

import (
	"encoding/binary"
	"math"
	"reflect"
	"unicode/utf16"
)

// EncoderDelegate is the extensibility hook an Encoder consults for any
// value the core format cannot represent directly: anything that is not
// one of the concrete types listed on Value, once typed views are excluded
// by SetTreatTypedViewsAsHostObjects.
// A value handled by the delegate is still routed through the identity
// map like any other composite, so it must be a valid Go map key — a
// pointer type, as every built-in composite in this package is.
type EncoderDelegate interface {
	// WriteHostObject is called after the Encoder has already written the
	// HostObject tag; the delegate writes its own payload using the
	// Encoder's low-level primitives (WriteUint32, WriteUint64, WriteDouble,
	// WriteRawBytes) or by recursing into WriteValue.
	WriteHostObject(e *Encoder, v Value) error
	// DataCloneError constructs the error WriteValue should return for a
	// value the core rejected. message is already fully formed (it follows
	// the wire format's own templates); delegates typically just wrap it.
	DataCloneError(message string) error
}

// EncodeStats reports counters an Encoder already maintains for its own
// purposes (alignment, identity tracking), exposed for diagnostics.
type EncodeStats struct {
	BytesWritten      int
	CompositesWritten int
	BackReferences    int
	TypedViewsWritten int
}

// Encoder traverses a value graph and emits the HTML Structured Clone wire
// format. It is not safe for concurrent use; one instance belongs to one
// caller.
type Encoder struct {
	buf       *encbuf
	identity  *identityMap
	transfers *byteBufferTransferMap
	delegate  EncoderDelegate

	treatTypedViewsAsHostObjects bool
	headerWritten                bool

	stats EncodeStats
}

// NewEncoder returns an Encoder with no delegate and an empty identity map.
func NewEncoder() *Encoder {
	return &Encoder{
		buf:       newEncbuf(),
		identity:  newIdentityMap(),
		transfers: newByteBufferTransferMap(),
	}
}

// SetHostObjectDelegate registers the delegate consulted for values the
// core format cannot represent. Returns e for chaining.
func (e *Encoder) SetHostObjectDelegate(delegate EncoderDelegate) *Encoder {
	e.delegate = delegate
	return e
}

// SetTreatTypedViewsAsHostObjects controls whether *TypedView values take
// the core TypedView path (the default) or are deferred to the
// host-object delegate. Returns e for chaining.
func (e *Encoder) SetTreatTypedViewsAsHostObjects(flag bool) *Encoder {
	e.treatTypedViewsAsHostObjects = flag
	return e
}

// TransferByteBuffer registers buf under id so that writing buf emits
// ByteBufferTransfer rather than copying its contents inline. It fails if
// buf is already registered. Must be called before the WriteValue call
// that would otherwise serialize buf inline.
func (e *Encoder) TransferByteBuffer(id uint32, buf *ByteBuffer) error {
	return e.transfers.register(id, buf)
}

// WriteHeader emits the Version tag and the wire format version this
// package writes. It must be called exactly once, before any WriteValue.
func (e *Encoder) WriteHeader() error {
	if e.headerWritten {
		return newCloneError("WriteHeader called more than once")
	}
	e.buf.WriteTag(tagVersion)
	e.buf.WriteVarint(wireFormatVersion)
	e.headerWritten = true
	return nil
}

// Release returns the accumulated byte stream. The Encoder should not be
// used again afterward; the returned slice aliases the Encoder's internal
// buffer.
func (e *Encoder) Release() []byte {
	return e.buf.Bytes()
}

// Stats returns the counters this Encoder has accumulated so far.
func (e *Encoder) Stats() EncodeStats {
	s := e.stats
	s.BytesWritten = e.buf.Len()
	return s
}

// WriteUint32 writes v as a varint, with no tag. Exposed for host-object
// delegates that need the same low-level primitive the core codec uses.
func (e *Encoder) WriteUint32(v uint32) {
	e.buf.WriteVarint(uint64(v))
}

// WriteUint64 writes the 64-bit value formed by (hi<<32)|lo as a single
// varint, with no tag.
func (e *Encoder) WriteUint64(hi, lo uint32) {
	e.buf.WriteVarint(uint64(hi)<<32 | uint64(lo))
}

// WriteDouble writes v as 8 raw bytes in host (little-endian) byte order,
// with no tag.
func (e *Encoder) WriteDouble(v float64) {
	e.writeRawDouble(v)
}

// WriteRawBytes writes b verbatim, with no length prefix and no tag.
func (e *Encoder) WriteRawBytes(b []byte) {
	e.buf.Write(b)
}

func (e *Encoder) writeRawDouble(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf.Write(b[:])
}

// WriteValue emits one value. It may be called repeatedly; later calls on
// the same Encoder share the identity map, so a composite written in an
// earlier call is a back-reference the second time.
func (e *Encoder) WriteValue(v Value) error {
	switch x := v.(type) {
	case nil:
		e.buf.WriteTag(tagNull)
		return nil
	case undefinedType:
		e.buf.WriteTag(tagUndefined)
		return nil
	case holeType:
		e.buf.WriteTag(tagTheHole)
		return nil
	case bool:
		if x {
			e.buf.WriteTag(tagTrue)
		} else {
			e.buf.WriteTag(tagFalse)
		}
		return nil
	case int32:
		e.buf.WriteTag(tagInt32)
		e.buf.WriteVarint(zigzagEncode(int64(x)))
		return nil
	case uint32:
		e.buf.WriteTag(tagUint32)
		e.buf.WriteVarint(uint64(x))
		return nil
	case float64:
		e.buf.WriteTag(tagDouble)
		e.writeRawDouble(x)
		return nil
	case string:
		return e.writeString(x)
	case *Record:
		return e.writeComposite(x, e.bodyRecord(x))
	case *Array:
		if x.Dense {
			return e.writeComposite(x, e.bodyDenseArray(x))
		}
		return e.writeComposite(x, e.bodySparseArray(x))
	case *Date:
		return e.writeComposite(x, func() error {
			e.buf.WriteTag(tagDate)
			e.writeRawDouble(x.Millis)
			return nil
		})
	case *BooleanObject:
		return e.writeComposite(x, func() error {
			if x.Value {
				e.buf.WriteTag(tagBooleanObjectTrue)
			} else {
				e.buf.WriteTag(tagBooleanObjectFalse)
			}
			return nil
		})
	case *NumberObject:
		return e.writeComposite(x, func() error {
			e.buf.WriteTag(tagNumberObject)
			e.writeRawDouble(x.Value)
			return nil
		})
	case *StringObject:
		return e.writeComposite(x, func() error {
			e.buf.WriteTag(tagStringObject)
			return e.writeString(x.Value)
		})
	case *RegExp:
		return e.writeComposite(x, func() error {
			e.buf.WriteTag(tagRegExp)
			if err := e.writeString(x.Source); err != nil {
				return err
			}
			e.buf.WriteVarint(uint64(x.Flags))
			return nil
		})
	case *Map:
		return e.writeComposite(x, e.bodyMap(x))
	case *Set:
		return e.writeComposite(x, e.bodySet(x))
	case *ByteBuffer:
		return e.writeComposite(x, func() error { return e.writeByteBuffer(x) })
	case *TypedView:
		return e.writeTypedView(x)
	default:
		return e.writeHostObjectOrFail(v)
	}
}

// writeComposite looks the key up in the identity map: a hit emits
// ObjectReference, a miss assigns the next id and then runs body, which
// writes the composite's own tag and contents. The id is assigned before
// body runs, so that a cycle reached from inside body resolves to this
// same id.
func (e *Encoder) writeComposite(key interface{}, body func() error) error {
	id, isNew := e.identity.lookupOrAssign(key)
	if !isNew {
		e.buf.WriteTag(tagObjectReference)
		e.buf.WriteVarint(uint64(id))
		e.stats.BackReferences++
		return nil
	}
	e.stats.CompositesWritten++
	return body()
}

func (e *Encoder) bodyRecord(r *Record) func() error {
	return func() error {
		e.buf.WriteTag(tagRecordBegin)
		for i, k := range r.Keys {
			if err := e.writeString(k); err != nil {
				return err
			}
			if err := e.WriteValue(r.Values[i]); err != nil {
				return err
			}
		}
		e.buf.WriteTag(tagRecordEnd)
		e.buf.WriteVarint(uint64(r.Len()))
		return nil
	}
}

func (e *Encoder) writeProperties(props *Record) (int, error) {
	if props == nil {
		return 0, nil
	}
	for i, k := range props.Keys {
		if err := e.writeString(k); err != nil {
			return 0, err
		}
		if err := e.WriteValue(props.Values[i]); err != nil {
			return 0, err
		}
	}
	return props.Len(), nil
}

func (e *Encoder) bodyDenseArray(a *Array) func() error {
	return func() error {
		e.buf.WriteTag(tagDenseArrayBegin)
		e.buf.WriteVarint(uint64(a.Length))
		for _, el := range a.Elements {
			if err := e.WriteValue(el); err != nil {
				return err
			}
		}
		propCount, err := e.writeProperties(a.Properties)
		if err != nil {
			return err
		}
		e.buf.WriteTag(tagDenseArrayEnd)
		e.buf.WriteVarint(uint64(propCount))
		e.buf.WriteVarint(uint64(a.Length))
		return nil
	}
}

func (e *Encoder) bodySparseArray(a *Array) func() error {
	return func() error {
		e.buf.WriteTag(tagSparseArrayBegin)
		e.buf.WriteVarint(uint64(a.Length))
		pairCount := 0
		for i, ix := range a.Indices {
			if err := e.WriteValue(ix); err != nil {
				return err
			}
			if err := e.WriteValue(a.Values[i]); err != nil {
				return err
			}
			pairCount++
		}
		n, err := e.writeProperties(a.Properties)
		if err != nil {
			return err
		}
		pairCount += n
		e.buf.WriteTag(tagSparseArrayEnd)
		e.buf.WriteVarint(uint64(pairCount))
		e.buf.WriteVarint(uint64(a.Length))
		return nil
	}
}

func (e *Encoder) bodyMap(m *Map) func() error {
	return func() error {
		e.buf.WriteTag(tagMapBegin)
		for i, k := range m.Keys {
			if err := e.WriteValue(k); err != nil {
				return err
			}
			if err := e.WriteValue(m.Values[i]); err != nil {
				return err
			}
		}
		e.buf.WriteTag(tagMapEnd)
		e.buf.WriteVarint(uint64(m.Len()))
		return nil
	}
}

func (e *Encoder) bodySet(s *Set) func() error {
	return func() error {
		e.buf.WriteTag(tagSetBegin)
		for _, v := range s.Values {
			if err := e.WriteValue(v); err != nil {
				return err
			}
		}
		e.buf.WriteTag(tagSetEnd)
		e.buf.WriteVarint(uint64(s.Len()))
		return nil
	}
}

// writeByteBuffer emits buf's tag and payload. It is called from within
// writeComposite's body, so buf's own id has already been assigned.
func (e *Encoder) writeByteBuffer(buf *ByteBuffer) error {
	if id, ok := e.transfers.lookupByBuffer(buf); ok {
		e.buf.WriteTag(tagByteBufferTransfer)
		e.buf.WriteVarint(uint64(id))
		return nil
	}
	e.buf.WriteTag(tagByteBuffer)
	e.buf.WriteVarint(uint64(len(buf.Data)))
	e.buf.Write(buf.Data)
	return nil
}

// writeTypedView implements the "emit the buffer, then emit the view"
// convention: unlike every other composite, a TypedView's own id is
// assigned *after* recursing into its buffer, since the buffer cannot
// reference the view back and so carries no cycle risk. A plain
// writeComposite call would assign the view's id too early.
func (e *Encoder) writeTypedView(v *TypedView) error {
	if e.treatTypedViewsAsHostObjects {
		return e.writeHostObjectOrFail(v)
	}
	if id, ok := e.identity.lookup(v); ok {
		e.buf.WriteTag(tagObjectReference)
		e.buf.WriteVarint(uint64(id))
		e.stats.BackReferences++
		return nil
	}
	if err := e.WriteValue(v.Buffer); err != nil {
		return err
	}
	e.identity.assign(v)
	e.stats.CompositesWritten++
	e.stats.TypedViewsWritten++
	e.buf.WriteTag(tagTypedView)
	e.buf.WriteByte(byte(v.Kind))
	e.buf.WriteVarint(uint64(v.ByteOffset))
	e.buf.WriteVarint(uint64(v.ByteLength))
	return nil
}

// writeString implements the string encoding rule: latin-1 content goes
// out as OneByteString; anything else goes out as TwoByteString, in
// UTF-16LE, aligned to an even offset by a leading Padding byte if
// necessary. Strings carry no identity, so this is never routed through
// the identity map.
func (e *Encoder) writeString(s string) error {
	runes := []rune(s)
	latin1 := true
	for _, r := range runes {
		if r < 0 || r > 0xFF {
			latin1 = false
			break
		}
	}
	if latin1 {
		e.buf.WriteTag(tagOneByteString)
		e.buf.WriteVarint(uint64(len(runes)))
		for _, r := range runes {
			e.buf.WriteByte(byte(r))
		}
		return nil
	}
	units := utf16.Encode(runes)
	byteLen := len(units) * 2
	provisional := e.buf.Len() + 1 + varintLen(uint64(byteLen))
	if provisional%2 != 0 {
		e.buf.WriteTag(tagPadding)
	}
	e.buf.WriteTag(tagTwoByteString)
	e.buf.WriteVarint(uint64(byteLen))
	for _, u := range units {
		e.buf.WriteByte(byte(u))
		e.buf.WriteByte(byte(u >> 8))
	}
	return nil
}

// writeHostObjectOrFail handles the tail of value dispatch: an opaque Go
// func always fails outright (an opaque callable is never offered to a
// delegate), everything else is offered to the registered delegate, and
// anything left over fails with the wire format's own message templates.
func (e *Encoder) writeHostObjectOrFail(v Value) error {
	if reflect.ValueOf(v).Kind() == reflect.Func {
		return e.cloneError(v)
	}
	if e.delegate == nil {
		return newUnknownHostObjectError(hostObjectClassTag(v))
	}
	return e.writeComposite(v, func() error {
		e.buf.WriteTag(tagHostObject)
		return e.delegate.WriteHostObject(e, v)
	})
}

// cloneError constructs the encoder's "could not be cloned" failure,
// routed through the delegate's DataCloneError when one is registered so
// that callers embedding this codec in a larger error domain get their own
// error type back.
func (e *Encoder) cloneError(v Value) error {
	msg := newCannotCloneError(v).Error()
	if e.delegate != nil {
		return e.delegate.DataCloneError(msg)
	}
	return newCloneError(msg)
}

// hostObjectClassTag produces a short label for the "Unknown host object
// type" error message when no delegate is registered to say anything more
// specific.
func hostObjectClassTag(v Value) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
