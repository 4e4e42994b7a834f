package serdes

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// DecoderDelegate is the extensibility hook a Decoder consults when it
// reads the HostObject tag, or an unknown tag at a version below 13.
type DecoderDelegate interface {
	// ReadHostObject consumes the delegate's own payload (written by the
	// matching EncoderDelegate.WriteHostObject) and returns the
	// reconstructed value. The core registers the returned value in the
	// identity map under the id already reserved for it.
	ReadHostObject(d *Decoder) (Value, error)
}

// DecodeStats reports counters a Decoder already maintains for its own
// purposes, exposed for diagnostics.
type DecodeStats struct {
	TagsConsumed           int
	CompositesMaterialized int
	BytesConsumed          int
}

// Decoder parses the HTML Structured Clone wire format back into values.
// It is not safe for concurrent use; one instance belongs to one caller.
// It dispatches over the closed Value alphabet and reads from a plain
// byte-slice cursor (see decbuf.go) rather than a streaming io.Reader.
type Decoder struct {
	buf       *decbuf
	values    *decodedValues
	transfers *byteBufferTransferMap
	delegate  DecoderDelegate

	version int

	stats DecodeStats
}

// NewDecoder returns a Decoder over data. data is not mutated, and the
// Decoder's output values may alias it (e.g. *ByteBuffer.Data does not,
// since ByteBuffer materialization always copies, but strings read via
// Utf8String/OneByteString do not alias — Go strings are immutable copies
// by construction of the string() conversion).
func NewDecoder(data []byte) *Decoder {
	return &Decoder{
		buf:       newDecbuf(data),
		values:    &decodedValues{},
		transfers: newByteBufferTransferMap(),
	}
}

// SetHostObjectDelegate registers the delegate consulted for the
// HostObject tag, and for unknown tags at versions below 13. Returns d for
// chaining.
func (d *Decoder) SetHostObjectDelegate(delegate DecoderDelegate) *Decoder {
	d.delegate = delegate
	return d
}

// TransferByteBuffer registers buf under id, so that a ByteBufferTransfer
// or SharedByteBuffer tag naming id resolves to buf instead of failing.
func (d *Decoder) TransferByteBuffer(id uint32, buf *ByteBuffer) error {
	return d.transfers.register(id, buf)
}

// GetWireFormatVersion returns the version detected by ReadHeader, or 0
// (legacy) if ReadHeader found no Version tag.
func (d *Decoder) GetWireFormatVersion() int { return d.version }

// Stats returns the counters this Decoder has accumulated so far.
func (d *Decoder) Stats() DecodeStats {
	s := d.stats
	s.BytesConsumed = d.buf.Pos()
	return s
}

// Pos returns the current read offset, for host-object delegates that need
// to reason about alignment (see hostobject.go).
func (d *Decoder) Pos() int { return d.buf.Pos() }

// ReadHeader consumes a leading Version tag and records the version that
// follows, failing if it exceeds the highest version this package
// understands. If the stream is empty, or its first non-Padding tag is not
// Version, no header is consumed and the version stays at its default, 0
// (legacy) — don't consume a tag that isn't actually a header.
func (d *Decoder) ReadHeader() error {
	for {
		b, err := d.buf.PeekByte()
		if err != nil {
			return nil
		}
		if tag(b) != tagPadding {
			if tag(b) != tagVersion {
				return nil
			}
			break
		}
		if _, err := d.buf.ReadByte(); err != nil {
			return err
		}
	}
	if _, err := d.buf.ReadTag(); err != nil {
		return err
	}
	v, err := d.buf.ReadVarint()
	if err != nil {
		return err
	}
	if v > wireFormatVersion {
		return newDeserializationError("unsupported wire format version %d", v)
	}
	d.version = int(v)
	return nil
}

// ReadUint32 reads a varint and returns it as a uint32, for host-object
// delegates. It fails if the varint doesn't fit.
func (d *Decoder) ReadUint32() (uint32, error) {
	v, err := d.buf.ReadVarint()
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, newDeserializationError("uint32 value %d out of range", v)
	}
	return uint32(v), nil
}

// ReadUint64 reads a single varint and splits it into its high and low
// 32-bit halves, the inverse of Encoder.WriteUint64.
func (d *Decoder) ReadUint64() (hi, lo uint32, err error) {
	v, err := d.buf.ReadVarint()
	if err != nil {
		return 0, 0, err
	}
	return uint32(v >> 32), uint32(v), nil
}

// ReadDouble reads 8 raw bytes in host byte order, with no tag.
func (d *Decoder) ReadDouble() (float64, error) {
	return d.readRawDouble()
}

// ReadRawBytes reads n raw bytes verbatim, with no length prefix. The
// returned slice aliases the Decoder's input.
func (d *Decoder) ReadRawBytes(n int) ([]byte, error) {
	return d.buf.ReadBuf(n)
}

func (d *Decoder) readRawDouble() (float64, error) {
	raw, err := d.buf.ReadBuf(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(raw)), nil
}

// nextTag reads the next tag, transparently consuming any Padding tags in
// front of it, and any VerifyObjectCount tag along with the varint that
// follows it.
func (d *Decoder) nextTag() (tag, error) {
	for {
		t, err := d.buf.ReadTag()
		if err != nil {
			return 0, err
		}
		switch t {
		case tagPadding:
			continue
		case tagVerifyObjectCount:
			if _, err := d.buf.ReadVarint(); err != nil {
				return 0, err
			}
			continue
		default:
			d.stats.TagsConsumed++
			return t, nil
		}
	}
}

// ReadValue consumes one encoded value and returns it.
func (d *Decoder) ReadValue() (Value, error) {
	return d.readValue()
}

// readValue is readValueInner plus the typed-view interleaving rule:
// whenever the inner read produces a *ByteBuffer, the next tag is peeked,
// and if it is TypedView, the view is consumed and returned in the
// buffer's place.
func (d *Decoder) readValue() (Value, error) {
	v, err := d.readValueInner()
	if err != nil {
		return nil, err
	}
	if buf, ok := v.(*ByteBuffer); ok {
		if t, err := d.buf.PeekTag(); err == nil && t == tagTypedView {
			d.buf.ReadTag()
			return d.readTypedView(buf)
		}
	}
	return v, nil
}

func (d *Decoder) readValueInner() (Value, error) {
	t, err := d.nextTag()
	if err != nil {
		return nil, err
	}
	switch t {
	case tagTheHole:
		return TheHole, nil
	case tagUndefined:
		return Undefined, nil
	case tagNull:
		return nil, nil
	case tagTrue:
		return true, nil
	case tagFalse:
		return false, nil
	case tagInt32:
		u, err := d.buf.ReadVarint()
		if err != nil {
			return nil, err
		}
		return int32(zigzagDecode(u)), nil
	case tagUint32:
		u, err := d.buf.ReadVarint()
		if err != nil {
			return nil, err
		}
		if u > math.MaxUint32 {
			return nil, newDeserializationError("uint32 value %d out of range", u)
		}
		return uint32(u), nil
	case tagDouble:
		return d.readRawDouble()
	case tagUtf8String:
		return d.readUtf8String()
	case tagOneByteString:
		return d.readOneByteString()
	case tagTwoByteString:
		return d.readTwoByteString()
	case tagObjectReference:
		id, err := d.buf.ReadVarint()
		if err != nil {
			return nil, err
		}
		v, ok := d.values.get(int(id))
		if !ok {
			return nil, newDeserializationError("object reference to unregistered id %d", id)
		}
		return v, nil
	case tagRecordBegin:
		return d.readRecord()
	case tagSparseArrayBegin:
		return d.readSparseArray()
	case tagDenseArrayBegin:
		return d.readDenseArray()
	case tagDate:
		return d.readDate()
	case tagBooleanObjectTrue:
		return d.readBooleanObject(true)
	case tagBooleanObjectFalse:
		return d.readBooleanObject(false)
	case tagNumberObject:
		return d.readNumberObject()
	case tagStringObject:
		return d.readStringObject()
	case tagRegExp:
		return d.readRegExp()
	case tagMapBegin:
		return d.readMap()
	case tagSetBegin:
		return d.readSet()
	case tagByteBuffer, tagByteBufferTransfer, tagSharedByteBuffer:
		return d.readByteBuffer(t)
	case tagHostObject:
		return d.readHostObject()
	default:
		if d.version < wireFormatVersion {
			return d.readLegacyUnknownTag()
		}
		return nil, newDeserializationError("unknown tag 0x%02x", byte(t))
	}
}

func (d *Decoder) readUtf8String() (Value, error) {
	n, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	raw, err := d.buf.ReadBuf(int(n))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (d *Decoder) readOneByteString() (Value, error) {
	n, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	raw, err := d.buf.ReadBuf(int(n))
	if err != nil {
		return nil, err
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes), nil
}

func (d *Decoder) readTwoByteString() (Value, error) {
	byteLen, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	if byteLen%2 != 0 {
		return nil, newDeserializationError("two-byte string payload has odd length %d", byteLen)
	}
	raw, err := d.buf.ReadBuf(int(byteLen))
	if err != nil {
		return nil, err
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
	}
	return string(utf16.Decode(units)), nil
}

// readRecord implements register-before-recurse: rec is registered under
// its id before any of its properties are read, so a property value that
// refers back to rec (directly, or transitively) resolves correctly.
func (d *Decoder) readRecord() (Value, error) {
	rec := NewRecord()
	d.values.register(rec)
	for {
		t, err := d.buf.PeekTag()
		if err != nil {
			return nil, err
		}
		if t == tagRecordEnd {
			d.buf.ReadTag()
			break
		}
		key, err := d.readValue()
		if err != nil {
			return nil, err
		}
		keyStr, ok := key.(string)
		if !ok {
			return nil, newDeserializationError("record key has type %T, not string", key)
		}
		val, err := d.readValue()
		if err != nil {
			return nil, err
		}
		rec.Set(keyStr, val)
	}
	count, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	if int(count) != rec.Len() {
		return nil, newDeserializationError("record declared %d properties, decoded %d", count, rec.Len())
	}
	d.stats.CompositesMaterialized++
	return rec, nil
}

func (d *Decoder) readDenseArray() (Value, error) {
	length, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	arr := &Array{Length: uint32(length), Dense: true, Elements: make([]Value, length)}
	d.values.register(arr)
	for i := range arr.Elements {
		v, err := d.readValue()
		if err != nil {
			return nil, err
		}
		if d.version < 11 {
			if _, isUndef := v.(undefinedType); isUndef {
				v = TheHole
			}
		}
		arr.Elements[i] = v
	}
	propCount, err := d.readPropertyTail(arr, tagDenseArrayEnd)
	if err != nil {
		return nil, err
	}
	if err := d.verifyArrayTrailer(arr, propCount); err != nil {
		return nil, err
	}
	d.stats.CompositesMaterialized++
	return arr, nil
}

func (d *Decoder) readSparseArray() (Value, error) {
	length, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	arr := &Array{Length: uint32(length), Dense: false}
	d.values.register(arr)
	pairCount := 0
	for {
		t, err := d.buf.PeekTag()
		if err != nil {
			return nil, err
		}
		if t == tagSparseArrayEnd {
			d.buf.ReadTag()
			break
		}
		key, err := d.readValue()
		if err != nil {
			return nil, err
		}
		val, err := d.readValue()
		if err != nil {
			return nil, err
		}
		switch k := key.(type) {
		case uint32:
			arr.SetSparse(k, val)
		case int32:
			arr.SetSparse(uint32(k), val)
		case string:
			arr.properties().Set(k, val)
		default:
			return nil, newDeserializationError("sparse array key has unsupported type %T", key)
		}
		pairCount++
	}
	if err := d.verifyArrayTrailer(arr, pairCount); err != nil {
		return nil, err
	}
	d.stats.CompositesMaterialized++
	return arr, nil
}

// readPropertyTail reads non-index string-keyed properties up to endTag,
// which it also consumes, and returns how many it read. Shared by
// readDenseArray; readSparseArray folds property pairs into its own loop
// since sparse pairs and properties share one wire sequence.
func (d *Decoder) readPropertyTail(arr *Array, endTag tag) (int, error) {
	count := 0
	for {
		t, err := d.buf.PeekTag()
		if err != nil {
			return 0, err
		}
		if t == endTag {
			d.buf.ReadTag()
			break
		}
		key, err := d.readValue()
		if err != nil {
			return 0, err
		}
		keyStr, ok := key.(string)
		if !ok {
			return 0, newDeserializationError("array property key has type %T, not string", key)
		}
		val, err := d.readValue()
		if err != nil {
			return 0, err
		}
		arr.properties().Set(keyStr, val)
		count++
	}
	return count, nil
}

// verifyArrayTrailer reads the property-count and length trailer that
// follows both DenseArray's and SparseArray's end tag, and checks it
// against what was actually decoded.
func (d *Decoder) verifyArrayTrailer(arr *Array, decodedCount int) error {
	declaredCount, err := d.buf.ReadVarint()
	if err != nil {
		return err
	}
	if int(declaredCount) != decodedCount {
		return newDeserializationError("array declared %d properties/pairs, decoded %d", declaredCount, decodedCount)
	}
	declaredLength, err := d.buf.ReadVarint()
	if err != nil {
		return err
	}
	if uint32(declaredLength) != arr.Length {
		return newDeserializationError("array length mismatch: header said %d, trailer says %d", arr.Length, declaredLength)
	}
	return nil
}

func (d *Decoder) readDate() (Value, error) {
	date := &Date{}
	d.values.register(date)
	v, err := d.readRawDouble()
	if err != nil {
		return nil, err
	}
	date.Millis = v
	d.stats.CompositesMaterialized++
	return date, nil
}

func (d *Decoder) readBooleanObject(v bool) (Value, error) {
	bo := &BooleanObject{Value: v}
	d.values.register(bo)
	d.stats.CompositesMaterialized++
	return bo, nil
}

func (d *Decoder) readNumberObject() (Value, error) {
	no := &NumberObject{}
	d.values.register(no)
	v, err := d.readRawDouble()
	if err != nil {
		return nil, err
	}
	no.Value = v
	d.stats.CompositesMaterialized++
	return no, nil
}

func (d *Decoder) readStringObject() (Value, error) {
	so := &StringObject{}
	d.values.register(so)
	v, err := d.readValue()
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, newDeserializationError("string object payload has type %T, not string", v)
	}
	so.Value = s
	d.stats.CompositesMaterialized++
	return so, nil
}

// readRegExp populates Source directly from the decoded pattern value.
func (d *Decoder) readRegExp() (Value, error) {
	re := &RegExp{}
	d.values.register(re)
	pattern, err := d.readValue()
	if err != nil {
		return nil, err
	}
	patternStr, ok := pattern.(string)
	if !ok {
		return nil, newDeserializationError("regexp source has type %T, not string", pattern)
	}
	flags, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	re.Source = patternStr
	re.Flags = RegExpFlags(flags)
	d.stats.CompositesMaterialized++
	return re, nil
}

func (d *Decoder) readMap() (Value, error) {
	m := NewMap()
	d.values.register(m)
	for {
		t, err := d.buf.PeekTag()
		if err != nil {
			return nil, err
		}
		if t == tagMapEnd {
			d.buf.ReadTag()
			break
		}
		k, err := d.readValue()
		if err != nil {
			return nil, err
		}
		v, err := d.readValue()
		if err != nil {
			return nil, err
		}
		m.Set(k, v)
	}
	count, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	if int(count) != m.Len() {
		return nil, newDeserializationError("map declared %d pairs, decoded %d", count, m.Len())
	}
	d.stats.CompositesMaterialized++
	return m, nil
}

func (d *Decoder) readSet() (Value, error) {
	s := NewSet()
	d.values.register(s)
	for {
		t, err := d.buf.PeekTag()
		if err != nil {
			return nil, err
		}
		if t == tagSetEnd {
			d.buf.ReadTag()
			break
		}
		v, err := d.readValue()
		if err != nil {
			return nil, err
		}
		s.Add(v)
	}
	count, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	if int(count) != s.Len() {
		return nil, newDeserializationError("set declared %d elements, decoded %d", count, s.Len())
	}
	d.stats.CompositesMaterialized++
	return s, nil
}

// readByteBuffer handles the three tags that produce a *ByteBuffer.
// ByteBuffer copies byteLength bytes from the cursor into a fresh buffer
// starting at offset 0. ByteBufferTransfer and SharedByteBuffer both
// resolve through the same transfer map.
func (d *Decoder) readByteBuffer(t tag) (Value, error) {
	switch t {
	case tagByteBuffer:
		n, err := d.buf.ReadVarint()
		if err != nil {
			return nil, err
		}
		raw, err := d.buf.ReadBuf(int(n))
		if err != nil {
			return nil, err
		}
		data := make([]byte, len(raw))
		copy(data, raw)
		buf := NewByteBuffer(data)
		d.values.register(buf)
		d.stats.CompositesMaterialized++
		return buf, nil
	default: // tagByteBufferTransfer, tagSharedByteBuffer
		id, err := d.buf.ReadVarint()
		if err != nil {
			return nil, err
		}
		buf, ok := d.transfers.lookupByID(uint32(id))
		if !ok {
			return nil, newDeserializationError("byte buffer transfer id %d is not registered", id)
		}
		d.values.register(buf)
		d.stats.CompositesMaterialized++
		return buf, nil
	}
}

// readTypedView is reached only from readValue's interleaving check, after
// a *ByteBuffer has already been produced and registered. The view
// receives its own id last, mirroring the Encoder's writeTypedView.
func (d *Decoder) readTypedView(buf *ByteBuffer) (Value, error) {
	kindByte, err := d.buf.ReadByte()
	if err != nil {
		return nil, err
	}
	kind := TypedViewKind(kindByte)
	if !kind.valid() {
		return nil, newDeserializationError("unknown typed view kind 0x%02x", kindByte)
	}
	offset, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	length, err := d.buf.ReadVarint()
	if err != nil {
		return nil, err
	}
	view := &TypedView{Kind: kind, Buffer: buf, ByteOffset: uint32(offset), ByteLength: uint32(length)}
	d.values.register(view)
	d.stats.CompositesMaterialized++
	return view, nil
}

func (d *Decoder) readHostObject() (Value, error) {
	if d.delegate == nil {
		return nil, newNoHostObjectDelegateError("HostObject tag")
	}
	id := d.values.register(nil)
	v, err := d.delegate.ReadHostObject(d)
	if err != nil {
		return nil, err
	}
	d.values.set(id, v)
	d.stats.CompositesMaterialized++
	return v, nil
}

// readLegacyUnknownTag handles an unknown tag at a wire format version
// below 13 by rewinding one byte and delegating to the host-object reader.
// The tag byte nextTag already consumed is handed back so the delegate can
// reinterpret it under its own convention.
func (d *Decoder) readLegacyUnknownTag() (Value, error) {
	d.buf.Rewind(1)
	if d.delegate == nil {
		return nil, newNoHostObjectDelegateError("unknown tag at a pre-13 wire format version")
	}
	id := d.values.register(nil)
	v, err := d.delegate.ReadHostObject(d)
	if err != nil {
		return nil, err
	}
	d.values.set(id, v)
	d.stats.CompositesMaterialized++
	return v, nil
}
