package serdes

import "testing"

// TestDecodeFooBar decodes the canonical byte sequence for a record with
// a single string-valued property.
func TestDecodeFooBar(t *testing.T) {
	data := hex2Bin(t, "ff0d6f2203666f6f22036261727b01")
	d := NewDecoder(data)
	if err := d.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got := d.GetWireFormatVersion(); got != 13 {
		t.Errorf("GetWireFormatVersion() = %d, want 13", got)
	}
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	rec, ok := v.(*Record)
	if !ok {
		t.Fatalf("decoded value has type %T, want *Record", v)
	}
	if rec.Len() != 1 || rec.Keys[0] != "foo" || rec.Values[0] != "bar" {
		t.Errorf("decoded record = %+v, want {foo: bar}", rec)
	}
}

// TestDecodeInt32 decodes a small signed integer from its tag and
// ZigZag-varint payload.
func TestDecodeInt32(t *testing.T) {
	d := NewDecoder([]byte{byte(tagInt32), 84})
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if v != int32(42) {
		t.Errorf("ReadValue() = %v, want int32(42)", v)
	}
}

func TestReadHeaderNoVersionTag(t *testing.T) {
	d := NewDecoder([]byte{byte(tagTrue)})
	if err := d.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if got := d.GetWireFormatVersion(); got != 0 {
		t.Errorf("GetWireFormatVersion() = %d, want 0 (legacy default)", got)
	}
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if v != true {
		t.Errorf("ReadValue() = %v, want true", v)
	}
}

func TestReadHeaderUnsupportedVersionFails(t *testing.T) {
	d := NewDecoder(append([]byte{byte(tagVersion)}, appendVarint(nil, 99)...))
	if err := d.ReadHeader(); err == nil {
		t.Errorf("ReadHeader() with version 99 succeeded, want error")
	}
}

func TestReadObjectReferenceToUnknownIDFails(t *testing.T) {
	d := NewDecoder(append([]byte{byte(tagObjectReference)}, appendVarint(nil, 5)...))
	if _, err := d.ReadValue(); err == nil {
		t.Errorf("ReadValue() on a dangling ObjectReference succeeded, want error")
	}
}

func TestReadRecordCountMismatchFails(t *testing.T) {
	// One key/value pair, but a declared count of 2.
	var data []byte
	data = append(data, byte(tagRecordBegin))
	data = append(data, byte(tagOneByteString), 1, 'x')
	data = append(data, byte(tagInt32), 0)
	data = append(data, byte(tagRecordEnd))
	data = append(data, appendVarint(nil, 2)...)
	d := NewDecoder(data)
	if _, err := d.ReadValue(); err == nil {
		t.Errorf("ReadValue() with mismatched record count succeeded, want error")
	}
}

func TestReadTruncatedStreamFails(t *testing.T) {
	d := NewDecoder([]byte{byte(tagInt32)}) // varint payload missing
	if _, err := d.ReadValue(); err == nil {
		t.Errorf("ReadValue() on a truncated stream succeeded, want error")
	}
}

func TestReadUnknownTagAtCurrentVersionFails(t *testing.T) {
	d := NewDecoder([]byte{byte(tagVersion)})
	data := append([]byte{byte(tagVersion)}, appendVarint(nil, 13)...)
	data = append(data, 0x01) // 0x01 is not a tag in the alphabet
	d = NewDecoder(data)
	if err := d.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if _, err := d.ReadValue(); err == nil {
		t.Errorf("ReadValue() on an unknown tag at version 13 succeeded, want error")
	}
}

// TestLegacyUnknownTagDelegates checks that an unknown tag at a wire
// format version below 13 rewinds one byte and defers to the host-object
// delegate instead of failing outright.
func TestLegacyUnknownTagDelegates(t *testing.T) {
	data := append([]byte{byte(tagVersion)}, appendVarint(nil, 10)...)
	data = append(data, 0x01, 0x2a) // unknown tag 0x01, followed by an arbitrary payload byte
	d := NewDecoder(data)
	if err := d.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	d.SetHostObjectDelegate(rewindingTestDelegate{})
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if v != "legacy:0x01" {
		t.Errorf("ReadValue() = %v, want %q", v, "legacy:0x01")
	}
}

type rewindingTestDelegate struct{}

func (rewindingTestDelegate) ReadHostObject(d *Decoder) (Value, error) {
	b, err := d.ReadRawBytes(1)
	if err != nil {
		return nil, err
	}
	return "legacy:0x" + string("0123456789abcdef"[b[0]>>4]) + string("0123456789abcdef"[b[0]&0xf]), nil
}

func TestReadDenseArrayWithUndefinedHoleLegacy(t *testing.T) {
	// Version 10 (< 11): an Undefined element inside a dense array is a
	// hole, not a stored Undefined value.
	var data []byte
	data = append(data, byte(tagVersion))
	data = append(data, appendVarint(nil, 10)...)
	data = append(data, byte(tagDenseArrayBegin))
	data = append(data, appendVarint(nil, 1)...)
	data = append(data, byte(tagUndefined))
	data = append(data, byte(tagDenseArrayEnd))
	data = append(data, appendVarint(nil, 0)...)
	data = append(data, appendVarint(nil, 1)...)

	d := NewDecoder(data)
	if err := d.ReadHeader(); err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	arr, ok := v.(*Array)
	if !ok {
		t.Fatalf("decoded value has type %T, want *Array", v)
	}
	if arr.Elements[0] != TheHole {
		t.Errorf("legacy dense array element = %v, want TheHole", arr.Elements[0])
	}
}

func TestReadSparseArrayNoProperties(t *testing.T) {
	// A sparse array of length 4 with no stored properties decodes to a
	// length-4 value with zero own indexed properties.
	var data []byte
	data = append(data, byte(tagSparseArrayBegin))
	data = append(data, appendVarint(nil, 4)...)
	data = append(data, byte(tagSparseArrayEnd))
	data = append(data, appendVarint(nil, 0)...)
	data = append(data, appendVarint(nil, 4)...)

	d := NewDecoder(data)
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	arr, ok := v.(*Array)
	if !ok {
		t.Fatalf("decoded value has type %T, want *Array", v)
	}
	if arr.Length != 4 {
		t.Errorf("arr.Length = %d, want 4", arr.Length)
	}
	if len(arr.Indices) != 0 {
		t.Errorf("arr.Indices = %v, want empty", arr.Indices)
	}
}

func TestReadByteBufferTransferUnregisteredFails(t *testing.T) {
	data := append([]byte{byte(tagByteBufferTransfer)}, appendVarint(nil, 1)...)
	d := NewDecoder(data)
	if _, err := d.ReadValue(); err == nil {
		t.Errorf("ReadValue() on an unregistered transfer id succeeded, want error")
	}
}

func TestReadByteBufferTransferResolvesHandle(t *testing.T) {
	handle := NewByteBuffer([]byte{9, 9, 9})
	data := append([]byte{byte(tagByteBufferTransfer)}, appendVarint(nil, 5)...)
	d := NewDecoder(data)
	if err := d.TransferByteBuffer(5, handle); err != nil {
		t.Fatalf("TransferByteBuffer: %v", err)
	}
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if v != Value(handle) {
		t.Errorf("ReadValue() = %p, want the exact registered handle %p", v, handle)
	}
}

func TestReadSharedByteBufferResolvesThroughTransferMap(t *testing.T) {
	handle := NewByteBuffer([]byte{1, 2})
	data := append([]byte{byte(tagSharedByteBuffer)}, appendVarint(nil, 9)...)
	d := NewDecoder(data)
	if err := d.TransferByteBuffer(9, handle); err != nil {
		t.Fatalf("TransferByteBuffer: %v", err)
	}
	v, err := d.ReadValue()
	if err != nil {
		t.Fatalf("ReadValue: %v", err)
	}
	if v != Value(handle) {
		t.Errorf("ReadValue() via SharedByteBuffer = %p, want %p", v, handle)
	}
}
