package serdes

// decbuf manages the read cursor over the Decoder's input. It reads
// directly from an in-memory byte slice — the Decoder's contract takes a
// []byte up front, so there is nothing to stream and no need for a
// refilling ring buffer.
type decbuf struct {
	buf []byte
	pos int
}

func newDecbuf(data []byte) *decbuf {
	return &decbuf{buf: data}
}

// Len returns the number of unread bytes.
func (b *decbuf) Len() int { return len(b.buf) - b.pos }

// Pos returns the current read offset from the start of the stream.
func (b *decbuf) Pos() int { return b.pos }

// PeekByte returns the next byte without advancing the cursor.
func (b *decbuf) PeekByte() (byte, error) {
	if b.pos >= len(b.buf) {
		return 0, newDeserializationError("unexpected end of stream")
	}
	return b.buf[b.pos], nil
}

// ReadByte reads and returns the next byte, advancing the cursor.
func (b *decbuf) ReadByte() (byte, error) {
	c, err := b.PeekByte()
	if err != nil {
		return 0, err
	}
	b.pos++
	return c, nil
}

// PeekAtLeast returns the unread bytes if at least min of them remain,
// without advancing the cursor. The returned slice aliases the input.
func (b *decbuf) PeekAtLeast(min int) ([]byte, error) {
	if b.Len() < min {
		return nil, newDeserializationError("unexpected end of stream")
	}
	return b.buf[b.pos:], nil
}

// ReadBuf returns the next n unread bytes and advances the cursor past
// them. The returned slice aliases the input and is only valid until the
// Decoder is reused or dropped.
func (b *decbuf) ReadBuf(n int) ([]byte, error) {
	if b.Len() < n {
		return nil, newDeserializationError("unexpected end of stream")
	}
	out := b.buf[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

// Skip advances the cursor past n bytes without returning them.
func (b *decbuf) Skip(n int) error {
	if b.Len() < n {
		return newDeserializationError("unexpected end of stream")
	}
	b.pos += n
	return nil
}

// ReadVarint reads a LEB128-encoded unsigned integer and advances the
// cursor past it.
func (b *decbuf) ReadVarint() (uint64, error) {
	v, n, ok := readVarint(b.buf[b.pos:])
	if !ok {
		return 0, newDeserializationError("malformed varint")
	}
	b.pos += n
	return v, nil
}

// Rewind moves the cursor back n bytes. Used only by the decoder's
// legacy-unknown-tag fallback, which must hand the tag byte it already
// consumed back to the host-object delegate.
func (b *decbuf) Rewind(n int) { b.pos -= n }

// ReadTag reads and returns the next tag byte, advancing the cursor.
func (b *decbuf) ReadTag() (tag, error) {
	c, err := b.ReadByte()
	if err != nil {
		return 0, err
	}
	return tag(c), nil
}

// PeekTag returns the next tag byte without advancing the cursor.
func (b *decbuf) PeekTag() (tag, error) {
	c, err := b.PeekByte()
	if err != nil {
		return 0, err
	}
	return tag(c), nil
}
