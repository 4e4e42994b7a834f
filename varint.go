package serdes

import "math"

// Varint encoding is little-endian base-128: each byte contributes 7 bits
// of the value, with the high bit set on every byte but the last. Zero
// encodes as a single 0x00 byte. ZigZag maps a signed integer n to
// 2*|n| + (1 if n < 0 else 0) before varint-encoding it, so small-magnitude
// values — whether positive or negative — produce small varints.
//
// These helpers are pure and stateless; they operate on plain byte slices
// so they can be reused by both encbuf/decbuf and the default host-object
// codec, which reads and writes raw bytes directly.

// appendVarint appends the LEB128 encoding of v to buf and returns the
// extended slice.
func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// varintLen returns the number of bytes appendVarint would write for v.
func varintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// readVarint reads a LEB128-encoded value starting at buf[0], and returns
// the value, the number of bytes consumed, and whether the encoding was
// well-formed. A malformed (truncated, or too many continuation bytes)
// encoding reports ok == false.
func readVarint(buf []byte) (v uint64, n int, ok bool) {
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		// Test the high bit of the byte just consumed, not some other
		// field, to decide whether another byte follows.
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1, true
		}
		shift += 7
		if shift >= 64 {
			return 0, 0, false
		}
	}
	return 0, 0, false
}

// zigzagEncode maps a signed integer n to 2*|n| + (1 if n < 0 else 0), so
// small-magnitude values, whether positive or negative, produce small
// varints. For math.MinInt64, 2*|n| + 1 does not fit in 64 bits: the
// computation wraps around to 1, a value no other input produces, and
// zigzagDecode maps 1 back to math.MinInt64.
func zigzagEncode(n int64) uint64 {
	if n < 0 {
		return uint64(-n)<<1 | 1
	}
	return uint64(n) << 1
}

// zigzagDecode is the inverse of zigzagEncode.
func zigzagDecode(u uint64) int64 {
	if u == 1 {
		return math.MinInt64
	}
	mag := int64(u >> 1)
	if u&1 == 1 {
		return -mag
	}
	return mag
}
