/*
Package serdes implements a codec for the HTML Structured Clone wire
format, wire-format version 13 — the same tagged byte stream produced by
the serialize/deserialize pair of a well-known embedded script engine.

The package encodes an in-memory value graph (primitives, strings,
records, dense and sparse arrays, dates, regular expressions, maps,
sets, byte buffers, typed views, and opaque host objects) into a
self-describing byte stream, and reconstructs a structurally equivalent
graph from that stream, preserving object identity across cycles and
shared subtrees.

Encoding:

	enc := serdes.NewEncoder()
	if err := enc.WriteHeader(); err != nil {
		...
	}
	if err := enc.WriteValue(v); err != nil {
		...
	}
	data := enc.Release()

Decoding:

	dec := serdes.NewDecoder(data)
	if err := dec.ReadHeader(); err != nil {
		...
	}
	v, err := dec.ReadValue()

Marshal and Unmarshal wrap a fresh Encoder/Decoder around a single value
for the common case; they do not expose identity continuity across
separate calls. Opaque callables (Go funcs) always fail with a
CloneError. Any other value the core codec does not know how to
represent is handed to a caller-supplied delegate via the HostObject
tag, or fails with a CloneError if no delegate is registered.

The codec is not portable across machines of differing floating-point
byte order: doubles are written in host byte order, which is
little-endian on every currently supported target. It does not sign,
encrypt, or compress its output, and it does not canonicalize record
key ordering — two records with the same keys inserted in a different
order produce different byte streams.
*/
package serdes
