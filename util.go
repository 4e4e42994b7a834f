package serdes

// Marshal writes the header and v into a fresh Encoder and returns the
// accumulated bytes. It is the package's façade entry point: a convenience
// wrapper for callers who don't need identity continuity across multiple
// encoded values, or control over a host-object delegate.
func Marshal(v Value) ([]byte, error) {
	e := NewEncoder()
	if err := e.WriteHeader(); err != nil {
		return nil, err
	}
	if err := e.WriteValue(v); err != nil {
		return nil, err
	}
	return e.Release(), nil
}

// Unmarshal reads the header and the first value out of data using a
// fresh Decoder. It is the decode-side counterpart of Marshal.
func Unmarshal(data []byte) (Value, error) {
	d := NewDecoder(data)
	if err := d.ReadHeader(); err != nil {
		return nil, err
	}
	return d.ReadValue()
}
