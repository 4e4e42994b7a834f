package serdes

import (
	"encoding/hex"
	"testing"
)

// hex2Bin decodes a hex string fixture into raw bytes, failing the test on
// malformed input.
func hex2Bin(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex2Bin(%q): %v", s, err)
	}
	return b
}
