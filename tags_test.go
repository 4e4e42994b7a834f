package serdes

import "testing"

func TestTypedViewKindElementSize(t *testing.T) {
	tests := []struct {
		kind TypedViewKind
		size int
	}{
		{ViewInt8, 1},
		{ViewUint8, 1},
		{ViewUint8Clamped, 1},
		{ViewInt16, 2},
		{ViewUint16, 2},
		{ViewInt32, 4},
		{ViewUint32, 4},
		{ViewFloat32, 4},
		{ViewFloat64, 8},
		{ViewDataView, 1},
	}
	for _, test := range tests {
		if got := test.kind.elementSize(); got != test.size {
			t.Errorf("%v.elementSize() = %d, want %d", test.kind, got, test.size)
		}
		if !test.kind.valid() {
			t.Errorf("%v.valid() = false, want true", test.kind)
		}
	}
}

func TestTypedViewKindInvalid(t *testing.T) {
	if TypedViewKind('z').valid() {
		t.Errorf("TypedViewKind('z').valid() = true, want false")
	}
}

func TestRegExpFlagsBits(t *testing.T) {
	flags := RegExpGlobal | RegExpUnicode
	if flags&RegExpGlobal == 0 {
		t.Errorf("RegExpGlobal bit not set")
	}
	if flags&RegExpIgnoreCase != 0 {
		t.Errorf("RegExpIgnoreCase bit unexpectedly set")
	}
	if flags&RegExpUnicode == 0 {
		t.Errorf("RegExpUnicode bit not set")
	}
}
