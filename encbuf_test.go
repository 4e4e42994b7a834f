package serdes

import (
	"strings"
	"testing"
)

func expectEncbufBytes(t *testing.T, b *encbuf, expect string) {
	t.Helper()
	if b.Len() != len(expect) {
		t.Errorf("len got %d, want %d", b.Len(), len(expect))
	}
	if string(b.Bytes()) != expect {
		t.Errorf("bytes got %q, want %q", b.Bytes(), expect)
	}
}

func TestEncbuf(t *testing.T) {
	b := newEncbuf()
	expectEncbufBytes(t, b, "")
	b.WriteByte('Z')
	expectEncbufBytes(t, b, "Z")
	b.Write([]byte("xxx"))
	expectEncbufBytes(t, b, "Zxxx")
	b.WriteString("12345")
	expectEncbufBytes(t, b, "Zxxx12345")
}

func TestEncbufTruncate(t *testing.T) {
	b := newEncbuf()
	b.WriteString("abcdef")
	b.Truncate(3)
	expectEncbufBytes(t, b, "abc")
	b.WriteString("XYZ")
	expectEncbufBytes(t, b, "abcXYZ")
}

func TestEncbufTruncatePanicsOutOfRange(t *testing.T) {
	b := newEncbuf()
	b.WriteString("abc")
	defer func() {
		if recover() == nil {
			t.Errorf("Truncate(4) on a 3-byte buffer did not panic")
		}
	}()
	b.Truncate(4)
}

func TestBigEncbuf(t *testing.T) {
	const bigsize = 102400 // 100KiB
	b := newEncbuf()
	expectEncbufBytes(t, b, "")
	bigstr := strings.Repeat("a", bigsize)
	b.WriteString(bigstr)
	expectEncbufBytes(t, b, bigstr)
}

func TestEncbufWriteVarint(t *testing.T) {
	b := newEncbuf()
	b.WriteVarint(300)
	if got, want := b.Bytes(), hex2Bin(t, "ac02"); string(got) != string(want) {
		t.Errorf("WriteVarint(300) = %x, want %x", got, want)
	}
}

func TestEncbufWriteTag(t *testing.T) {
	b := newEncbuf()
	b.WriteTag(tagRecordBegin)
	expectEncbufBytes(t, b, "o")
}
