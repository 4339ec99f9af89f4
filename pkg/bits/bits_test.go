package bits

import (
	"testing"
)

func TestBitSetFromString(t *testing.T) {
	tests := []struct {
		s       string
		missing uint8
		len     int
	}{
		{s: "11111111 0011", missing: 4, len: 12},
		{s: "10101010 111", missing: 5, len: 11},
		{s: "00000000 1", missing: 7, len: 9},
		{s: "11111111 11111111", missing: 0, len: 16},
		{s: "11111111", missing: 0, len: 8},
	}
	for i, test := range tests {
		b, err := NewBitSetFromString(test.s)
		if err != nil {
			t.Fatalf("%d: %s", i, err)
		}
		if b.String() != test.s {
			t.Errorf("%d: %s != %s", i, b.String(), test.s)
		}
		if b.missingBits != test.missing {
			t.Errorf("%d: missing bits %d != %d", i, b.missingBits, test.missing)
		}
		if b.Len() != test.len {
			t.Errorf("%d: len %d != %d", i, b.Len(), test.len)
		}
	}
	for _, s := range []string{"0101 00000000", "000000001", "0000000x"} {
		if _, err := NewBitSetFromString(s); err == nil {
			t.Errorf("expected an error for %q", s)
		}
	}
}

func TestSetClear(t *testing.T) {
	b := NewZeros(32)
	if b.Len() != 32 || len(b.Bytes()) != 4 {
		t.Fatalf("unexpected size %d", b.Len())
	}
	if !b.Set(0) || !b.Set(9) || !b.Set(31) {
		t.Error("expected bits to change")
	}
	if b.Set(9) {
		t.Error("bit 9 was already set")
	}
	if b.Set(32) {
		t.Error("bit 32 is out of range")
	}
	if got := b.Bytes(); got[0] != 0x01 || got[1] != 0x02 || got[3] != 0x80 {
		t.Errorf("unexpected bytes %v", got)
	}
	if !b.IsSet(31) || b.IsSet(30) || b.IsSet(-1) {
		t.Error("unexpected IsSet result")
	}
	if !b.Clear(0) || b.Clear(0) {
		t.Error("unexpected Clear result")
	}
	if b.IsEmpty() {
		t.Error("expected non-empty")
	}
	if !b.ClearAll() || !b.IsEmpty() {
		t.Error("expected empty after ClearAll")
	}
}

func TestEachChanged(t *testing.T) {
	prev, _ := NewBitSetFromString("00000101 00000000")
	next := prev.Clone()
	next.Clear(0)
	next.Set(4)
	next.Set(8)

	var changes []int
	next.EachChanged(prev, func(bit int, set bool) bool {
		if set {
			changes = append(changes, bit)
		} else {
			changes = append(changes, -bit-1)
		}
		return true
	})
	if len(changes) != 3 || changes[0] != -1 || changes[1] != 4 || changes[2] != 8 {
		t.Errorf("unexpected changes %v", changes)
	}
	if next.Equal(prev) || !prev.Equal(prev.Clone()) {
		t.Error("unexpected Equal result")
	}
}
