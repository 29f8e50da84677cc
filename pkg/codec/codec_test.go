package codec

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestEncode_KnownBytes(t *testing.T) {
	testCases := []struct {
		name string
		got  []byte
		want []byte
	}{
		{
			name: "boolean array",
			got:  AppendBoolArray(nil, []bool{true, false, true, false}),
			want: []byte{0x00, 0x00, 0x00, 0x04, 0x01, 0x00, 0x01, 0x00},
		},
		{
			name: "empty byte array",
			got:  AppendBytes(nil, []byte{}),
			want: []byte{0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "string abcd",
			got:  AppendString(nil, "abcd"),
			want: []byte{0x00, 0x00, 0x00, 0x04, 'a', 'b', 'c', 'd'},
		},
		{
			name: "empty string",
			got:  AppendString(nil, ""),
			want: []byte{0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "empty string array",
			got:  AppendStringArray(nil, nil),
			want: []byte{0x00, 0x00, 0x00, 0x00},
		},
		{
			name: "string array",
			got:  AppendStringArray(nil, []string{"a", "bc"}),
			want: []byte{0, 0, 0, 2, 0, 0, 0, 1, 'a', 0, 0, 0, 2, 'b', 'c'},
		},
		{
			name: "int32",
			got:  AppendInt32(nil, 0x01020304),
			want: []byte{0x01, 0x02, 0x03, 0x04},
		},
		{
			name: "int64 negative one",
			got:  AppendInt64(nil, -1),
			want: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		},
		{
			name: "double one",
			got:  AppendFloat64(nil, 1.0),
			want: []byte{0x3F, 0xF0, 0, 0, 0, 0, 0, 0},
		},
		{
			name: "number array",
			got:  AppendFloat64Array(nil, []float64{2}),
			want: []byte{0, 0, 0, 1, 0x40, 0, 0, 0, 0, 0, 0, 0},
		},
		{
			name: "bool true",
			got:  AppendBool(nil, true),
			want: []byte{0x01},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !bytes.Equal(tc.got, tc.want) {
				t.Errorf("bytes mismatch: got % x, want % x", tc.got, tc.want)
			}
		})
	}
}

func TestRoundTrip_EdgeValues(t *testing.T) {
	t.Run("int64", func(t *testing.T) {
		for _, v := range []int64{0, 1, -1, math.MaxInt64, math.MinInt64} {
			got, err := ReadInt64(AppendInt64(nil, v), 0)
			if err != nil {
				t.Fatalf("ReadInt64 failed: %v", err)
			}
			if got != v {
				t.Errorf("int64 mismatch: got %d, want %d", got, v)
			}
		}
	})

	t.Run("int32 and int16", func(t *testing.T) {
		for _, v := range []int32{0, math.MaxInt32, math.MinInt32} {
			got, err := ReadInt32(AppendInt32(nil, v), 0)
			if err != nil || got != v {
				t.Errorf("int32 mismatch: got %d (%v), want %d", got, err, v)
			}
		}
		for _, v := range []int16{0, math.MaxInt16, math.MinInt16} {
			got, err := ReadInt16(AppendInt16(nil, v), 0)
			if err != nil || got != v {
				t.Errorf("int16 mismatch: got %d (%v), want %d", got, err, v)
			}
		}
	})

	t.Run("float64 bit exact", func(t *testing.T) {
		values := []float64{
			0, math.Copysign(0, -1), 1.5, -2.25,
			math.MaxFloat64, math.SmallestNonzeroFloat64, -math.MaxFloat64,
			math.Inf(1), math.Inf(-1), math.NaN(),
			math.Float64frombits(0x7FF8000000000001), // NaN with payload
		}
		for _, v := range values {
			got, err := ReadFloat64(AppendFloat64(nil, v), 0)
			if err != nil {
				t.Fatalf("ReadFloat64 failed: %v", err)
			}
			if math.Float64bits(got) != math.Float64bits(v) {
				t.Errorf("float bits mismatch: got %x, want %x", math.Float64bits(got), math.Float64bits(v))
			}
		}
	})

	t.Run("strings", func(t *testing.T) {
		for _, s := range []string{"", "abcd", "ünïcödé 🎯", string(make([]byte, 1024))} {
			buf := AppendString(nil, s)
			if len(buf) != SizeOfString(s) {
				t.Errorf("size mismatch for %q: got %d, want %d", s, len(buf), SizeOfString(s))
			}
			got, err := ReadString(buf, 0)
			if err != nil {
				t.Fatalf("ReadString failed: %v", err)
			}
			if got != s {
				t.Errorf("string mismatch: got %q, want %q", got, s)
			}
		}
	})

	t.Run("bool arrays", func(t *testing.T) {
		for _, a := range [][]bool{{}, {true, true, true}, {false, false}, {true, false}} {
			buf := AppendBoolArray(nil, a)
			if len(buf) != SizeOfBoolArray(a) {
				t.Errorf("size mismatch: got %d, want %d", len(buf), SizeOfBoolArray(a))
			}
			got, err := ReadBoolArray(buf, 0)
			if err != nil {
				t.Fatalf("ReadBoolArray failed: %v", err)
			}
			if len(got) != len(a) {
				t.Fatalf("length mismatch: got %d, want %d", len(got), len(a))
			}
			for i := range a {
				if got[i] != a[i] {
					t.Errorf("element %d mismatch", i)
				}
			}
		}
	})

	t.Run("float arrays", func(t *testing.T) {
		a := []float64{math.NaN(), math.Inf(1), -0.5, math.MaxFloat64}
		got, err := ReadFloat64Array(AppendFloat64Array(nil, a), 0)
		if err != nil {
			t.Fatalf("ReadFloat64Array failed: %v", err)
		}
		for i := range a {
			if math.Float64bits(got[i]) != math.Float64bits(a[i]) {
				t.Errorf("element %d mismatch", i)
			}
		}
	})

	t.Run("string arrays", func(t *testing.T) {
		a := []string{"", "one", "twö"}
		buf := AppendStringArray(nil, a)
		if len(buf) != SizeOfStringArray(a) {
			t.Errorf("size mismatch: got %d, want %d", len(buf), SizeOfStringArray(a))
		}
		got, err := ReadStringArray(buf, 0)
		if err != nil {
			t.Fatalf("ReadStringArray failed: %v", err)
		}
		for i := range a {
			if got[i] != a[i] {
				t.Errorf("element %d mismatch: got %q, want %q", i, got[i], a[i])
			}
		}
	})
}

func TestRead_AtOffset(t *testing.T) {
	buf := AppendString([]byte{0xAA, 0xBB}, "xy")
	got, err := ReadString(buf, 2)
	if err != nil {
		t.Fatalf("ReadString failed: %v", err)
	}
	if got != "xy" {
		t.Errorf("got %q, want %q", got, "xy")
	}
}

func TestRead_MalformedData(t *testing.T) {
	testCases := []struct {
		name    string
		read    func() error
		wantErr error
	}{
		{
			name:    "empty buffer int32",
			read:    func() error { _, err := ReadInt32(nil, 0); return err },
			wantErr: ErrShortBuffer,
		},
		{
			name:    "truncated int64",
			read:    func() error { _, err := ReadInt64([]byte{1, 2, 3}, 0); return err },
			wantErr: ErrShortBuffer,
		},
		{
			name:    "string length exceeds buffer",
			read:    func() error { _, err := ReadString([]byte{0, 0, 0, 9, 'a'}, 0); return err },
			wantErr: ErrShortBuffer,
		},
		{
			name:    "negative string length",
			read:    func() error { _, err := ReadString([]byte{0xFF, 0xFF, 0xFF, 0xFF}, 0); return err },
			wantErr: ErrNegativeLength,
		},
		{
			name:    "huge array count",
			read:    func() error { _, err := ReadFloat64Array([]byte{0x7F, 0xFF, 0xFF, 0xFF, 0}, 0); return err },
			wantErr: ErrShortBuffer,
		},
		{
			name:    "truncated bool array",
			read:    func() error { _, err := ReadBoolArray([]byte{0, 0, 0, 3, 1, 0}, 0); return err },
			wantErr: ErrShortBuffer,
		},
		{
			name:    "truncated string array element",
			read:    func() error { _, err := ReadStringArray([]byte{0, 0, 0, 1, 0, 0, 0, 5, 'a'}, 0); return err },
			wantErr: ErrShortBuffer,
		},
		{
			name:    "position past end",
			read:    func() error { _, err := ReadBool([]byte{1}, 5); return err },
			wantErr: ErrShortBuffer,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.read()
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestRead_DoesNotMutateInput(t *testing.T) {
	buf := AppendBytes(nil, []byte{1, 2, 3})
	orig := append([]byte(nil), buf...)

	got, err := ReadBytes(buf, 0)
	if err != nil {
		t.Fatalf("ReadBytes failed: %v", err)
	}
	got[0] = 99

	if !bytes.Equal(buf, orig) {
		t.Errorf("input buffer was modified: % x", buf)
	}
}

func TestReader_Cursor(t *testing.T) {
	var buf []byte
	buf = AppendStringArray(buf, []string{"a", "b"})
	buf = AppendString(buf, "a")
	buf = AppendBool(buf, true)

	r := NewReader(buf, 0)
	if _, err := r.StringArray(); err != nil {
		t.Fatalf("StringArray failed: %v", err)
	}
	if r.Pos() != SizeOfStringArray([]string{"a", "b"}) {
		t.Errorf("cursor mismatch after array: %d", r.Pos())
	}
	if s, err := r.String(); err != nil || s != "a" {
		t.Fatalf("String failed: %q %v", s, err)
	}
	if b, err := r.Bool(); err != nil || !b {
		t.Fatalf("Bool failed: %v %v", b, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("expected no remaining bytes, got %d", r.Remaining())
	}

	// A failed read leaves the cursor on the length prefix
	r = NewReader([]byte{0, 0, 0, 8, 'x'}, 0)
	if _, err := r.String(); err == nil {
		t.Fatal("expected error")
	}
	if r.Pos() != 0 {
		t.Errorf("cursor advanced on failed read: %d", r.Pos())
	}
}

func TestCheckLength(t *testing.T) {
	for _, n := range []int{0, 1, math.MaxInt32} {
		if err := CheckLength(n); err != nil {
			t.Errorf("CheckLength(%d) = %v, want nil", n, err)
		}
	}
	if err := CheckLength(math.MaxInt32 + 1); !errors.Is(err, ErrTooLarge) {
		t.Errorf("CheckLength(MaxInt32+1) = %v, want ErrTooLarge", err)
	}
}
