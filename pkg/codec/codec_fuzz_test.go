//go:build fuzz
// +build fuzz

package codec

import (
	"testing"
)

// FuzzReadString tests that arbitrary input never panics and that anything
// decoded re-encodes to the same prefix
func FuzzReadString(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0, 0, 0, 4, 'a', 'b', 'c', 'd'})
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	f.Add([]byte{0, 0, 0, 9, 'a'})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := ReadString(data, 0)
		if err != nil {
			return
		}
		encoded := AppendString(nil, s)
		if string(encoded) != string(data[:len(encoded)]) {
			t.Errorf("re-encode mismatch: got % x, want prefix of % x", encoded, data)
		}
	})
}

// FuzzReadStringArray tests that corrupt counts fail cleanly
func FuzzReadStringArray(f *testing.F) {
	f.Add(AppendStringArray(nil, []string{"a", "bc"}))
	f.Add([]byte{0x7F, 0xFF, 0xFF, 0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		a, err := ReadStringArray(data, 0)
		if err != nil {
			return
		}
		if SizeOfStringArray(a) > len(data) {
			t.Errorf("decoded array claims %d bytes from %d byte input", SizeOfStringArray(a), len(data))
		}
	})
}

// FuzzReadFloat64Array tests that corrupt counts fail cleanly
func FuzzReadFloat64Array(f *testing.F) {
	f.Add(AppendFloat64Array(nil, []float64{1, 2, 3}))
	f.Add([]byte{0, 0, 0, 2, 1})

	f.Fuzz(func(t *testing.T, data []byte) {
		a, err := ReadFloat64Array(data, 0)
		if err != nil {
			return
		}
		if SizeOfFloat64Array(a) > len(data) {
			t.Errorf("decoded array claims %d bytes from %d byte input", SizeOfFloat64Array(a), len(data))
		}
	})
}
