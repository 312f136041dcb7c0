package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		in   string
		def  int
		want int
	}{
		{"", 7, 7},
		{"42", 7, 42},
		{"-3", 7, -3},
		{"abc", 7, 7},
		{"12x", 7, 7},
		{" 5", 7, 7},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.in, tc.def); got != tc.want {
			t.Errorf("AtoiDefault(%q, %d) = %d, want %d", tc.in, tc.def, got, tc.want)
		}
	}
}

func TestParseID(t *testing.T) {
	cases := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"1", 1, true},
		{"9007199254740993", 9007199254740993, true},
		{"", 0, false},
		{"0", 0, false},
		{"-4", 0, false},
		{"forty", 0, false},
		{"1.5", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseID(tc.in)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("ParseID(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}
