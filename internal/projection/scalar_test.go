package projection

import (
	"errors"
	"testing"
)

func TestBool(t *testing.T) {
	cases := map[string]bool{
		"1":     true,
		" 2 ":   true,
		"0":     false,
		"true":  true,
		"TRUE":  true,
		"false": false,
		"":      false,
		"maybe": false,
	}
	for raw, want := range cases {
		if got := Bool(raw); got != want {
			t.Fatalf("Bool(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestInt(t *testing.T) {
	n, err := Int(" 7\n")
	if err != nil || n != 7 {
		t.Fatalf("unexpected result: %d %v", n, err)
	}
	_, err = Int("seven")
	if !errors.Is(err, ErrNumericDecoding) {
		t.Fatalf("expected ErrNumericDecoding, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"0.00", 1},
		{"0.42", 42},
		{"1.00", 100},
		{"2.00", 200},
	}
	for _, tc := range cases {
		got, err := Progress(tc.raw)
		if err != nil {
			t.Fatalf("Progress(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("Progress(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestProgressNullIsNotZero(t *testing.T) {
	for _, raw := range []string{"(null)", "", "abc"} {
		n, err := Progress(raw)
		var ne *NumericDecodingError
		if !errors.As(err, &ne) {
			t.Fatalf("Progress(%q): expected NumericDecodingError, got %d %v", raw, n, err)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("a , missing value,b")
	if len(got) != 3 || got[0] != "a" || got[1] != StandIn || got[2] != "b" {
		t.Fatalf("unexpected tokens: %#v", got)
	}
	if got := Tokens(""); got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}
