package resolution

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Water", "water"},
		{"  wæter  ", "wæter"},
		{"liberté", "liberte"},
		{"*wódr̥", "*wodr"},
		{"ice-cream", "ice cream"},
		{"don't", "don't"},
		{"mother--in--law", "mother in law"},
		{"Fuß!", "fuß"},
	}
	for _, c := range cases {
		nf, err := Normalize(c.in)
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected error %v", c.in, err)
		}
		if nf.Key != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, nf.Key, c.want)
		}
	}
}

func TestNormalizeKeepsProtoStar(t *testing.T) {
	nf, err := Normalize("*wódr̥")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nf.Key[0] != '*' {
		t.Fatalf("proto star should survive normalization, got %q", nf.Key)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	for _, in := range []string{"", "   ", "!!!", "*"} {
		_, err := Normalize(in)
		if err == nil {
			t.Fatalf("Normalize(%q): expected error", in)
		}
		var malformed *MalformedFormError
		if !errors.As(err, &malformed) {
			t.Fatalf("Normalize(%q): want MalformedFormError, got %T", in, err)
		}
	}
}

func TestNormalizePhoneticCode(t *testing.T) {
	a, err := Normalize("Water")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Normalize("water")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.PhoneticCode == "" || a.PhoneticCode != b.PhoneticCode {
		t.Fatalf("case variants should share a phonetic code: %q vs %q", a.PhoneticCode, b.PhoneticCode)
	}
}
