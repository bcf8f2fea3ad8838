package main

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Élodie", "elodie"},
		{"élodie", "elodie"},
		{"BOB", "bob"},
		{"  Chloé ", "chloe"},
		{"ÅSA", "asa"},
		{"François", "francois"},
		{"", ""},
		{"   ", ""},
	}

	for _, tc := range cases {
		if got := normalizeName(tc.in); got != tc.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeNameIdempotent(t *testing.T) {
	for _, in := range []string{"Élodie", "BOB", "  Chloé ", "João", ""} {
		once := normalizeName(in)
		if twice := normalizeName(once); twice != once {
			t.Errorf("normalizeName not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestNormalizeNameCaseInsensitiveEquality(t *testing.T) {
	if normalizeName("BOB") != normalizeName("bob") {
		t.Error("expected BOB and bob to normalize equal")
	}
	if normalizeName("Élodie") != normalizeName("elodie") {
		t.Error("expected Élodie and elodie to normalize equal")
	}
}
