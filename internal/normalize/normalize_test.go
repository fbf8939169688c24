package normalize

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Hello", "hello"},
		{"Project Alpha!!", "project alpha"},
		{"  lots   of \t spaces \n here ", "lots of spaces here"},
		{"snake_case stays", "snake_case stays"},
		{"MiXeD-CaSe & Punct.", "mixedcase punct"},
		{"digits 123 ok", "digits 123 ok"},
		{"!!!???", ""},
		{"Ünïcode Läuft", "ünïcode läuft"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"", "Project Alpha!!", "  a  b  c ", "already normal", "x_1 y-2"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}
