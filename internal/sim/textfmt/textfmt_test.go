package textfmt

import "testing"

func TestPrettify(t *testing.T) {
	p := New()
	cases := map[string]string{
		"STONE":            "Stone",
		"IRON_GOLEM":       "Iron Golem",
		"MINECART_HOPPER":  "Minecart Hopper",
		"sweet_berry_bush": "Sweet Berry Bush",
		"__A__B":           "A B",
		"":                 "",
	}
	for in, want := range cases {
		if got := p.Prettify(in); got != want {
			t.Fatalf("Prettify(%q)=%q want %q", in, got, want)
		}
	}
}
