package limits

import "testing"

func TestParseKind(t *testing.T) {
	cls := newFakeCatalog([]string{"STONE", "TNT"}, "COW", "TNT")
	cases := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{in: "STONE", want: Block("STONE")},
		{in: "cow", want: Entity("COW")},
		{in: "TNT", want: Block("TNT")},
		{in: "entity:TNT", want: Entity("TNT")},
		{in: "block: hopper", want: Block("HOPPER")},
		{in: "ENTITY:ZOMBIE", want: Entity("ZOMBIE")},
		{in: "ZOMBIE", wantErr: true},
		{in: "item:STONE", wantErr: true},
		{in: "block:", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in, cls)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseKind(%q): expected error, got %v", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseKind(%q)=%v want %v", tc.in, got, tc.want)
		}
	}
}

func TestKindString(t *testing.T) {
	if s := Block("STONE").String(); s != "block:STONE" {
		t.Fatalf("unexpected: %q", s)
	}
	if s := Entity("COW").String(); s != "entity:COW" {
		t.Fatalf("unexpected: %q", s)
	}
}
