package vars

import "testing"

func TestFirstNonZero(t *testing.T) {
	if got := FirstNonZero("", "a", "b"); got != "a" {
		t.Fatalf("got %q", got)
	}
	if got := FirstNonZero(0, 0); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := FirstNonZero[int](); got != 0 {
		t.Fatalf("got %d", got)
	}
}

func TestStrToBool(t *testing.T) {
	for str, want := range map[string]bool{
		"true": true,
		"Yes":  true,
		" on ": true,
		"1":    true,
		"no":   false,
		"0":    false,
		"":     false,
		"what": false,
	} {
		if got := StrToBool(str); got != want {
			t.Fatalf("%q: got %v", str, got)
		}
	}
}
