package modes

import (
	"testing"

	"github.com/reusee/dscope"
)

func TestForProduction(t *testing.T) {
	dscope.New(ForProduction()).Call(func(
		tt *testing.T,
		mode Mode,
	) {
		if tt != nil {
			t.Fatal()
		}
		if mode != ModeProduction {
			t.Fatalf("got %v", mode)
		}
	})
}

func TestForTest(t *testing.T) {
	dscope.New(ForTest(t)).Call(func(
		tt *testing.T,
		mode Mode,
	) {
		if tt != t {
			t.Fatal()
		}
		if mode != ModeDevelopment {
			t.Fatalf("got %v", mode)
		}
	})
}

func TestFromFlags(t *testing.T) {
	t.Setenv("TAITRACE_MODE", "dev")
	m, err := FromFlags()
	if err != nil {
		t.Fatal(err)
	}
	if m.Mode() != ModeDevelopment {
		t.Fatalf("got %v", m.Mode())
	}

	t.Setenv("TAITRACE_MODE", "staging")
	if _, err := FromFlags(); err == nil {
		t.Fatal("should fail")
	}
}

func TestParseMode(t *testing.T) {
	for str, want := range map[string]Mode{
		"production":  ModeProduction,
		"prod":        ModeProduction,
		"development": ModeDevelopment,
		"dev":         ModeDevelopment,
	} {
		got, err := ParseMode(str)
		if err != nil {
			t.Fatal(err)
		}
		if got != want || got.String() == "unknown" {
			t.Fatalf("%s: got %v", str, got)
		}
	}
}
