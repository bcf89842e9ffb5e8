package modes

import (
	"testing"

	"github.com/reusee/dscope"
)

// ModuleForMode provides Mode to non-test scopes. T is nil.
type ModuleForMode struct {
	dscope.Module
	mode Mode
}

func ForProduction() ModuleForMode {
	return ModuleForMode{mode: ModeProduction}
}

func (m ModuleForMode) T() *testing.T {
	return nil
}

func (m ModuleForMode) Mode() Mode {
	return m.mode
}

// ModuleForTest runs in development mode and exposes the running test.
type ModuleForTest struct {
	dscope.Module
	t *testing.T
}

func ForTest(t *testing.T) ModuleForTest {
	return ModuleForTest{
		t: t,
	}
}

func (m ModuleForTest) T() *testing.T {
	return m.t
}

func (m ModuleForTest) Mode() Mode {
	return ModeDevelopment
}
