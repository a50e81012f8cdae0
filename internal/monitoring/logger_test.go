package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...any) {
		got = fmt.Sprintf(format, v...)
	})
	Logf("lattice %s loaded", "FODO")
	if got != "lattice FODO loaded" {
		t.Errorf("custom logger got %q", got)
	}

	// nil installs a no-op, not a nil func
	called := false
	SetLogger(func(string, ...any) { called = true })
	SetLogger(nil)
	Logf("dropped")
	if called {
		t.Error("no-op logger should not invoke previous logger")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
	Logf("default logger message: %d", 1)
}
