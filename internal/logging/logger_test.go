package logging

import "testing"

func TestSetLoggerNilIsNoOp(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	SetLogger(nil)
	Logf("should not panic %d", 1)
}

func TestSetLoggerCustom(t *testing.T) {
	orig := Logf
	defer func() { Logf = orig }()

	var got string
	SetLogger(func(format string, args ...interface{}) { got = format })
	Logf("hello")
	if got != "hello" {
		t.Fatalf("expected custom logger to be invoked, got %q", got)
	}
}
