package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestUnsupportedEngineFlagExitsNonZero(t *testing.T) {
	var errOut bytes.Buffer
	code := run([]string{"--engine", "sled"}, &errOut)
	if code == 0 {
		t.Fatal("unsupported --engine should exit non-zero")
	}
	if !strings.Contains(errOut.String(), "unsupported engine") {
		t.Fatalf("stderr = %q, want it to mention unsupported engine", errOut.String())
	}
}

func TestBadFlagExitsNonZero(t *testing.T) {
	var errOut bytes.Buffer
	code := run([]string{"--not-a-flag"}, &errOut)
	if code == 0 {
		t.Fatal("unknown flag should exit non-zero")
	}
}
