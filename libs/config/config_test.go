package config

import (
	"testing"
	"time"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "70000")
	if _, err := Port("TEST_PORT", "8080"); err == nil {
		t.Fatalf("expected error for out of range port")
	}
	t.Setenv("TEST_PORT", "")
	p, err := Port("TEST_PORT", "8080")
	if err != nil || p != "8080" {
		t.Fatalf("expected fallback 8080, got %q (%v)", p, err)
	}
}

func TestRequiredString(t *testing.T) {
	t.Setenv("TEST_REQUIRED", "  ")
	if _, err := RequiredString("TEST_REQUIRED"); err == nil {
		t.Fatalf("expected error for blank value")
	}
}

func TestTypedHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "-3")
	if got := Int("TEST_INT", 60); got != 60 {
		t.Fatalf("expected fallback for negative int, got %d", got)
	}
	t.Setenv("TEST_BOOL", "Yes")
	if !Bool("TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("TEST_DUR", "15")
	if got := Duration("TEST_DUR", time.Second); got != 15*time.Second {
		t.Fatalf("expected 15s, got %s", got)
	}
	t.Setenv("TEST_DUR", "250ms")
	if got := Duration("TEST_DUR", time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", got)
	}
	t.Setenv("TEST_LIST", " a, ,b ")
	if got := List("TEST_LIST", ""); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list %v", got)
	}
}
