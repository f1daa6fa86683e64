package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsSentinel(t *testing.T) {
	err := Wrap(ErrNotFound, "resolver", "bucket search", "no candidate found", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound marker, got %v", err)
	}
	if errors.Is(err, ErrTransient) {
		t.Fatalf("unexpected transient marker on %v", err)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrTransient, "swarm", "generate", "request failed", cause)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "swarm", "generate", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected default transient marker, got %v", err)
	}
}

func TestReasonStripsMarkerPrefix(t *testing.T) {
	err := Wrap(ErrBackend, "swarm", "generate", "prompt rejected", nil)
	reason := Reason(err)
	if reason != "swarm: generate: prompt rejected" {
		t.Fatalf("unexpected reason %q", reason)
	}
	if Reason(nil) != "" {
		t.Fatal("nil error should produce empty reason")
	}
}
