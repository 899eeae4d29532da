package services_test

import (
	"errors"
	"strings"
	"testing"

	"reencode/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "pipeline", "start", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"pipeline", "start", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestIsUserActionable(t *testing.T) {
	validationErr := services.Wrap(services.ErrValidation, "analyzer", "probe", "invalid", nil)
	if !services.IsUserActionable(validationErr) {
		t.Fatal("expected validation error to be user actionable")
	}

	toolErr := services.Wrap(services.ErrExternalTool, "pipeline", "run", "exit 1", errors.New("io"))
	if services.IsUserActionable(toolErr) {
		t.Fatal("expected external tool error not to be user actionable")
	}

	if services.IsUserActionable(nil) {
		t.Fatal("expected nil error not to be user actionable")
	}
}
