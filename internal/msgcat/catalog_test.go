package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultCatalogRendersErrorsAndOutcomes(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, code := range []string{"INVALID_POSITION", "ILLEGAL_MOVE", "NOT_YOUR_TURN", "GAME_ALREADY_OVER", "GAME_NOT_FOUND", "NOT_A_PARTICIPANT", "CONCURRENT_UPDATE"} {
		if got := c.Error(code, ""); got == "" {
			t.Fatalf("missing message for %s", code)
		}
	}
	if got := c.Outcome("CHECKMATE", "black", "white"); got != "Checkmate. black wins." {
		t.Fatalf("outcome: %q", got)
	}
	if got := c.Outcome("STALEMATE", "", ""); !strings.Contains(got, "drawn") {
		t.Fatalf("stalemate: %q", got)
	}
	if got := c.Error("NO_SUCH_CODE", "fallback"); got != "fallback" {
		t.Fatalf("fallback: %q", got)
	}
}

func TestRenderMissingFieldIsError(t *testing.T) {
	c := MustDefault()
	if _, err := c.Render("lobby.created", map[string]string{"Code": "LB-ABC123"}); err == nil {
		t.Fatalf("expected error for missing Variant")
	}
	got, err := c.Render("lobby.created", map[string]string{"Code": "LB-ABC123", "Variant": "chess"})
	if err != nil || !strings.Contains(got, "LB-ABC123") {
		t.Fatalf("Render: %q %v", got, err)
	}
}

func TestOverridesApplyAndRejectDuplicates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("error:\n  ILLEGAL_MOVE: \"Nope.\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Error("ILLEGAL_MOVE", ""); got != "Nope." {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Error("NOT_YOUR_TURN", ""); got == "" {
		t.Fatalf("defaults lost")
	}

	if err := os.WriteFile(filepath.Join(dir, "b.yml"), []byte("error:\n  ILLEGAL_MOVE: \"Again.\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("error:\n  ILLEGAL_MOVE: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected error for numeric leaf")
	}
}
