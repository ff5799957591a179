//go:build !integration

package security_test

import (
	"errors"
	"strings"
	"testing"

	"vpn-subscription/internal/infra/security"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestSecretBox(t *testing.T) {
	box, err := security.NewSecretBox(testKey)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	t.Run("should round-trip within the same scope", func(t *testing.T) {
		sealed, err := box.Seal("panel-pass", "srv-a")
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if !security.IsSealed(sealed) || strings.Contains(sealed, "panel-pass") {
			t.Fatalf("unexpected sealed value %q", sealed)
		}
		got, err := box.Open(sealed, "srv-a")
		if err != nil || got != "panel-pass" {
			t.Errorf("expected panel-pass, got %q (%v)", got, err)
		}
	})

	t.Run("should refuse a value moved to another scope", func(t *testing.T) {
		sealed, _ := box.Seal("panel-pass", "srv-a")
		if _, err := box.Open(sealed, "srv-b"); err == nil {
			t.Error("expected open to fail for a foreign scope")
		}
	})

	t.Run("should keep empty values empty", func(t *testing.T) {
		sealed, err := box.Seal("", "srv-a")
		if err != nil || sealed != "" {
			t.Errorf("expected empty output, got %q (%v)", sealed, err)
		}
	})

	t.Run("should reject plaintext input to Open", func(t *testing.T) {
		if _, err := box.Open("plain", "srv-a"); !errors.Is(err, security.ErrNotSealed) {
			t.Errorf("expected ErrNotSealed, got %v", err)
		}
	})

	t.Run("should reject bad key sizes", func(t *testing.T) {
		if _, err := security.NewSecretBox("short"); err == nil {
			t.Error("expected an error for a 5-byte key")
		}
	})
}
