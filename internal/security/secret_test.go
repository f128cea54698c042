package security

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestGenerateSecret_Entropy(t *testing.T) {
	s, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(s.Reveal())
	if err != nil {
		t.Fatalf("secret is not base64url: %v", err)
	}
	if len(raw) != SecretBytes {
		t.Errorf("decoded length = %d, want %d", len(raw), SecretBytes)
	}
}

func TestGenerateSecret_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := GenerateSecret()
		if err != nil {
			t.Fatalf("GenerateSecret: %v", err)
		}
		if seen[s.Reveal()] {
			t.Fatal("GenerateSecret produced a duplicate")
		}
		seen[s.Reveal()] = true
	}
}

func TestSecret_Redacted(t *testing.T) {
	s := Secret("super-secret-value")
	if got := fmt.Sprintf("%v", s); got != "[redacted]" {
		t.Errorf("formatted secret = %q, want [redacted]", got)
	}
	if got := fmt.Sprintf("%s", s); got != "[redacted]" {
		t.Errorf("formatted secret = %q, want [redacted]", got)
	}
	b, err := json.Marshal(map[string]Secret{"token": s})
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if strings.Contains(string(b), "super-secret-value") {
		t.Errorf("json output leaked the secret: %s", b)
	}
}

func TestHashSecret_Consistent(t *testing.T) {
	h1 := HashSecret("abc")
	h2 := HashSecret("abc")
	if h1 != h2 {
		t.Errorf("HashSecret not consistent: %q vs %q", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("hash length = %d, want 64 (SHA-256 hex)", len(h1))
	}
	if HashSecret("abd") == h1 {
		t.Error("HashSecret produced same hash for different secrets")
	}
}
