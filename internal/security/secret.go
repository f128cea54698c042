package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"

	"go.uber.org/zap/zapcore"
)

// SecretBytes is the entropy of access-token and session secrets (256 bits).
const SecretBytes = 32

// Secret is a raw bearer secret. It is handed to the client exactly once and never
// persisted; String and the zap encoder redact it so it cannot leak into logs.
type Secret string

func (s Secret) String() string { return "[redacted]" }

// MarshalText keeps encoding/json and text encoders from writing the raw value.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[redacted]"), nil }

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Secret) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("secret", "[redacted]")
	return nil
}

// Reveal returns the raw secret for embedding in a link or cookie.
func (s Secret) Reveal() string { return string(s) }

// GenerateSecret returns a new base64url (unpadded) encoded secret read from crypto/rand.
func GenerateSecret() (Secret, error) {
	b := make([]byte, SecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return Secret(base64.RawURLEncoding.EncodeToString(b)), nil
}

// HashSecret returns the SHA-256 hash of the raw secret, hex-encoded. Only this
// value is stored.
func HashSecret(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
