package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// secretBytes of entropy encode to a 32 character base64url secret.
const secretBytes = 24

// Material is the output of key generation. Plaintext must only ever be
// returned to the caller that created the key.
type Material struct {
	Plaintext   string
	Fingerprint string
	Last4       string
}

// GenerateMaterial draws a fresh secret from crypto/rand.
func GenerateMaterial() (Material, error) {
	return generateMaterial(rand.Reader)
}

func generateMaterial(r io.Reader) (Material, error) {
	b := make([]byte, secretBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return Material{}, fmt.Errorf("read entropy: %w", err)
	}
	plaintext := base64.RawURLEncoding.EncodeToString(b)
	return Material{
		Plaintext:   plaintext,
		Fingerprint: Fingerprint(plaintext),
		Last4:       plaintext[len(plaintext)-4:],
	}, nil
}

// Fingerprint is the stored form of a secret: lowercase hex SHA-256.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
