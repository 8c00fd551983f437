package keys

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMaterial(t *testing.T) {
	m, err := GenerateMaterial()
	require.NoError(t, err)

	assert.Len(t, m.Plaintext, 32)
	assert.Equal(t, m.Plaintext[len(m.Plaintext)-4:], m.Last4)
	assert.Equal(t, Fingerprint(m.Plaintext), m.Fingerprint)
	assert.NotContains(t, m.Fingerprint, m.Plaintext)
	assert.NotContains(t, m.Plaintext, "=")
	assert.NotContains(t, m.Plaintext, "+")
	assert.NotContains(t, m.Plaintext, "/")
}

func TestGenerateMaterial_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		m, err := GenerateMaterial()
		require.NoError(t, err)
		require.False(t, seen[m.Fingerprint], "fingerprint repeated")
		seen[m.Fingerprint] = true
	}
}

func TestGenerateMaterial_Deterministic(t *testing.T) {
	src := bytes.Repeat([]byte{0xff}, secretBytes)
	m, err := generateMaterial(bytes.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "________________________________", m.Plaintext)
	assert.Equal(t, "____", m.Last4)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateMaterial_EntropyFailure(t *testing.T) {
	_, err := generateMaterial(failingReader{})
	assert.ErrorContains(t, err, "entropy exhausted")

	_, err = generateMaterial(bytes.NewReader(make([]byte, 3)))
	assert.Error(t, err, "short read must fail")
}

func TestFingerprint(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", Fingerprint("abc"))
	assert.Equal(t, Fingerprint("same"), Fingerprint("same"))
	assert.NotEqual(t, Fingerprint("s1"), Fingerprint("s2"))
	assert.Len(t, Fingerprint(""), 64)
}
