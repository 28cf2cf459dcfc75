package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher("unit-test-secret")
	require.NoError(t, err)
	return c
}

func TestCipherRoundTrip(t *testing.T) {
	c := newTestCipher(t)
	for _, s := range []string{
		"hello",
		"многострочный\nтекст с юникодом 🤖",
		"a",
		"{\"json\": true}",
	} {
		ct := c.Encrypt(s)
		require.NotEqual(t, s, ct)
		require.Equal(t, s, c.Decrypt(ct))
	}
}

func TestCipherEmptyStringIdentity(t *testing.T) {
	c := newTestCipher(t)
	require.Equal(t, "", c.Encrypt(""))
	require.Equal(t, "", c.Decrypt(""))
}

func TestCipherLegacyPlaintextPassesThrough(t *testing.T) {
	c := newTestCipher(t)
	legacy := "plain-unencrypted-text"
	require.Equal(t, legacy, c.Decrypt(legacy))

	got, wasEncrypted := c.Open(legacy)
	require.Equal(t, legacy, got)
	require.False(t, wasEncrypted)
}

func TestCipherWrongKeyReturnsInput(t *testing.T) {
	c1 := newTestCipher(t)
	c2, err := NewCipher("a-different-secret")
	require.NoError(t, err)

	ct := c1.Encrypt("secret contents")
	require.Equal(t, ct, c2.Decrypt(ct))
}

func TestCipherTamperedEnvelopeReturnsInput(t *testing.T) {
	c := newTestCipher(t)
	ct := c.Encrypt("secret contents")
	tampered := ct[:len(ct)-2] + "AA"
	require.Equal(t, tampered, c.Decrypt(tampered))
}

func TestCipherOpenReportsEncrypted(t *testing.T) {
	c := newTestCipher(t)
	ct := c.Encrypt("payload")
	got, wasEncrypted := c.Open(ct)
	require.True(t, wasEncrypted)
	require.Equal(t, "payload", got)
}

func TestCipherNonDeterministicEnvelope(t *testing.T) {
	c := newTestCipher(t)
	require.NotEqual(t, c.Encrypt("same input"), c.Encrypt("same input"))
}

func TestNewCipherRejectsEmptySecret(t *testing.T) {
	_, err := NewCipher("")
	require.Error(t, err)
}
