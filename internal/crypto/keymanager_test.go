package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "correct horse battery staple")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestDecryptWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "right")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestEncryptRequiresPassword(t *testing.T) {
	_, err := EncryptKey(testKeyHex, "")
	assert.Error(t, err)
}

func TestEncryptionIsSalted(t *testing.T) {
	a, err := EncryptKey(testKeyHex, "pw")
	require.NoError(t, err)
	b, err := EncryptKey(testKeyHex, "pw")
	require.NoError(t, err)

	assert.NotEqual(t, string(a), string(b))
}

func TestLoadKeyRawTakesPrecedence(t *testing.T) {
	got, err := LoadKey(KeyConfig{
		RawPrivateKey:    "0x" + testKeyHex,
		EncryptedKeyPath: "/nonexistent",
	})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestLoadKeyRejectsBadHex(t *testing.T) {
	_, err := LoadKey(KeyConfig{RawPrivateKey: "0xnothex"})
	assert.Error(t, err)
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestLoadKeyNoSource(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	assert.Error(t, err)
}

func TestNewTxSigner(t *testing.T) {
	s, err := NewTxSigner("0x"+testKeyHex, 42220)
	require.NoError(t, err)

	assert.Equal(t, strings.ToLower("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"),
		strings.ToLower(s.Address().Hex()))
	assert.EqualValues(t, 42220, s.ChainID().Int64())

	opts, err := s.TransactOpts()
	require.NoError(t, err)
	assert.Equal(t, s.Address(), opts.From)
}

func TestNewTxSignerRejectsInvalidKey(t *testing.T) {
	_, err := NewTxSigner("zz", 42220)
	assert.Error(t, err)
}
