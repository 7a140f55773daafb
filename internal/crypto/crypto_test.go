package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func testDeriveKeyDeterministic(t *rapid.T) {
	secret := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "secret")
	scope := rapid.StringN(1, 32, -1).Draw(t, "scope")

	a, err := DeriveKey(secret, scope)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	b, err := DeriveKey(secret, scope)
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	if len(a) != KeySize {
		t.Fatalf("key length = %d, want %d", len(a), KeySize)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("derivation is not deterministic")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	rapid.Check(t, testDeriveKeyDeterministic)
}

func FuzzDeriveKeyDeterministic(f *testing.F) {
	f.Fuzz(rapid.MakeFuzz(testDeriveKeyDeterministic))
}

func TestDeriveKey_ScopesDiffer(t *testing.T) {
	store, err := DeriveKey([]byte("secret"), ScopeWordStore)
	require.NoError(t, err)
	mirror, err := DeriveKey([]byte("secret"), ScopeMirror)
	require.NoError(t, err)
	assert.NotEqual(t, store, mirror)
}

func TestDeriveKey_RejectsEmpty(t *testing.T) {
	_, err := DeriveKey(nil, ScopeMirror)
	assert.Error(t, err)
	_, err = DeriveKey([]byte("x"), "")
	assert.Error(t, err)
}

func TestKeyFromConfig(t *testing.T) {
	key, err := KeyFromConfig("", ScopeMirror)
	require.NoError(t, err)
	assert.Nil(t, key)

	raw := bytes.Repeat([]byte{0xab}, KeySize)
	key, err = KeyFromConfig(hex.EncodeToString(raw), ScopeMirror)
	require.NoError(t, err)
	assert.Equal(t, raw, key)

	key, err = KeyFromConfig("passphrase", ScopeMirror)
	require.NoError(t, err)
	assert.Len(t, key, KeySize)
}
