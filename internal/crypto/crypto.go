// Package crypto derives fixed-size database keys from operator secrets.
// Keys are derived with HKDF-SHA256 using a scope string for domain separation,
// so the word store and the client mirror never share a key even when they
// are configured with the same secret.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of a derived key in bytes (256 bits)
	KeySize = 32

	// ScopeWordStore separates keys for the server word database.
	ScopeWordStore = "wordfeed:store:v1"

	// ScopeMirror separates keys for the client mirror database.
	ScopeMirror = "wordfeed:mirror:v1"
)

// DeriveKey derives a KeySize key from secret for the given scope.
// The same secret and scope always produce the same key.
func DeriveKey(secret []byte, scope string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("secret cannot be empty")
	}
	if scope == "" {
		return nil, fmt.Errorf("scope cannot be empty")
	}

	// Salt is nil; secrets are operator supplied and scoped by info.
	reader := hkdf.New(sha256.New, secret, nil, []byte(scope))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("HKDF failed: %w", err)
	}
	return key, nil
}

// KeyFromConfig turns a configured secret into a database key.
// An empty secret means "unencrypted" and yields a nil key.
// A 64 character hex string is used verbatim as the raw key.
func KeyFromConfig(secret, scope string) ([]byte, error) {
	if secret == "" {
		return nil, nil
	}
	if len(secret) == KeySize*2 {
		if raw, err := hex.DecodeString(secret); err == nil {
			return raw, nil
		}
	}
	return DeriveKey([]byte(secret), scope)
}
