package security

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

// Keys are the signing keys derived from the application secret
type Keys struct {
	Token []byte // trainee cookie signatures
	CSRF  []byte // form tokens
}

// DeriveKeys expands the application secret into one key per purpose
func DeriveKeys(secret string) (Keys, error) {
	if secret == "" {
		return Keys{}, fmt.Errorf("application secret is required")
	}

	token, err := deriveKey(secret, "fcetrainer trainee token")
	if err != nil {
		return Keys{}, err
	}
	csrf, err := deriveKey(secret, "fcetrainer csrf")
	if err != nil {
		return Keys{}, err
	}
	return Keys{Token: token, CSRF: csrf}, nil
}

func deriveKey(secret, info string) ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive %s key: %w", info, err)
	}
	return key, nil
}
