package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const (
	secretLen = 64
	codeLen   = 6

	secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randomString(alphabet string, n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("token: crypto/rand unavailable: " + err.Error())
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}

// NewSecret returns a fresh plaintext device secret and its storable hash.
// The plaintext leaves this package exactly once per call and is never persisted.
func NewSecret() (plaintext, hash string) {
	plaintext = randomString(secretAlphabet, secretLen)
	return plaintext, HashSecret(plaintext)
}

func HashSecret(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// VerifySecret compares a presented plaintext against a stored hash in
// constant time with respect to the secret.
func VerifySecret(hash, plaintext string) bool {
	if hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(hash), []byte(HashSecret(plaintext))) == 1
}

// NewBootstrapCode returns a 6-character human-transcribable pairing code.
// Uniqueness is the store's problem; callers retry on collision.
func NewBootstrapCode() string {
	return randomString(codeAlphabet, codeLen)
}
