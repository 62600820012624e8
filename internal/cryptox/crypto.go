// Package cryptox derives the login material exchanged with the server.
// The password never leaves the device: the client derives a master key with
// argon2id and sends only a verifier (a hash of that key).
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/dmitrijs2005/fintrack/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of per-user salts in bytes.
const SaltSize = 16

// NewSalt returns a random salt for a new account.
func NewSalt() ([]byte, error) {
	return common.RandomBytes(SaltSize)
}

// DeriveMasterKey stretches password with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier hashes the master key into the value the server stores.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// VerifierMatches compares verifiers in constant time.
func VerifierMatches(stored, presented []byte) bool {
	return len(stored) > 0 && subtle.ConstantTimeCompare(stored, presented) == 1
}
