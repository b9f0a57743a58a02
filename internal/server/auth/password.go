// Package auth hashes and verifies local-auth passwords.
package auth

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	saltLen      = 16
	keyLen       = 32
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// HashPassword derives an argon2id key from password and a random salt.
// The result is salt followed by key.
func HashPassword(password string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return append(salt, derive(password, salt)...), nil
}

// CheckPassword reports whether password matches a hash made by
// HashPassword, in constant time.
func CheckPassword(hash []byte, password string) bool {
	if len(hash) != saltLen+keyLen {
		return false
	}
	salt, key := hash[:saltLen], hash[saltLen:]
	return subtle.ConstantTimeCompare(key, derive(password, salt)) == 1
}

func derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, keyLen)
}
