package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt work factor; each unit doubles the cost of every hash and verify
const hashCost = bcrypt.DefaultCost

// reported when a stored digest cannot be parsed; callers treat it as a
// failed verification, not a crash
var ErrMalformedDigest = errors.New("malformed password digest")

// hashes a plaintext password with a per-password salt
func Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), hashCost)
	if err != nil {
		return "", err
	}

	return string(digest), nil
}

// checks a plaintext password against a stored digest in constant time;
// a mismatch is (false, nil), only an unreadable digest is an error
func Verify(plaintext, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrMalformedDigest
	}
}
