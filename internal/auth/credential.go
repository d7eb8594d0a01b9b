package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordMismatch = errors.New("password does not match")

// CredentialStore hashes and verifies passwords with bcrypt. The salt and
// cost travel inside each hash, and comparison is constant time.
type CredentialStore struct {
	cost  int
	dummy []byte
}

func NewCredentialStore(cost int) *CredentialStore {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	// compared against when the user does not exist so lookups cost the same
	dummy, _ := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	return &CredentialStore{cost: cost, dummy: dummy}
}

func (c *CredentialStore) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (c *CredentialStore) VerifyPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}

// Burn spends one comparison's worth of time without a real hash.
func (c *CredentialStore) Burn(password string) {
	_ = bcrypt.CompareHashAndPassword(c.dummy, []byte(password))
}

// GenerateRandomToken generates a cryptographically secure random token
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
