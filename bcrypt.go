package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordHashCost matches the cost used by the existing YapYap clients.
const DefaultPasswordHashCost = 10

type bcryptPasswords struct {
	cost int
}

// NewBcryptPasswords returns a PasswordAuthenticator using bcrypt with the
// given cost. Zero or out of range costs fall back to the build default.
func NewBcryptPasswords(cost int) PasswordAuthenticator {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return bcryptPasswords{cost: cost}
}

func (b bcryptPasswords) HashPassword(password string) (string, error) {
	return hashPassword(password, b.cost)
}

func (b bcryptPasswords) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return hashPassword(password, passwordHashCost())
}

func hashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}
