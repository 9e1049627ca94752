//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// Race builds run much slower, keep hashing at the library minimum.
	return bcrypt.MinCost
}
