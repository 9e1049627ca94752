package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/yapyap/go-auth"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPassword(tt.password)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, auth.ComparePasswordAndHash(tt.password, hash))
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("testPassword123!")
	require.NoError(t, err)

	err = auth.ComparePasswordAndHash("wrongPassword", hash)
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidCredentials))

	err = auth.ComparePasswordAndHash("testPassword123!", "short")
	require.ErrorIs(t, err, bcrypt.ErrHashTooShort)
}

func TestNewBcryptPasswordsCost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{name: "explicit cost", cost: bcrypt.MinCost + 1, want: bcrypt.MinCost + 1},
		{name: "zero falls back", cost: 0},
		{name: "too high falls back", cost: bcrypt.MaxCost + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.NewBcryptPasswords(tt.cost).HashPassword("pw")
			require.NoError(t, err)

			cost, err := bcrypt.Cost([]byte(hash))
			require.NoError(t, err)
			if tt.want != 0 {
				assert.Equal(t, tt.want, cost)
			} else {
				assert.GreaterOrEqual(t, cost, bcrypt.MinCost)
				assert.LessOrEqual(t, cost, auth.DefaultPasswordHashCost)
			}
		})
	}
}
