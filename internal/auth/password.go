package auth

import (
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/creatorlane/marketplace/pkg/util/errorutil"
)

// ErrPasswordTooShort rejects registration passwords below the minimum length.
var ErrPasswordTooShort = apperrors.NewValidationError("password must be at least 8 characters", nil)

// minPasswordLength applies to registration only; stored hashes are
// verified as-is.
const minPasswordLength = 8

// HashPassword hashes a plaintext password with the configured bcrypt cost.
// Costs outside bcrypt's supported range fall back to the library default.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrPasswordTooShort
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
