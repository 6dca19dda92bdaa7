package accounts

import (
	"fmt"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType represents an account role within its tenant
type RoleType string

const (
	RoleAdmin  RoleType = "admin"
	RoleMember RoleType = "member"
)

// Account is the durable identity record. It is created on registration,
// updated on login (last-login timestamp) and never hard-deleted.
type Account struct {
	ID           string    `json:"id,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never serialize
	CompanyID    string    `json:"company_id,omitempty"`
	GroupID      string    `json:"group_id,omitempty"`
	Demo         bool      `json:"demo,omitempty"` // demo accounts share the seeded demo tenant
	Plan         string    `json:"plan,omitempty"`
	Role         RoleType  `json:"role,omitempty"`
	TrialEndsAt  time.Time `json:"trial_ends_at,omitempty"`

	// DelegatedOwnerID is set for invited users working inside another
	// account's tenant scope.
	DelegatedOwnerID string `json:"delegated_owner_id,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	LastLogin time.Time `json:"last_login,omitempty"`
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// OnTrial reports whether the account's trial window is still open.
func (a *Account) OnTrial(now time.Time) bool {
	return !a.TrialEndsAt.IsZero() && now.Before(a.TrialEndsAt)
}
