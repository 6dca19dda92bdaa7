package sessions

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-tenant-server/accounts"
)

const tokenEntropyLength = 32

// Session is issued on successful login and read-only afterwards. It is
// valid iff now is before ExpiresAt; expired sessions behave exactly like
// absent ones no matter which cache still holds a stale copy.
type Session struct {
	Token            string             `json:"-"` // opaque, unguessable, never reused
	UserID           string             `json:"user_id"`
	CompanyID        string             `json:"company_id,omitempty"`
	GroupID          string             `json:"group_id,omitempty"`
	Demo             bool               `json:"demo,omitempty"`
	DelegatedOwnerID string             `json:"delegated_owner_id,omitempty"`
	Role             accounts.RoleType  `json:"role,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	ExpiresAt        time.Time          `json:"expires_at"`
}

// ValidAt reports whether the session is still live at the given instant.
func (s *Session) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// mintToken derives an opaque token from the account identity plus
// high-entropy randomness so tokens are never reused across logins.
func mintToken(accountID string) (string, error) {
	entropy := make([]byte, tokenEntropyLength)
	if _, err := rand.Read(entropy); err != nil {
		return "", errors.Wrap(err, "[mintToken] rand.Read")
	}

	material := append([]byte(accountID+uuid.New().String()), entropy...)
	hash := sha256.Sum256(material)
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(hash[:]), nil
}
