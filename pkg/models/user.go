package models

import (
	"time"

	"github.com/google/uuid"
)

// ProfileType is the role a user plays in the trade network.
type ProfileType string

const (
	ProfileIntroducer      ProfileType = "introducer"
	ProfileBroker          ProfileType = "broker"
	ProfileMandate         ProfileType = "mandate"
	ProfilePrincipalBuyer  ProfileType = "principal_buyer"
	ProfilePrincipalSeller ProfileType = "principal_seller"
)

// ValidProfileTypes contains all valid profile types.
var ValidProfileTypes = []ProfileType{
	ProfileIntroducer, ProfileBroker, ProfileMandate, ProfilePrincipalBuyer, ProfilePrincipalSeller,
}

// IsValidProfileType checks if the given profile type is valid.
func IsValidProfileType(p ProfileType) bool {
	for _, v := range ValidProfileTypes {
		if v == p {
			return true
		}
	}
	return false
}

// User is a registered account. PasswordHash is SHA-256 of password+salt;
// plaintext passwords are never stored.
type User struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Salt         string      `json:"-"`
	ProfileType  ProfileType `json:"profile_type,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
