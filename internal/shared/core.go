// File: internal/shared/core.go
package shared

import (
	"encoding/json"
	"strings"
)

// Role is the application role a backend assigns to an account.
type Role string

const (
	RoleClient  Role = "client"
	RoleManager Role = "manager"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleManager
}

// User is the backend's view of the signed-in account.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	EmailVerified *bool  `json:"emailVerified,omitempty"`
}

// UnmarshalJSON accepts both "id" and the backend's "_id".
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.MongoID
	}
	return nil
}

// IsManager reports whether the user has the manager role.
func (u User) IsManager() bool {
	return u.Role == RoleManager
}

// EmailUnverified is true only when the backend explicitly says the email is not verified.
func (u User) EmailUnverified() bool {
	return u.EmailVerified != nil && !*u.EmailVerified
}

// Session is the token plus user record kept on the device.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Valid reports whether the session carries a token and an identifiable user.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != "" && strings.TrimSpace(s.User.Email) != ""
}

// RegistrationData is what the register screen collects. The same shape is
// replayed on verify-and-sync.
type RegistrationData struct {
	Email     string `json:"email"`
	Password  string `json:"-"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role"`
}

// DisplayName is the name sent to the identity provider on signup.
func (d RegistrationData) DisplayName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Profile returns the identity payload sent to the backend sync endpoint.
func (d RegistrationData) Profile() Profile {
	return Profile{Email: d.Email, FirstName: d.FirstName, LastName: d.LastName}
}

// PendingRegistration is held in memory only while email verification is outstanding.
// It includes the plaintext password so the verify step can sign in.
type PendingRegistration struct {
	RegistrationData
}

// Profile is the body of the sync-client and sync-manager calls.
type Profile struct {
	Email          string `json:"email"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	ProfilePicture string `json:"profilePicture"`
}

// CafeSummary is the manager's café as returned by the backend.
type CafeSummary struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}
