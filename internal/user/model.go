// File: internal/user/model.go
package user

import (
	"cafe_client/internal/common"
	"cafe_client/internal/shared"

	"github.com/google/uuid"
)

// Member is a client or manager record of the application backend, keyed by
// the identity provider subject.
type Member struct {
	common.BaseModel
	Subject        uuid.UUID   `gorm:"type:uuid;uniqueIndex;not null"`
	Email          string      `gorm:"type:varchar(255);not null"`
	FirstName      string      `gorm:"type:varchar(100)"`
	LastName       string      `gorm:"type:varchar(100)"`
	ProfilePicture string      `gorm:"type:text"`
	Role           shared.Role `gorm:"type:varchar(20);not null"`
	EmailVerified  bool        `gorm:"not null;default:false"`
}

// TableName specifies the table name for the Member model.
func (Member) TableName() string {
	return "members"
}

// --- DTOs ---

// SyncRequest is the body of POST /sync-client and /sync-manager.
type SyncRequest struct {
	Email          string `json:"email" binding:"omitempty,email"`
	FirstName      string `json:"firstName" binding:"max=100"`
	LastName       string `json:"lastName" binding:"max=100"`
	ProfilePicture string `json:"profilePicture" binding:"omitempty,max=2048"`
}

// Identity is what the auth middleware knows about the caller.
type Identity struct {
	Subject       uuid.UUID
	Email         string
	EmailVerified bool
}

// RoleResponse is the body of GET /users/role.
type RoleResponse struct {
	ID            string      `json:"_id"`
	Email         string      `json:"email"`
	Role          shared.Role `json:"role"`
	EmailVerified bool        `json:"emailVerified"`
}

// ToRoleResponse converts a Member into the GET /users/role body.
func ToRoleResponse(m *Member) RoleResponse {
	return RoleResponse{
		ID:            m.ID.String(),
		Email:         m.Email,
		Role:          m.Role,
		EmailVerified: m.EmailVerified,
	}
}
