// File: internal/cafe/model.go
package cafe

import (
	"cafe_client/internal/common"

	"github.com/google/uuid"
)

// Cafe is the one café a manager registers.
type Cafe struct {
	common.BaseModel
	ManagerID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Slug      string    `gorm:"type:varchar(220);uniqueIndex;not null"`
	Address   string    `gorm:"type:varchar(300)"`
}

// TableName specifies the table name for the Cafe model.
func (Cafe) TableName() string {
	return "cafes"
}

// CreateCafeRequest is the body of POST /managers/me/cafe.
type CreateCafeRequest struct {
	Name    string `json:"name" binding:"required,min=2,max=200"`
	Address string `json:"address" binding:"max=300"`
}

// CafeResponse is what the client app decodes as its café summary.
type CafeResponse struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Address string `json:"address,omitempty"`
}

// ToCafeResponse converts a Cafe model to a CafeResponse DTO.
func ToCafeResponse(c *Cafe) CafeResponse {
	return CafeResponse{
		ID:      c.ID.String(),
		Name:    c.Name,
		Slug:    c.Slug,
		Address: c.Address,
	}
}
