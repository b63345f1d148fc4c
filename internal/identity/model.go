// File: internal/identity/model.go
package identity

import (
	"cafe_client/internal/common"
)

// Account is a database-connection user of the stub identity provider.
type Account struct {
	common.BaseModel
	Email         string `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash  string `gorm:"type:varchar(255);not null"`
	DisplayName   string `gorm:"type:varchar(200)"`
	Connection    string `gorm:"type:varchar(100);not null"`
	EmailVerified bool   `gorm:"not null;default:false"`
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "idp_accounts"
}

// --- Wire formats ---

// TokenRequest is the body of POST /oauth/token.
type TokenRequest struct {
	GrantType    string `json:"grant_type" form:"grant_type" binding:"required"`
	Username     string `json:"username" form:"username"`
	Password     string `json:"password" form:"password"`
	Audience     string `json:"audience" form:"audience"`
	ClientID     string `json:"client_id" form:"client_id" binding:"required"`
	ClientSecret string `json:"client_secret" form:"client_secret"`
	Connection   string `json:"connection" form:"connection"`
	Scope        string `json:"scope" form:"scope"`
}

// TokenResponse is the success body of POST /oauth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// SignupRequest is the body of POST /dbconnections/signup.
type SignupRequest struct {
	ClientID   string `json:"client_id" binding:"required"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Connection string `json:"connection"`
	Name       string `json:"name"`
}

// SignupResponse is the success body of POST /dbconnections/signup.
type SignupResponse struct {
	ID            string `json:"_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// VerifyEmailRequest is the body of POST /dev/verify-email.
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// RevokeRequest is the body of POST /oauth/revoke.
type RevokeRequest struct {
	Token string `json:"token" binding:"required"`
}
