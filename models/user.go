package models

import (
	"time"

	"gorm.io/gorm"
)

// User is the minimal identity record this service needs. Registration, OTP
// and profile management live in the identity service; rows here are resolved
// from its tokens.
type User struct {
	gorm.Model
	Username    string     `gorm:"uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	IsCreator   bool       `json:"is_creator" gorm:"default:false"`
	IsBlocked   bool       `json:"is_blocked"`
	LastLoginAt *time.Time `json:"last_login_at"`
}
