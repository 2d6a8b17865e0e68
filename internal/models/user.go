package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Username      string    `gorm:"uniqueIndex;not null" json:"username"`
	Password      string    `gorm:"not null" json:"-"`
	Role          string    `gorm:"not null;default:'user'" json:"role"`
	Credits       int       `gorm:"not null;default:0" json:"credits"`
	TotalCreation int       `gorm:"not null;default:0" json:"totalCreation"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	Version       int       `gorm:"default:1" json:"version"`
}
