package user

import (
	"time"

	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/utils"
)

type UserListItem struct {
	ID            uint      `json:"id"`
	Username      string    `json:"username"`
	Role          string    `json:"role"`
	Credits       int       `json:"credits"`
	TotalCreation int       `json:"totalCreation"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func newUserListItem(u *models.User) UserListItem {
	return UserListItem{
		ID:            u.ID,
		Username:      u.Username,
		Role:          u.Role,
		Credits:       u.Credits,
		TotalCreation: u.TotalCreation,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

type UserListResponse struct {
	utils.Pagination
	Users []UserListItem `json:"users"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty" binding:"omitempty,notblank,min=3,max=64"`
	Password *string `json:"password,omitempty" binding:"omitempty,min=6,max=128"`
	Role     *string `json:"role,omitempty" binding:"omitempty,oneof=admin user"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// AdjustCreditsRequest is a signed correction. Negative amounts may not take
// the balance below zero.
type AdjustCreditsRequest struct {
	Amount int    `json:"amount" binding:"required" example:"10"`
	Reason string `json:"reason" binding:"required,notblank,max=255" example:"Goodwill credit"`
}

type AdjustCreditsResponse struct {
	User          UserListItem `json:"user"`
	TransactionID uint         `json:"transaction_id"`
}
