package user

import (
	"time"

	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/utils"
)

// UserResponse defines the response structure for user information.
type UserResponse struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	Credits       int    `json:"credits"`
	TotalCreation int    `json:"totalCreation"`
	IsActive      bool   `json:"is_active"`
	Token         string `json:"token,omitempty"`
}

func NewUserResponse(u *models.User, token string) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Role:          u.Role,
		Credits:       u.Credits,
		TotalCreation: u.TotalCreation,
		IsActive:      u.IsActive,
		Token:         token,
	}
}

type CreditsResponse struct {
	Credits int `json:"credits"`
}

type CreateProjectInput struct {
	InitialPrompt string `json:"initial_prompt" binding:"required,notblank,max=10000" example:"A landing page for a neighbourhood bakery"`
}

type CreateProjectResponse struct {
	ProjectID string `json:"projectId"`
}

// ProjectResponse is a project with its transcript and history. Both lists
// are always present, empty for a project that has none yet.
type ProjectResponse struct {
	ID                  string                     `json:"id"`
	Name                string                     `json:"name"`
	InitialPrompt       string                     `json:"initial_prompt"`
	CurrentCode         *string                    `json:"current_code"`
	CurrentVersionIndex string                     `json:"current_version_index"`
	IsPublished         bool                       `json:"isPublished"`
	UserID              uint                       `json:"userId"`
	CreatedAt           time.Time                  `json:"createdAt"`
	UpdatedAt           time.Time                  `json:"updatedAt"`
	Conversation        []models.ConversationEntry `json:"conversation"`
	Versions            []models.Version           `json:"versions"`
}

func NewProjectResponse(p *models.Project) ProjectResponse {
	resp := ProjectResponse{
		ID:                  p.ID,
		Name:                p.Name,
		InitialPrompt:       p.InitialPrompt,
		CurrentCode:         p.CurrentCode,
		CurrentVersionIndex: p.CurrentVersionIndex,
		IsPublished:         p.IsPublished,
		UserID:              p.UserID,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
		Conversation:        p.Conversation,
		Versions:            p.Versions,
	}
	if resp.Conversation == nil {
		resp.Conversation = []models.ConversationEntry{}
	}
	if resp.Versions == nil {
		resp.Versions = []models.Version{}
	}
	return resp
}

// ProjectDetailResponse carries the full project plus the state of its
// creation job, so pollers can stop once generation fails.
type ProjectDetailResponse struct {
	Credits    int                   `json:"credits"`
	Project    ProjectResponse       `json:"project"`
	Generation *models.GenerationJob `json:"generation"`
}

type RecentProjectResponse struct {
	Credits int             `json:"credits"`
	Project *models.Project `json:"project"`
}

type ProjectListResponse struct {
	utils.Pagination
	Items []models.Project `json:"items"`
}

type PublishToggleResponse struct {
	ID          string `json:"id"`
	IsPublished bool   `json:"isPublished"`
}
