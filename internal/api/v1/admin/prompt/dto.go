package prompt

import (
	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/utils"
)

type CreatePromptRequest struct {
	Code    string `json:"code" binding:"required,oneof=enhance_creation enhance_revision generate_creation generate_revision"`
	Content string `json:"content" binding:"required,notblank"`
}

type UpdatePromptRequest struct {
	Content string `json:"content" binding:"required,notblank"`
}

type PromptListResponse struct {
	utils.Pagination
	Items []models.Prompt `json:"items"`
}

// PromptResponse is the instruction in effect for a code. Overridden is false
// when the built-in default is being served.
type PromptResponse struct {
	Code       string `json:"code"`
	Content    string `json:"content"`
	Overridden bool   `json:"overridden"`
}
