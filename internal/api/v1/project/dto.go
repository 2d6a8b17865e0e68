package project

import "sitesmith-backend/internal/models"

type RevisionInput struct {
	Message string `json:"message" binding:"required,notblank,max=10000" example:"Make the header sticky and add a contact form"`
}

type SaveInput struct {
	Code string `json:"code" binding:"required,notblank"`
}

// VersionResponse describes the version the head now points at.
type VersionResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Timestamp   int64  `json:"timestamp"`
}

func newVersionResponse(v *models.Version) VersionResponse {
	return VersionResponse{ID: v.ID, Description: v.Description, Timestamp: v.Timestamp.Unix()}
}

type PublishedResponse struct {
	Code string `json:"code"`
}

// StreamMessage is one frame of the project event stream.
type StreamMessage struct {
	Type      string      `json:"type"`
	ProjectID string      `json:"project_id"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}
