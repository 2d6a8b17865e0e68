// Package events fans project lifecycle notifications out to subscribers.
package events

import (
	"context"
	"errors"
	"time"
)

const (
	ProjectCreated     = "project.created"
	ProjectCompleted   = "project.completed"
	ProjectFailed      = "project.failed"
	ProjectRevised     = "project.revised"
	ProjectRolledBack  = "project.rolled_back"
	ProjectSaved       = "project.saved"
	ProjectPublished   = "project.published"
	ProjectUnpublished = "project.unpublished"
	ProjectDeleted     = "project.deleted"
)

type Event struct {
	Type      string                 `json:"type"`
	ProjectID string                 `json:"project_id"`
	UserID    uint                   `json:"user_id"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func New(eventType, projectID string, userID uint, data map[string]interface{}) Event {
	return Event{
		Type:      eventType,
		ProjectID: projectID,
		UserID:    userID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every wrapped publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
