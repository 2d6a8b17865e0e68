package project

import (
	"context"
	"net/http"
	"time"

	"sitesmith-backend/internal/api/v1/common"
	"sitesmith-backend/internal/api/v1/user"
	"sitesmith-backend/internal/events"
	"sitesmith-backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	SnapshotMessage = "project.snapshot"

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// EventSource streams lifecycle events for one project until ctx ends.
type EventSource interface {
	Subscribe(ctx context.Context, projectID string) (<-chan events.Event, error)
}

// Stream pushes a project's lifecycle events to a websocket client, starting
// with a snapshot of the project so the client never has to poll.
type Stream struct {
	projects *services.ProjectService
	source   EventSource
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewStream(projects *services.ProjectService, source EventSource, allowedOrigins []string, log *zap.Logger) *Stream {
	return &Stream{
		projects: projects,
		source:   source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin.
		return origin == "" || set["*"] || set[origin]
	}
}

// Serve godoc
// @Summary Project event stream
// @Description Websocket. Sends a project.snapshot frame, then one frame per lifecycle event. Browsers may pass the token as ?token=.
// @Tags project
// @Security Bearer
// @Param   projectId path string true "Project ID"
// @Param   token query string false "Bearer token for browsers"
// @Success 101
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /project/{projectId}/events [get]
func (s *Stream) Serve(c *gin.Context) {
	u, ok := common.RequireUser(c)
	if !ok {
		return
	}
	projectID := c.Param("projectId")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	detail, err := s.projects.Detail(c.Request.Context(), u.ID, projectID)
	if err != nil {
		common.RespondError(c, s.log, err, map[int]string{http.StatusNotFound: msgProjectNotFound})
		return
	}

	// Subscribe before the snapshot so nothing between the two is lost.
	stream, err := s.source.Subscribe(ctx, projectID)
	if err != nil {
		common.RespondError(c, s.log, err, nil)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.log.Warn("websocket upgrade failed", zap.String("project_id", projectID), zap.Error(err))
		return
	}
	defer conn.Close()

	snapshot := StreamMessage{
		Type:      SnapshotMessage,
		ProjectID: projectID,
		Data: user.ProjectDetailResponse{
			Credits:    u.Credits,
			Project:    user.NewProjectResponse(detail.Project),
			Generation: detail.Generation,
		},
		Timestamp: time.Now().Unix(),
	}
	if err := write(conn, snapshot); err != nil {
		return
	}

	go s.readPump(conn, cancel)
	s.writePump(ctx, conn, stream, u.ID)
}

// readPump discards client frames and cancels the stream once the peer goes
// away or stops answering pings.
func (s *Stream) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

func (s *Stream) writePump(ctx context.Context, conn *websocket.Conn, stream <-chan events.Event, userID uint) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			// Only the owner's events are forwarded.
			if event.UserID != 0 && event.UserID != userID {
				continue
			}
			msg := StreamMessage{Type: event.Type, ProjectID: event.ProjectID, Data: event.Data, Timestamp: event.Timestamp}
			if err := write(conn, msg); err != nil {
				s.log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func write(conn *websocket.Conn, msg StreamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
