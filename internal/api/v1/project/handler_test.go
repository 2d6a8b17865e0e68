package project_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitesmith-backend/internal/api/v1/project"
	"sitesmith-backend/internal/events"
	"sitesmith-backend/internal/middleware"
	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) (*gin.Engine, *testutil.Stack) {
	t.Helper()
	s := testutil.NewStack(t)
	stream := project.NewStream(s.Projects, s.Bus, []string{"http://localhost:5173"}, s.Log)
	h := project.NewHandler(s.Projects, s.Orchestrator, stream, s.Log)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"), middleware.Auth(s.Tokens, s.Denylist, s.Users))
	return r, s
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func creditsOf(t *testing.T, s *testutil.Stack, id uint) int {
	t.Helper()
	var u models.User
	require.NoError(t, s.DB.First(&u, id).Error)
	return u.Credits
}

func headOf(t *testing.T, s *testutil.Stack, id string) models.Project {
	t.Helper()
	var p models.Project
	require.NoError(t, s.DB.First(&p, "id = ?", id).Error)
	return p
}

func TestRevise(t *testing.T) {
	r, s := setupRouter(t)
	owner := s.User(t, "alice", models.RoleUser, 10)
	token := s.Token(t, owner)
	p := s.Project(t, owner, "a bakery")
	path := "/api/v1/project/revision/" + p.ID

	w, env := do(t, r, http.MethodPost, path, token, map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodPost, path, token, map[string]string{"message": "add a menu"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Changes made successfully", env.Message)
	var version project.VersionResponse
	require.NoError(t, json.Unmarshal(env.Data, &version))
	assert.Equal(t, version.ID, headOf(t, s, p.ID).CurrentVersionIndex)
	assert.Equal(t, 0, creditsOf(t, s, owner.ID))

	w, env = do(t, r, http.MethodPost, path, token, map[string]string{"message": "again"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "add more credits to make changes", env.Message)

	w, env = do(t, r, http.MethodPost, "/api/v1/project/revision/missing", token, map[string]string{"message": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Project not found", env.Message)
}

func TestReviseFailureIsRefundedAndHidden(t *testing.T) {
	r, s := setupRouter(t)
	owner := s.User(t, "alice", models.RoleUser, 10)
	p := s.Project(t, owner, "a bakery")
	before := headOf(t, s, p.ID)
	s.Generator.Err = errors.New("upstream said: quota exceeded for key sk-123")

	w, env := do(t, r, http.MethodPost, "/api/v1/project/revision/"+p.ID, s.Token(t, owner), map[string]string{"message": "add a menu"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, env.Message, "sk-123")
	assert.Equal(t, 5, creditsOf(t, s, owner.ID))

	after := headOf(t, s, p.ID)
	assert.Equal(t, before.CurrentVersionIndex, after.CurrentVersionIndex)
	assert.Equal(t, *before.CurrentCode, *after.CurrentCode)
}

func TestReviseBusyProject(t *testing.T) {
	r, s := setupRouter(t)
	owner := s.User(t, "alice", models.RoleUser, 10)
	p := s.Project(t, owner, "a bakery")

	release, err := services.NewProjectLocker(s.Redis, time.Minute, s.Log).Acquire(context.Background(), p.ID)
	require.NoError(t, err)
	defer release()

	w, env := do(t, r, http.MethodPost, "/api/v1/project/revision/"+p.ID, s.Token(t, owner), map[string]string{"message": "add a menu"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "This project is already being updated, please wait", env.Message)
	assert.Equal(t, 5, creditsOf(t, s, owner.ID))
}

func TestSaveRollbackAndPreview(t *testing.T) {
	r, s := setupRouter(t)
	owner := s.User(t, "alice", models.RoleUser, 10)
	token := s.Token(t, owner)
	p := s.Project(t, owner, "a bakery")
	initial := p.CurrentVersionIndex

	w, env := do(t, r, http.MethodPut, "/api/v1/project/save/"+p.ID, token, map[string]string{"code": "<p>mine</p>"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Project code saved successfully", env.Message)
	saved := headOf(t, s, p.ID)
	assert.Equal(t, "<p>mine</p>", *saved.CurrentCode)
	assert.Empty(t, saved.CurrentVersionIndex)

	w, _ = do(t, r, http.MethodPut, "/api/v1/project/save/"+p.ID, token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/v1/project/rollback/"+p.ID+"/"+initial, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Version rolled back", env.Message)
	rolled := headOf(t, s, p.ID)
	assert.Equal(t, initial, rolled.CurrentVersionIndex)
	assert.Equal(t, testutil.Document, *rolled.CurrentCode)

	w, env = do(t, r, http.MethodGet, "/api/v1/project/rollback/"+p.ID+"/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Version not found", env.Message)

	w, env = do(t, r, http.MethodGet, "/api/v1/project/preview/"+p.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var preview struct {
		ID       string           `json:"id"`
		Versions []models.Version `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, p.ID, preview.ID)
	assert.Len(t, preview.Versions, 1, "save and rollback add no versions")
}

func TestPublishedAndDelete(t *testing.T) {
	r, s := setupRouter(t)
	owner := s.User(t, "alice", models.RoleUser, 10)
	token := s.Token(t, owner)
	p := s.Project(t, owner, "a bakery")

	w, _ := do(t, r, http.MethodGet, "/api/v1/project/published/"+p.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "unpublished projects are hidden even with code")

	_, _, err := s.Projects.TogglePublish(context.Background(), owner.ID, p.ID)
	require.NoError(t, err)

	w, env := do(t, r, http.MethodGet, "/api/v1/project/published/"+p.ID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var published project.PublishedResponse
	require.NoError(t, json.Unmarshal(env.Data, &published))
	assert.Equal(t, testutil.Document, published.Code)

	stranger := s.User(t, "mallory", models.RoleUser, 0)
	w, _ = do(t, r, http.MethodDelete, "/api/v1/project/"+p.ID, s.Token(t, stranger), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = do(t, r, http.MethodDelete, "/api/v1/project/"+p.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Project deleted successfully", env.Message)

	w, _ = do(t, r, http.MethodGet, "/api/v1/project/published/"+p.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventStream(t *testing.T) {
	r, s := setupRouter(t)
	owner := s.User(t, "alice", models.RoleUser, 10)
	token := s.Token(t, owner)
	p := s.Project(t, owner, "a bakery")

	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/project/"

	t.Run("Rejects foreign origin", func(t *testing.T) {
		header := http.Header{"Origin": {"https://evil.example"}}
		_, resp, err := websocket.DefaultDialer.Dial(base+p.ID+"/events?token="+token, header)
		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Missing project", func(t *testing.T) {
		_, resp, err := websocket.DefaultDialer.Dial(base+"missing/events?token="+token, nil)
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Snapshot then events", func(t *testing.T) {
		header := http.Header{"Origin": {"http://localhost:5173"}}
		conn, _, err := websocket.DefaultDialer.Dial(base+p.ID+"/events?token="+token, header)
		require.NoError(t, err)
		defer conn.Close()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

		var snapshot struct {
			Type string `json:"type"`
			Data struct {
				Project struct {
					ID string `json:"id"`
				} `json:"project"`
			} `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&snapshot))
		assert.Equal(t, project.SnapshotMessage, snapshot.Type)
		assert.Equal(t, p.ID, snapshot.Data.Project.ID)

		require.NoError(t, s.Orchestrator.Save(context.Background(), owner.ID, p.ID, "<p>live</p>"))

		var msg project.StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, events.ProjectSaved, msg.Type)
		assert.Equal(t, p.ID, msg.ProjectID)
	})
}
