package prompt_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sitesmith-backend/internal/api/v1/admin/prompt"
	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/services"
	"sitesmith-backend/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(method, path string, body interface{}, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(method, path, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	return c, w
}

func TestCreatePrompt(t *testing.T) {
	s := testutil.NewStack(t)
	h := prompt.NewHandler(s.Prompts, s.Log)

	c, w := newContext(http.MethodPost, "/admin/prompts", prompt.CreatePromptRequest{
		Code:    services.PromptCodeEnhanceRevision,
		Content: "Rewrite as one sentence.",
	})
	h.CreatePrompt(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data models.Prompt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, services.PromptCodeEnhanceRevision, resp.Data.Code)

	c, w = newContext(http.MethodPost, "/admin/prompts", prompt.CreatePromptRequest{
		Code:    services.PromptCodeEnhanceRevision,
		Content: "again",
	})
	h.CreatePrompt(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	c, w = newContext(http.MethodPost, "/admin/prompts", prompt.CreatePromptRequest{Code: "made_up", Content: "x"})
	h.CreatePrompt(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPromptFallsBackToBuiltin(t *testing.T) {
	s := testutil.NewStack(t)
	h := prompt.NewHandler(s.Prompts, s.Log)
	code := gin.Param{Key: "code", Value: services.PromptCodeGenerateCreation}

	c, w := newContext(http.MethodGet, "/admin/prompts/"+code.Value, nil, code)
	h.GetPrompt(c)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data prompt.PromptResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.Overridden)
	assert.Equal(t, services.BuiltinPrompts[code.Value], resp.Data.Content)

	c, w = newContext(http.MethodPut, "/admin/prompts/"+code.Value, prompt.UpdatePromptRequest{Content: "x"}, code)
	h.UpdatePrompt(c)
	assert.Equal(t, http.StatusNotFound, w.Code, "update needs an existing override")

	_, err := s.Prompts.CreatePrompt(context.Background(), code.Value, "custom")
	require.NoError(t, err)

	c, w = newContext(http.MethodPut, "/admin/prompts/"+code.Value, prompt.UpdatePromptRequest{Content: "custom v2"}, code)
	h.UpdatePrompt(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodGet, "/admin/prompts/"+code.Value, nil, code)
	h.GetPrompt(c)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Overridden)
	assert.Equal(t, "custom v2", resp.Data.Content)

	c, w = newContext(http.MethodDelete, "/admin/prompts/"+code.Value, nil, code)
	h.DeletePrompt(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodDelete, "/admin/prompts/"+code.Value, nil, code)
	h.DeletePrompt(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newContext(http.MethodGet, "/admin/prompts/nope", nil, gin.Param{Key: "code", Value: "nope"})
	h.GetPrompt(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPrompts(t *testing.T) {
	s := testutil.NewStack(t)
	h := prompt.NewHandler(s.Prompts, s.Log)
	for code := range services.BuiltinPrompts {
		_, err := s.Prompts.CreatePrompt(context.Background(), code, "override "+code)
		require.NoError(t, err)
	}

	c, w := newContext(http.MethodGet, "/admin/prompts?page=1&limit=3", nil)
	h.ListPrompts(c)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data prompt.PromptListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(len(services.BuiltinPrompts)), resp.Data.Total)
	assert.Len(t, resp.Data.Items, 3)
}
