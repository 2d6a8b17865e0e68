package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test_secret", time.Hour)

	token, err := m.GenerateToken(42, "admin")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, float64(42), claims["user_id"])
	assert.Equal(t, "admin", claims["role"])

	_, err = NewTokenManager("other_secret", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenIsUniquePerSession(t *testing.T) {
	m := NewTokenManager("test_secret", time.Hour)

	first, err := m.GenerateToken(7, "user")
	require.NoError(t, err)
	second, err := m.GenerateToken(7, "user")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "tokens issued in the same second must differ")

	claims, err := m.ValidateToken(first)
	require.NoError(t, err)
	assert.NotEmpty(t, claims["jti"])
	assert.NotNil(t, claims["iat"])

	other, err := m.ValidateToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, claims["jti"], other["jti"])
}

func TestGenerateTokenWithoutSecret(t *testing.T) {
	_, err := NewTokenManager("", 0).GenerateToken(1, "user")
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		url       string
		headers   map[string]string
		expected  string
		expectErr bool
	}{
		{"Bearer header", "/", map[string]string{"Authorization": "Bearer abc"}, "abc", false},
		{"Missing header", "/", nil, "", true},
		{"Wrong scheme", "/", map[string]string{"Authorization": "Basic abc"}, "", true},
		{"Query token ignored for plain requests", "/?token=abc", nil, "", true},
		{"Query token on websocket upgrade", "/?token=abc", map[string]string{"Connection": "upgrade", "Upgrade": "websocket"}, "abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request, _ = http.NewRequest(http.MethodGet, tt.url, nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			token, err := ExtractToken(c)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, token)
		})
	}
}
