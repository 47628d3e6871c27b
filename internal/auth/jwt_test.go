package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	v := NewVerifier("secret")

	token, err := v.GenerateToken(5, "anna", time.Hour)
	require.NoError(t, err)

	id, err := v.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: 5, Username: "anna"}, id)
}

func TestParseTokenRejects(t *testing.T) {
	v := NewVerifier("secret")

	_, err := v.ParseToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other, err := NewVerifier("other").GenerateToken(5, "anna", time.Hour)
	require.NoError(t, err)
	_, err = v.ParseToken(other)
	assert.Error(t, err)

	expired, err := v.GenerateToken(5, "anna", -time.Minute)
	require.NoError(t, err)
	_, err = v.ParseToken(expired)
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/chat_list/", nil)
	req.Header.Set("Authorization", "Bearer abc")
	assert.Equal(t, "abc", TokenFromRequest(req))

	req = httptest.NewRequest("GET", "/ws/chat_list/?token=xyz", nil)
	assert.Equal(t, "xyz", TokenFromRequest(req))

	req = httptest.NewRequest("GET", "/ws/chat_list/", nil)
	req.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", TokenFromRequest(req))
}
