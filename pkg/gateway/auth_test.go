package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractBearerToken(t *testing.T) {
	token, ok := ExtractBearerToken("Bearer abc123")
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)

	token, ok = ExtractBearerToken("bearer abc123")
	assert.True(t, ok)
	assert.Equal(t, "abc123", token)

	_, ok = ExtractBearerToken("Basic abc")
	assert.False(t, ok)

	_, ok = ExtractBearerToken("")
	assert.False(t, ok)
}

func TestVerifyToken(t *testing.T) {
	assert.True(t, VerifyToken("secret", "secret"))
	assert.False(t, VerifyToken("wrong!", "secret"))
	assert.False(t, VerifyToken("secre", "secret"))
	assert.False(t, VerifyToken("secrets", "secret"))
	assert.False(t, VerifyToken("", "secret"))
	assert.True(t, VerifyToken("", ""))
}
