package utils

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePage(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?limit=500&skip=-3", nil)
	p := ParsePage(r)
	assert.Equal(t, int64(20), p.Limit)
	assert.Equal(t, int64(0), p.Skip)

	r = httptest.NewRequest("GET", "/x?limit=10&skip=30", nil)
	p = ParsePage(r)
	assert.Equal(t, int64(10), p.Limit)
	assert.Equal(t, int64(30), p.Skip)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "my_photo_1_.jpg", SanitizeFilename("my photo(1).jpg"))
	assert.Equal(t, "file", SanitizeFilename(""))
}

func TestNewReference(t *testing.T) {
	ref := NewReference("ORD")
	assert.True(t, strings.HasPrefix(ref, "ORD-"))
	assert.Len(t, ref, 12)
	assert.Equal(t, strings.ToUpper(ref), ref)
}
