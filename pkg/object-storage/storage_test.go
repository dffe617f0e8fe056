package objectstorage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeByName(t *testing.T) {
	assert.Equal(t, "application/json", ContentTypeByName("transcript_1.json"))
	assert.Equal(t, "application/octet-stream", ContentTypeByName("file.unknownext"))
}

func TestSniffContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", SniffContentType("application/pdf", nil))
	assert.Equal(t, "application/pdf", SniffContentType("binary/octet-stream", []byte("%PDF-1.7\n...")))
	assert.Equal(t, "text/plain; charset=utf-8", SniffContentType("", []byte("hello world")))
}
