package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	assert.Equal(t, "processed/report.pdf", objectName("gs://kb-bucket/processed/report.pdf"))
	assert.Equal(t, "processed/report.pdf", objectName("processed/report.pdf"))
	assert.Equal(t, "processed/report.pdf", objectName("/processed/report.pdf"))
	assert.Equal(t, "", objectName("gs://bucket-only"))
}
