package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusai/portal/internal/models"
)

func TestCategorySelector(t *testing.T) {
	s := NewCategorySelector()
	assert.Equal(t, models.CategoryNotice, s.Current())

	require.NoError(t, s.Set(models.CategoryImpData))
	assert.Equal(t, models.CategoryImpData, s.Current())

	assert.Error(t, s.Set("events"))
	assert.Equal(t, models.CategoryImpData, s.Current())
}

func TestTargetName(t *testing.T) {
	tests := map[string]string{
		"exam_schedule.pdf": "exam_schedule.txt",
		"archive.tar.gz":    "archive.tar.txt",
		"README":            "README.txt",
		".hidden":           ".hidden.txt",
		"notes.txt":         "notes.txt",
		"Scan 01.JPG":       "Scan 01.txt",
	}
	for in, want := range tests {
		assert.Equal(t, want, TargetName(in), in)
	}
}
