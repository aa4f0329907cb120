package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_Validate(t *testing.T) {
	v := NewValidator(nil)

	t.Run("accepts supported extensions", func(t *testing.T) {
		for _, name := range []string{
			"a.pdf", "b.txt", "c.docx", "d.ppt", "e.pptx", "f.json", "g.png", "h.jpg", "i.jpeg",
			"REPORT.PDF", "Scan.JPeg",
		} {
			assert.Equal(t, Verdict{Accepted: true}, v.Validate(name), name)
		}
	})

	t.Run("denies code and media", func(t *testing.T) {
		for _, name := range []string{
			"a.js", "b.ts", "c.py", "d.c", "e.cpp", "f.java", "g.html", "h.css",
			"i.mp3", "j.wav", "k.mp4", "l.mov", "m.AVI",
		} {
			assert.Equal(t, Verdict{Reason: ReasonDeniedExtension}, v.Validate(name), name)
		}
	})

	t.Run("rejects everything else", func(t *testing.T) {
		for _, name := range []string{"a.exe", "b.xlsx", "README", "c.pdf.zip"} {
			assert.Equal(t, Verdict{Reason: ReasonUnsupportedExtension}, v.Validate(name), name)
		}
	})

	t.Run("deny list wins over allow list", func(t *testing.T) {
		v := NewValidator([]string{".pdf", ".html", "js"})
		assert.Equal(t, ReasonDeniedExtension, v.Validate("page.html").Reason)
		assert.Equal(t, ReasonDeniedExtension, v.Validate("app.js").Reason)
		assert.True(t, v.Validate("doc.pdf").Accepted)
	})

	t.Run("json is not mistaken for js", func(t *testing.T) {
		assert.True(t, v.Validate("faq.json").Accepted)
	})
}

func TestValidator_ConfiguredAllowList(t *testing.T) {
	v := NewValidator([]string{"XLSX", " .pdf "})
	assert.Equal(t, []string{".xlsx", ".pdf"}, v.AllowedExtensions())
	assert.True(t, v.Validate("grades.xlsx").Accepted)
	assert.False(t, v.Validate("notes.txt").Accepted)
}
