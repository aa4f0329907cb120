package extract

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOCR struct {
	text       string
	acquireErr error
	recognErr  error
	acquired   int
	closed     int
	lang       string
}

func (s *stubOCR) Acquire(ctx context.Context) (OCRSession, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	s.acquired++
	return &stubSession{owner: s}, nil
}

type stubSession struct {
	owner *stubOCR
}

func (s *stubSession) Recognize(ctx context.Context, image []byte, lang string) (string, error) {
	s.owner.lang = lang
	if s.owner.recognErr != nil {
		return "", s.owner.recognErr
	}
	return s.owner.text, nil
}

func (s *stubSession) Close() error {
	s.owner.closed++
	return nil
}

func TestImageExtractor(t *testing.T) {
	t.Run("returns recognized text and releases session", func(t *testing.T) {
		ocr := &stubOCR{text: "Exam timetable\n"}
		got, err := NewImageExtractor(ocr, "").Extract(context.Background(), []byte{0x89, 'P', 'N', 'G'})
		require.NoError(t, err)
		assert.Equal(t, "Exam timetable\n", got)
		assert.Equal(t, "eng", ocr.lang)
		assert.Equal(t, 1, ocr.acquired)
		assert.Equal(t, 1, ocr.closed)
	})

	t.Run("releases session on failure", func(t *testing.T) {
		ocr := &stubOCR{recognErr: errors.New("engine crashed")}
		_, err := NewImageExtractor(ocr, "eng").Extract(context.Background(), []byte{1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "engine crashed")
		assert.Equal(t, 1, ocr.closed)
	})

	t.Run("acquire failure", func(t *testing.T) {
		ocr := &stubOCR{acquireErr: errors.New("no engine")}
		_, err := NewImageExtractor(ocr, "eng").Extract(context.Background(), []byte{1})
		require.Error(t, err)
		assert.Equal(t, 0, ocr.closed)
	})

	t.Run("claims image suffixes", func(t *testing.T) {
		e := NewImageExtractor(&stubOCR{}, "eng")
		for _, name := range []string{"a.png", "b.JPG", "c.jpeg"} {
			assert.True(t, e.CanExtract(name), name)
		}
		assert.False(t, e.CanExtract("d.gif"))
	})
}

func TestTesseractSession_CloseRemovesWorkspace(t *testing.T) {
	session, err := NewTesseract("").Acquire(context.Background())
	require.NoError(t, err)

	dir := session.(*tesseractSession).dir
	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, session.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestTesseract_MissingBinary(t *testing.T) {
	p := NewTesseract("/nonexistent/tesseract-binary")
	assert.False(t, p.IsAvailable())

	session, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Recognize(context.Background(), []byte{1, 2, 3}, "eng")
	assert.Error(t, err)
}
