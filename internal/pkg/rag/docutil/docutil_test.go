package docutil_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/sentinel-rag/internal/pkg/rag/docutil"
	"github.com/kart-io/sentinel-rag/pkg/utils/errors"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        string
	}{
		{"report.PDF", "", docutil.KindPDF},
		{"blob", "application/pdf", docutil.KindPDF},
		{"notes.txt", "application/octet-stream", docutil.KindTXT},
		{"notes", "text/plain; charset=utf-8", docutil.KindTXT},
		{"image.png", "image/png", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, docutil.DetectKind(tt.filename, tt.contentType), tt.filename)
	}
}

func TestExtract_Text(t *testing.T) {
	got, err := docutil.Extract("a.txt", "", []byte("hello\xff world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := docutil.Extract("a.docx", "application/msword", []byte("x"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrRAGUnsupportedInput))
}

func TestExtract_InvalidPDF(t *testing.T) {
	_, err := docutil.Extract("a.pdf", "", []byte("not a pdf"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrRAGUnsupportedInput))
}
