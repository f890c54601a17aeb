package textextract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTXT(t *testing.T) {
	res, err := Extract([]byte("  Daily site log for pier 4.\n"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "Daily site log for pier 4.", res.Content)
	assert.Equal(t, 1, res.Pages)
}

func TestExtractDOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Concrete pour</w:t></w:r><w:r><w:t>schedule</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	res, err := Extract(buf.Bytes(), "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	require.NoError(t, err)
	assert.Equal(t, "Concrete pour schedule", res.Content)
}

func TestExtractUnsupportedType(t *testing.T) {
	_, err := Extract([]byte("binary"), "image/png")
	assert.Error(t, err)
}

func TestNormalizeTypeAcceptsExtensions(t *testing.T) {
	cases := map[string]string{
		".pdf":            "pdf",
		"application/pdf": "pdf",
		"TXT":             "txt",
		"report.docx":     "docx",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeType(in), in)
	}
}
