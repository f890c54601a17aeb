// Package textextract pulls plain text out of uploaded project documents
// for embedding. Construction uploads are overwhelmingly PDFs, with the
// occasional DOCX submittal and plain-text log.
package textextract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

type Result struct {
	Content string
	Pages   int
}

// Extract dispatches on content type or file extension.
func Extract(data []byte, contentType string) (*Result, error) {
	switch normalizeType(contentType) {
	case "pdf":
		return extractPDF(data)
	case "docx":
		return extractDOCX(data)
	case "txt":
		return extractTXT(data)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func SupportedTypes() []string {
	return []string{".pdf", ".docx", ".txt"}
}

func normalizeType(contentType string) string {
	switch strings.ToLower(contentType) {
	case ".pdf", "pdf", "application/pdf":
		return "pdf"
	case ".docx", "docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return "docx"
	case ".txt", "txt", "text/plain":
		return "txt"
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(contentType), "."))
}

func extractPDF(data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	return &Result{Content: strings.TrimSpace(buf.String()), Pages: numPages}, nil
}

var xmlTag = regexp.MustCompile(`<[^>]+>`)

func extractDOCX(data []byte) (*Result, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	var buf strings.Builder
	for _, f := range reader.File {
		if filepath.Base(f.Name) != "document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open document.xml: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read document.xml: %w", err)
		}
		buf.WriteString(xmlTag.ReplaceAllString(string(content), " "))
		break
	}

	return &Result{Content: strings.TrimSpace(strings.Join(strings.Fields(buf.String()), " ")), Pages: 1}, nil
}

func extractTXT(data []byte) (*Result, error) {
	return &Result{Content: strings.TrimSpace(string(data)), Pages: 1}, nil
}
