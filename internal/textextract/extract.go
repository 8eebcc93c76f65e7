// Package textextract pulls plain text out of uploaded job descriptions.
package textextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/resumate-app/resumate/internal/validation"
)

// MaxSize is the largest document accepted for extraction
const MaxSize = 5 << 20

const (
	TypeText = "text/plain"
	TypePDF  = "application/pdf"
	TypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = fmt.Errorf("file exceeds %d bytes", MaxSize)
	ErrEmpty           = errors.New("file is empty")
)

// DetectType resolves the MIME type of an upload. The declared type wins
// unless it is missing or generic, in which case the content is sniffed and
// the file extension breaks the zip/docx tie.
func DetectType(declared, filename string, head []byte) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err == nil && mediaType != "" && mediaType != "application/octet-stream" {
		return mediaType
	}

	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(head))
	if sniffed == "application/zip" && strings.EqualFold(filepath.Ext(filename), ".docx") {
		return TypeDOCX
	}
	return sniffed
}

// Extract returns the text content of data interpreted as mimeType
func Extract(mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if len(data) > MaxSize {
		return "", ErrTooLarge
	}

	var (
		text string
		err  error
	)
	switch mimeType {
	case TypeText:
		text = string(data)
	case TypePDF:
		text, err = extractPDF(bytes.NewReader(data), int64(len(data)))
	case TypeDOCX:
		text, err = extractDOCX(bytes.NewReader(data), int64(len(data)))
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if err != nil {
		return "", err
	}
	return tidy(text), nil
}

// ExtractReader reads at most MaxSize bytes from r and extracts them
func ExtractReader(r io.Reader, declared, filename string) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > MaxSize {
		return "", ErrTooLarge
	}
	return Extract(DetectType(declared, filename, data), data)
}

func extractPDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractDOCX(r io.ReaderAt, size int64) (string, error) {
	doc, err := docx.ReadDocxFromMemory(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	// document.xml: one w:p element per paragraph
	content := doc.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "</w:p>\n")
	return validation.StripTags(content), nil
}

// tidy trims every line and collapses runs of blank lines
func tidy(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
