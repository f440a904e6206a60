// Package resume extracts plain text from uploaded resume files.
package resume

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"skillpick/internal/errors"

	"github.com/gen2brain/go-fitz"
	"github.com/nguyenthenguyen/docx"
)

// File is an uploaded resume
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Format is a supported resume format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")

	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// DetectFormat picks the parser from the file extension, falling back to the
// content signature when the extension is missing or unknown.
func DetectFormat(f File) (Format, error) {
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".txt", ".md", ".markdown":
		return FormatText, nil
	case "":
	default:
		return "", unsupported(fmt.Sprintf("Unsupported resume format %q. Upload a PDF, DOCX or plain text file.", filepath.Ext(f.Name)), nil)
	}

	switch {
	case bytes.HasPrefix(f.Data, pdfMagic):
		return FormatPDF, nil
	case bytes.HasPrefix(f.Data, zipMagic):
		return FormatDOCX, nil
	case utf8.Valid(f.Data):
		return FormatText, nil
	}
	return "", unsupported("Unsupported resume format. Upload a PDF, DOCX or plain text file.", nil)
}

// ExtractText returns the text content of a resume. Empty documents and
// parser failures are reported as unsupported_format errors.
func ExtractText(f File) (string, error) {
	format, err := DetectFormat(f)
	if err != nil {
		return "", err
	}

	var text string
	switch format {
	case FormatPDF:
		text, err = extractPDF(f.Data)
	case FormatDOCX:
		text, err = extractDOCX(f.Data)
	default:
		text, err = extractPlain(f.Data)
	}
	if err != nil {
		return "", err
	}

	text = normalize(text)
	if text == "" {
		return "", unsupported("The resume does not contain any readable text", nil)
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", unsupported("Could not read the PDF resume", err)
	}
	defer doc.Close()

	var sb strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		page, err := doc.Text(n)
		if err != nil {
			return "", unsupported(fmt.Sprintf("Could not read page %d of the PDF resume", n+1), err)
		}
		sb.WriteString(page)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", unsupported("Could not read the DOCX resume", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = paragraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", unsupported("The text resume is not valid UTF-8", nil)
	}
	return string(data), nil
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\x00", "")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

// Truncate caps text at max runes. Zero or negative max leaves text unchanged.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

func unsupported(message string, cause error) error {
	return errors.NewUnsupportedFormatError(errors.ErrCodeUnsupportedResume, message, cause)
}
