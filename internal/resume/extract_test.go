package resume

import (
	"archive/zip"
	"bytes"
	"testing"

	"skillpick/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDOCX writes a minimal word document holding the given body XML
func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		want    Format
		wantErr bool
	}{
		{"pdf extension", File{Name: "cv.PDF"}, FormatPDF, false},
		{"docx extension", File{Name: "cv.docx"}, FormatDOCX, false},
		{"markdown", File{Name: "cv.md"}, FormatText, false},
		{"pdf magic without extension", File{Name: "cv", Data: []byte("%PDF-1.7 ...")}, FormatPDF, false},
		{"zip magic without extension", File{Name: "cv", Data: []byte("PK\x03\x04rest")}, FormatDOCX, false},
		{"utf8 without extension", File{Name: "cv", Data: []byte("Jane Doe")}, FormatText, false},
		{"image", File{Name: "cv.png"}, "", true},
		{"legacy word", File{Name: "cv.doc"}, "", true},
		{"binary without extension", File{Name: "cv", Data: []byte{0xff, 0xfe, 0xfd}}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.file)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrorTypeUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTextPlain(t *testing.T) {
	text, err := ExtractText(File{Name: "cv.txt", Data: []byte("Jane Doe\r\n\r\n\r\n\r\nGo developer   \n")})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\n\nGo developer", text)
}

func TestExtractTextEmpty(t *testing.T) {
	_, err := ExtractText(File{Name: "cv.txt", Data: []byte("  \n\t\n")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeUnsupportedFormat))
}

func TestExtractTextDOCX(t *testing.T) {
	data := buildDOCX(t, `<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p><w:p><w:r><w:t>Go &amp; Kubernetes</w:t></w:r></w:p>`)

	text, err := ExtractText(File{Name: "cv.docx", Data: data})
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Go & Kubernetes")
}

func TestExtractTextCorruptPDF(t *testing.T) {
	_, err := ExtractText(File{Name: "cv.pdf", Data: []byte("%PDF-1.4 this is not really a pdf")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeUnsupportedFormat))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "héllo", Truncate("héllo", 0))
	assert.Equal(t, "abc", Truncate("abc", 10))
}
