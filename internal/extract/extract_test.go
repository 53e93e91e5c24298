package extract

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF builds a one-page PDF showing text, with a correct xref table.
func minimalPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestTextPlain(t *testing.T) {
	got, err := Text("notes.txt", "text/plain", []byte("Unit 1: Processes"))
	require.NoError(t, err)
	assert.Equal(t, "Unit 1: Processes", got)
}

func TestTextInvalidUTF8(t *testing.T) {
	got, err := Text("notes.txt", "", []byte{'o', 'k', 0xff})
	require.NoError(t, err)
	assert.Equal(t, "ok�", got)
}

func TestTextPDF(t *testing.T) {
	got, err := Text("syllabus.pdf", "application/pdf", minimalPDF("Hello PDF"))
	require.NoError(t, err)
	assert.Contains(t, got, "Hello PDF")
}

func TestTextBrokenPDF(t *testing.T) {
	_, err := Text("broken.pdf", "application/pdf", []byte("%PDF-1.4 garbage"))
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"syllabus.pdf", true},
		{"NOTES.TXT", true},
		{"dir/sub/questions.md", true},
		{`C:\Users\me\data.csv`, true},
		{"data.json", true},
		{"image.png", false},
		{"archive.pdf.exe", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(DefaultPatterns, tt.name))
		})
	}
}

func TestValidatePatterns(t *testing.T) {
	assert.NoError(t, ValidatePatterns(DefaultPatterns))
	assert.Error(t, ValidatePatterns([]string{"*.{pdf"}))
}

func TestFileURL(t *testing.T) {
	content := "[Cloudinary File]\nName: os.pdf\nURL: https://res.cloudinary.com/demo/raw/upload/os.pdf\nPublic ID: os"
	url, ok := FileURL(content)
	require.True(t, ok)
	assert.Equal(t, "https://res.cloudinary.com/demo/raw/upload/os.pdf", url)

	_, ok = FileURL("URL: https://example.com/a.pdf")
	assert.False(t, ok, "no marker")

	_, ok = FileURL("[Cloudinary File] without a link")
	assert.False(t, ok)
	assert.True(t, HasMarker("[Cloudinary File] without a link"))
}
