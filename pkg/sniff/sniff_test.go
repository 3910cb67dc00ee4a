package sniff

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/verdict/internal/models"
)

func zipWith(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, n := range names {
		w, err := zw.Create(n)
		require.NoError(t, err)
		_, err = w.Write([]byte("<x/>"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	odt := zipWith(t, "mimetype", "content.xml", "styles.xml")
	docx := zipWith(t, "[Content_Types].xml", "word/document.xml")
	both := zipWith(t, "word/document.xml", "content.xml")
	plainZip := zipWith(t, "readme.txt")

	tests := []struct {
		name        string
		data        []byte
		filename    string
		contentType string
		want        models.Format
	}{
		{"pdf signature", []byte("%PDF-1.7\n..."), "", "", models.FormatPDF},
		{"pdf signature beats doc name", []byte("%PDF-1.4"), "odluka.doc", "", models.FormatPDF},
		{"odf archive", odt, "", "", models.FormatODF},
		{"docx archive", docx, "x.pdf", "application/pdf", models.FormatDOCX},
		{"content.xml wins over word", both, "", "", models.FormatODF},
		{"unknown archive", plainZip, "", "application/pdf", models.FormatZIP},
		{"corrupt archive", []byte("PK\x03\x04garbage"), "a.docx", "", models.FormatZIP},
		{"doc by name", []byte{0xD0, 0xCF, 0x11, 0xE0}, "Presuda.DOC", "", models.FormatDOC},
		{"docx name is not doc", []byte("junk"), "presuda.docx", "", models.FormatBin},
		{"html by name", []byte("<html>"), "odluka.htm", "", models.FormatHTML},
		{"pdf content type", []byte("junk"), "", "Application/PDF", models.FormatPDF},
		{"odf content type", []byte("junk"), "", "application/vnd.oasis.opendocument.text", models.FormatODF},
		{"docx content type", []byte("junk"), "", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", models.FormatDOCX},
		{"html content type", []byte("junk"), "", "text/html; charset=utf-8", models.FormatHTML},
		{"fallback", []byte("junk"), "", "", models.FormatBin},
		{"empty input", nil, "", "", models.FormatBin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.data, tt.filename, tt.contentType))
		})
	}
}
