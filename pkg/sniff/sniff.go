// Package sniff classifies raw court-decision bytes into a container format.
package sniff

import (
	"archive/zip"
	"bytes"
	"strings"

	"github.com/xhad/verdict/internal/models"
)

var (
	pdfMagic = []byte("%PDF")
	zipMagic = []byte("PK\x03\x04")
)

// Detect picks a format by strict precedence: byte signature, zip member names,
// filename, content-type, then bin. It never fails.
func Detect(data []byte, filename, contentType string) models.Format {
	if bytes.HasPrefix(data, pdfMagic) {
		return models.FormatPDF
	}
	if bytes.HasPrefix(data, zipMagic) {
		return detectArchive(data)
	}

	name := strings.ToLower(strings.TrimSpace(filename))
	if strings.HasSuffix(name, ".doc") && !strings.HasSuffix(name, ".docx") {
		return models.FormatDOC
	}
	if strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".htm") {
		return models.FormatHTML
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return models.FormatPDF
	case strings.Contains(ct, "opendocument"), strings.Contains(ct, "oasis.opendocument"):
		return models.FormatODF
	case strings.Contains(ct, "wordprocessingml"):
		return models.FormatDOCX
	case strings.Contains(ct, "text/html"):
		return models.FormatHTML
	}
	return models.FormatBin
}

// detectArchive inspects member names. Unreadable archives stay "zip".
func detectArchive(data []byte) models.Format {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.FormatZIP
	}

	var hasWord bool
	for _, f := range zr.File {
		switch f.Name {
		case "content.xml":
			return models.FormatODF
		case "word/document.xml":
			hasWord = true
		}
	}
	if hasWord {
		return models.FormatDOCX
	}
	return models.FormatZIP
}
