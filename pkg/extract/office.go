package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxMember = "word/document.xml"
	odfMember  = "content.xml"
)

// DOCX returns the non-blank paragraphs of word/document.xml, one per line.
func DOCX(data []byte) (string, error) {
	body, err := readMember(data, docxMember)
	if err != nil {
		return "", fmt.Errorf("docx: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		paragraphs []string
		cur        strings.Builder
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx: parse: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				cur.WriteByte('\t')
			case "br", "cr":
				cur.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if p := cur.String(); strings.TrimSpace(p) != "" {
					paragraphs = append(paragraphs, p)
				}
				cur.Reset()
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		}
	}
	if p := cur.String(); strings.TrimSpace(p) != "" {
		paragraphs = append(paragraphs, p)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// ODF returns every text node of content.xml joined by single spaces.
func ODF(data []byte) (string, error) {
	body, err := readMember(data, odfMember)
	if err != nil {
		return "", fmt.Errorf("odf: %w", err)
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	var nodes []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("odf: parse: %w", err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			nodes = append(nodes, string(cd))
		}
	}
	return strings.Join(strings.Fields(strings.Join(nodes, " ")), " "), nil
}

// maxMemberBytes caps the uncompressed size of one archive member.
var maxMemberBytes int64 = 256 << 20

func readMember(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		out, err := io.ReadAll(io.LimitReader(rc, maxMemberBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if int64(len(out)) > maxMemberBytes {
			return nil, fmt.Errorf("%s exceeds %d bytes uncompressed", name, maxMemberBytes)
		}
		return out, nil
	}
	return nil, errors.New("missing " + name)
}
