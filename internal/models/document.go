package models

// Format is the container format of a raw court-decision file.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatODF  Format = "odf"
	FormatDOC  Format = "doc"
	FormatHTML Format = "html"
	FormatZIP  Format = "zip"
	FormatBin  Format = "bin"
)

// RawDocument is the caller-owned input of the pipeline.
type RawDocument struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExtractedDocument is the plain text produced once per RawDocument.
type ExtractedDocument struct {
	SourceRef string
	Format    Format
	Text      string
}

// Paragraph is one blank-line separated block of a document, 0-based.
type Paragraph struct {
	Index int
	Text  string
}

// ProcessedDocument is an extracted document after anonymization and splitting.
type ProcessedDocument struct {
	ExtractedDocument
	Paragraphs []Paragraph
}

// CorpusEntry is one line of the plain corpus JSONL.
type CorpusEntry struct {
	DocID          string `json:"doc_id"`
	SourceTextBlob string `json:"source_text_blob"`
	CharLen        int    `json:"char_len"`
	IngestedAt     string `json:"ingested_at"`
	Text           string `json:"text"`
}
