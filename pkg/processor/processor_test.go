package processor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/verdict/internal/models"
	"github.com/xhad/verdict/pkg/pipeline"
	"github.com/xhad/verdict/pkg/processor"
)

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single", "Jedan pasus.", []string{"Jedan pasus."}},
		{"blank line", "Prvi.\n\nDrugi.", []string{"Prvi.", "Drugi."}},
		{"whitespace-only lines", "Prvi.\n  \t\n\n   \nDrugi.", []string{"Prvi.", "Drugi."}},
		{"single newline keeps paragraph", "Prvi red\ndrugi red", []string{"Prvi red\ndrugi red"}},
		{"trims and drops empty", "\n\n  Prvi.  \n\n\n\n", []string{"Prvi."}},
		{"nbsp line", "Prvi pasus.\n\u00a0\nDrugi pasus.", []string{"Prvi pasus.", "Drugi pasus."}},
		{"ideographic space line", "Prvi pasus.\n\u3000 \nDrugi pasus.", []string{"Prvi pasus.", "Drugi pasus."}},
		{"nbsp inside line kept", "Prvi\u00a0red\ndrugi red", []string{"Prvi\u00a0red\ndrugi red"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := processor.SplitParagraphs(tt.text)
			var texts []string
			for i, p := range got {
				assert.Equal(t, i, p.Index)
				texts = append(texts, p.Text)
			}
			assert.Equal(t, tt.want, texts)
		})
	}
}

func TestSplitParagraphs_UnicodeBlankLineScopesNegation(t *testing.T) {
	p := pipeline.NewWithConfig(pipeline.PipelineConfig{})
	rec := p.Classify("Nije sporno da je tužilac vlasnik vozila.\n\u00a0\nSud nalazi da postoji gruba nepažnja tuženog.")
	assert.Equal(t, models.LabelPositive, rec.Label)
	assert.Equal(t, models.RuleGrossTerm, rec.RuleID)
	assert.Equal(t, 2, rec.ParagraphCount)
	require.NotNil(t, rec.ParagraphIndex)
	assert.Equal(t, 1, *rec.ParagraphIndex)
}

func TestNormalizeText(t *testing.T) {
	// z + combining caron composes to ž
	assert.Equal(t, "\u017e\nb\nc", processor.NormalizeText("z\u030c\r\nb\rc"))
}

func TestProcessor_Process(t *testing.T) {
	doc := models.ExtractedDocument{
		SourceRef: "odluka.pdf",
		Format:    models.FormatPDF,
		Text:      "Tužilac: Petar Petrović.\r\n\r\n\r\nSud je utvrdio grubu nepažnju.",
	}

	t.Run("anonymized", func(t *testing.T) {
		p := processor.NewWithConfig(processor.ProcessorConfig{Anonymize: true})
		out := p.Process(doc)
		require.Len(t, out.Paragraphs, 2)
		assert.Equal(t, "Tužilac: [NAME].", out.Paragraphs[0].Text)
		assert.Equal(t, "Sud je utvrdio grubu nepažnju.", out.Paragraphs[1].Text)
		assert.Equal(t, "Tužilac: [NAME].\n\nSud je utvrdio grubu nepažnju.", out.Text)
		assert.Equal(t, "odluka.pdf", out.SourceRef)
	})

	t.Run("plain", func(t *testing.T) {
		p := processor.NewWithConfig(processor.ProcessorConfig{})
		out := p.Process(doc)
		require.Len(t, out.Paragraphs, 2)
		assert.Equal(t, "Tužilac: Petar Petrović.", out.Paragraphs[0].Text)
	})
}
