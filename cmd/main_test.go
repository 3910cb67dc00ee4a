package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/verdict/internal/models"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "verdict.yaml")
	cfg := "storage:\n  backend: fs\n  root: " + filepath.Join(dir, "data") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestRun_Usage(t *testing.T) {
	assert.ErrorIs(t, run(nil), errUsage)
	assert.ErrorIs(t, run([]string{"-config", writeConfig(t), "bogus"}), errUsage)
	assert.ErrorIs(t, run([]string{"-config", writeConfig(t), "classify"}), errUsage)
	assert.ErrorIs(t, run([]string{"-config", writeConfig(t), "search"}), errUsage)
}

func TestRun_Classify(t *testing.T) {
	cfg := writeConfig(t)
	page := filepath.Join(t.TempDir(), "odluka.html")
	html := "<html><body><main><p>PRESUDA U IME NARODA</p><p>Sud je utvrdio da postoji gruba nepažnja okrivljenog.</p></main></body></html>"
	require.NoError(t, os.WriteFile(page, []byte(html), 0o644))

	require.NoError(t, run([]string{"-config", cfg, "classify", "-file", page, "-name", "osnovni-sud-u-beogradu-p-1234-2020.txt"}))
	assert.Error(t, run([]string{"-config", cfg, "classify", "-file", page, "-name", "odluka.txt"}))
	assert.Error(t, run([]string{"-config", cfg, "classify", "-file", filepath.Join(t.TempDir(), "missing.pdf")}))
}

func TestLabelOf(t *testing.T) {
	assert.Equal(t, models.LabelPositive, labelOf(models.Record{GrossNegligence: 1}))
	assert.Equal(t, models.LabelNegative, labelOf(models.Record{NotGrossNegligence: 1}))
	assert.Equal(t, models.LabelAbstainSynonym, labelOf(models.Record{AutoRule: models.RuleSynonymOnly}))
	assert.Equal(t, models.LabelAbstainNone, labelOf(models.Record{AutoRule: models.RuleNoMatch}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "nepažnja", truncate("nepažnja", 8))
	assert.Equal(t, "nepa...", truncate("nepažnja", 4))
}
