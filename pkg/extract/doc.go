package extract

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Antiword extracts legacy Word 97-2003 files with the antiword binary.
type Antiword struct {
	Path string
}

func (a Antiword) Extract(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "verdict-*.doc")
	if err != nil {
		return "", fmt.Errorf("doc: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("doc: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("doc: close temp file: %w", err)
	}

	out, err := exec.Command(a.Path, tmp.Name()).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := out
			if len(msg) > 300 {
				msg = msg[:300]
			}
			return "", fmt.Errorf("antiword failed: %s", strings.ToValidUTF8(string(msg), ""))
		}
		return "", fmt.Errorf("doc: run %s: %w", a.Path, err)
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(out), "")), nil
}
