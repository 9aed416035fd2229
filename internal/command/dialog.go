package command

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"recall/internal/recall"
)

// DirectoryDialog answers save prompts without a user: files land in Dir
// under the resource name, with a numeric suffix instead of overwriting.
type DirectoryDialog struct {
	Dir string
}

var _ recall.SaveDialog = DirectoryDialog{}

func (d DirectoryDialog) ChooseSavePath(suggestedName, extension string) (string, error) {
	if err := os.MkdirAll(d.Dir, 0700); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	base := sanitizeFileName(suggestedName)
	suffix := ""
	if extension != "" {
		suffix = "." + sanitizeFileName(extension)
	}

	for i := 0; i < 1000; i++ {
		name := base + suffix
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", base, i, suffix)
		}
		p := filepath.Join(d.Dir, name)
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p, nil
		}
	}
	return "", fmt.Errorf("no free file name for %q in %s", suggestedName, d.Dir)
}

func sanitizeFileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		return "export"
	}
	return s
}
