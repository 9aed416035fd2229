package recall

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"recall/internal/model"
)

// SaveDialog asks the user where to save a file. An empty path with a nil
// error means the user cancelled.
type SaveDialog interface {
	ChooseSavePath(suggestedName, extension string) (string, error)
}

// ExportFile writes the decoded file payload of a resource to a path chosen
// through dialog and returns that path.
func (s *ResourceStore) ExportFile(ctx context.Context, userID, id string, dialog SaveDialog) (string, error) {
	resource, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}
	if resource.FileData == nil || *resource.FileData == "" {
		return "", ErrNoFileData
	}

	path, err := dialog.ChooseSavePath(resource.Name, fileExtension(resource))
	if err != nil {
		return "", fmt.Errorf("choosing save path: %w", err)
	}
	if path == "" {
		return "", ErrCancelled
	}

	data, err := base64.StdEncoding.DecodeString(*resource.FileData)
	if err != nil {
		return "", invalid("file_data", ErrInvalidInput)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	s.logger.Info("resource exported", "user_id", userID, "resource_id", id, "bytes", len(data))
	return path, nil
}

// fileExtension takes the subtype of a MIME type, so "image/png" gives "png".
func fileExtension(r *model.Resource) string {
	if r.FileType == nil {
		return ""
	}
	t := *r.FileType
	if i := strings.LastIndex(t, "/"); i >= 0 {
		t = t[i+1:]
	}
	return t
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".recall-export-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	committed = true
	return nil
}
