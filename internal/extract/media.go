package extract

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// MediaFromFile loads an attachment from disk, deriving the MIME type from
// the file extension.
func MediaFromFile(path string) (*Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		return nil, fmt.Errorf("cannot determine media type of %s", filepath.Base(path))
	}
	// Strip any parameters, e.g. "; charset=utf-8"
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return &Media{MIME: mimeType, Data: data}, nil
}
