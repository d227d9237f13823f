package admin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"authorsite/internal/platform/upload"
)

// ResolveImage picks the image URL for a form submission. An uploaded file
// wins over a typed URL; with neither, the result is empty.
func ResolveImage(ctx context.Context, uploader upload.Uploader, typedURL string, file io.Reader, filename string) (string, error) {
	if file != nil && filename != "" {
		url, err := uploader.Upload(ctx, filename, file)
		if err != nil {
			return "", fmt.Errorf("upload %s: %w", filename, err)
		}
		return url, nil
	}
	return strings.TrimSpace(typedURL), nil
}
