package ingestion

import (
	"context"
	"fmt"
	"mime/multipart"
)

// Uploader is the hosted binary-object service.
type Uploader interface {
	Upload(ctx context.Context, folder, filename string, content []byte, contentType string) (string, error)
}

// HostedUpload sends each image to an Uploader under the products folder.
type HostedUpload struct {
	uploader Uploader
	folder   string
}

func NewHostedUpload(uploader Uploader) *HostedUpload {
	return &HostedUpload{uploader: uploader, folder: imagesFolderTag}
}

func (h *HostedUpload) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := readFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file.Filename, err)
	}
	url, err := h.uploader.Upload(ctx, h.folder, file.Filename, content, contentType(file))
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", fmt.Errorf("uploading %s: empty URL returned", file.Filename)
	}
	return url, nil
}
