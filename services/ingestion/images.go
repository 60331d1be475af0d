package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"golang.org/x/sync/errgroup"
)

const (
	ImageField      = "images"
	MaxImages       = 10
	MaxImageSize    = 5 << 20
	uploadWorkers   = 4
	imagesFolderTag = "products"
)

// imageTypes lists the accepted image content types and their file extensions.
var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/avif": ".avif",
}

// ImageSink stores one image and returns the URL the product should
// reference. Implementations: LocalDisk and HostedUpload.
type ImageSink interface {
	Save(ctx context.Context, file *multipart.FileHeader) (string, error)
}

func imageFiles(form *multipart.Form) []*multipart.FileHeader {
	if form == nil {
		return nil
	}
	return form.File[ImageField]
}

// ValidateImages rejects the whole submission before any file is stored.
func ValidateImages(files []*multipart.FileHeader) error {
	var details []string
	if len(files) > MaxImages {
		details = append(details, fmt.Sprintf("at most %d images may be attached, got %d", MaxImages, len(files)))
	}
	for _, f := range files {
		ct := contentType(f)
		if !strings.HasPrefix(ct, "image/") {
			details = append(details, fmt.Sprintf("%s is not an image", f.Filename))
		} else if _, ok := imageTypes[ct]; !ok {
			details = append(details, fmt.Sprintf("%s has an unsupported image type %s", f.Filename, ct))
		}
		if f.Size > MaxImageSize {
			details = append(details, fmt.Sprintf("%s exceeds the 5MB limit", f.Filename))
		}
	}
	if len(details) > 0 {
		return apperrors.Validation("Invalid image upload", details...)
	}
	return nil
}

func contentType(f *multipart.FileHeader) string {
	return strings.ToLower(strings.TrimSpace(f.Header.Get("Content-Type")))
}

// storeImages saves every file, tolerating individual failures. The
// returned URLs follow the input order with failed files left out.
func storeImages(ctx context.Context, sink ImageSink, files []*multipart.FileHeader, logger *slog.Logger) []string {
	if len(files) == 0 {
		return nil
	}

	results := make([]string, len(files))
	var g errgroup.Group
	g.SetLimit(uploadWorkers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			url, err := sink.Save(ctx, f)
			if err != nil {
				logger.Warn("Skipping image that could not be stored", "file", f.Filename, "index", i, "error", err)
				return nil
			}
			results[i] = url
			return nil
		})
	}
	_ = g.Wait()

	urls := make([]string, 0, len(files))
	for _, u := range results {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

func readFile(f *multipart.FileHeader) ([]byte, error) {
	src, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return io.ReadAll(io.LimitReader(src, MaxImageSize+1))
}
