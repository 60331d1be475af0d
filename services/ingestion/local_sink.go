package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

// LocalDisk writes images under Dir and references them by URLPrefix.
// When MaxWidth is set, wider JPEG and PNG images are downscaled.
type LocalDisk struct {
	Dir       string
	URLPrefix string
	MaxWidth  uint

	now func() time.Time
}

func NewLocalDisk(dir, urlPrefix string, maxWidth uint) *LocalDisk {
	return &LocalDisk{
		Dir:       dir,
		URLPrefix: strings.TrimRight(urlPrefix, "/"),
		MaxWidth:  maxWidth,
		now:       time.Now,
	}
}

func (d *LocalDisk) Save(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}

	content, err := readFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file.Filename, err)
	}
	content = d.downscale(content)

	name := fmt.Sprintf("%d-%s%s", d.now().UnixMilli(), uuid.NewString()[:8], extension(file))
	path := filepath.Join(d.Dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", name, err)
	}

	return d.URLPrefix + "/" + name, nil
}

// downscale returns content unchanged unless it is a JPEG or PNG wider than MaxWidth.
func (d *LocalDisk) downscale(content []byte) []byte {
	if d.MaxWidth == 0 {
		return content
	}
	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil || uint(img.Bounds().Dx()) <= d.MaxWidth {
		return content
	}

	resized := resize.Resize(d.MaxWidth, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, resized)
	default:
		return content
	}
	if err != nil {
		return content
	}
	return buf.Bytes()
}

// extension comes from the validated content type, never from the client filename.
func extension(file *multipart.FileHeader) string {
	if ext, ok := imageTypes[contentType(file)]; ok {
		return ext
	}
	return ".img"
}
