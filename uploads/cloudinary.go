// Package uploads talks to the hosted image service.
package uploads

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultEndpoint = "https://api.cloudinary.com/v1_1"

type Cloudinary struct {
	CloudName string
	APIKey    string
	APISecret string
	// Endpoint overrides the API base URL.
	Endpoint string
	Timeout  time.Duration

	now func() time.Time
}

func NewCloudinary(cloudName, apiKey, apiSecret string) *Cloudinary {
	return &Cloudinary{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Endpoint:  defaultEndpoint,
		Timeout:   30 * time.Second,
		now:       time.Now,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload performs a signed upload and returns the secure URL of the stored image.
func (c *Cloudinary) Upload(ctx context.Context, folder, filename string, content []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("api_key", c.APIKey)
	args.Set("timestamp", timestamp)
	args.Set("folder", folder)
	args.Set("signature", Sign(map[string]string{"folder": folder, "timestamp": timestamp}, c.APISecret))

	agent := fiber.Post(fmt.Sprintf("%s/%s/image/upload", c.Endpoint, c.CloudName))
	agent.Timeout(c.timeout(ctx))
	agent.FileData(&fiber.FormFile{Fieldname: "file", Name: filename, Content: content})
	agent.MultipartForm(args)

	var resp uploadResponse
	code, body, errs := agent.Struct(&resp)
	if len(errs) > 0 {
		return "", fmt.Errorf("uploading %s (%s): %w", filename, contentType, errs[0])
	}
	if code != fiber.StatusOK {
		if resp.Error != nil && resp.Error.Message != "" {
			return "", fmt.Errorf("uploading %s: status %d: %s", filename, code, resp.Error.Message)
		}
		return "", fmt.Errorf("uploading %s: status %d: %s", filename, code, body)
	}
	return resp.SecureURL, nil
}

// timeout is the configured timeout, shortened to the context deadline.
func (c *Cloudinary) timeout(ctx context.Context) time.Duration {
	d := c.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); d <= 0 || left < d {
			d = left
		}
	}
	return d
}

// Sign computes the request signature: the sorted key=value pairs joined
// by '&', followed by the secret, hashed with SHA-1.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var payload strings.Builder
	for i, k := range keys {
		if i > 0 {
			payload.WriteByte('&')
		}
		payload.WriteString(k)
		payload.WriteByte('=')
		payload.WriteString(params[k])
	}
	payload.WriteString(secret)

	sum := sha1.Sum([]byte(payload.String()))
	return hex.EncodeToString(sum[:])
}
