// Package upload stores listing photos in an external image host.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var ErrNotImage = errors.New("blob is not an image")

// Sink stores one image under path and returns its public URL.
type Sink interface {
	Upload(ctx context.Context, path string, blob []byte) (string, error)
}

// Image is a decoded photo ready for upload.
type Image struct {
	Blob      []byte
	MIME      string
	Extension string
}

// DecodeDataURL accepts "data:image/png;base64,..." or a bare base64 payload and
// sniffs the content type from the bytes, ignoring the declared one.
func DecodeDataURL(src string) (*Image, error) {
	payload := strings.TrimSpace(src)
	if payload == "" {
		return nil, errors.New("empty image")
	}
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ",")
		if i == -1 {
			return nil, errors.New("malformed data url")
		}
		payload = payload[i+1:]
	}
	blob, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	mt := mimetype.Detect(blob)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return &Image{Blob: blob, MIME: mt.String(), Extension: mt.Extension()}, nil
}
