package conversation

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidImage is returned when an image payload cannot be decoded.
var ErrInvalidImage = errors.New("conversation: invalid image payload")

// MaxImageBytes bounds a decoded inline image.
const MaxImageBytes = 5 << 20

var dataURLPattern = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

// DecodeDataURL parses a "data:<mime>;base64,<payload>" string.
func DecodeDataURL(raw string) (*InlineImage, error) {
	match := dataURLPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return nil, fmt.Errorf("%w: not a base64 data url", ErrInvalidImage)
	}
	return DecodeImage(match[1], match[2])
}

// DecodeImage decodes a base64 payload with its declared MIME type.
func DecodeImage(mimeType, payload string) (*InlineImage, error) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: unsupported mime type %q", ErrInvalidImage, mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidImage, MaxImageBytes)
	}
	return &InlineImage{MIMEType: mimeType, Data: data}, nil
}

func usableImage(img *InlineImage) bool {
	return img != nil &&
		len(img.Data) > 0 &&
		len(img.Data) <= MaxImageBytes &&
		strings.HasPrefix(strings.ToLower(img.MIMEType), "image/")
}
