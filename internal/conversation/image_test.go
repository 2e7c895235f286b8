package conversation

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataURL(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("fake-png"))

	img, err := DecodeDataURL("data:image/png;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, []byte("fake-png"), img.Data)

	for _, raw := range []string{
		"",
		"image/png;base64," + payload,
		"data:image/png;base64,!!!not-base64",
		"data:text/plain;base64," + payload,
	} {
		_, err := DecodeDataURL(raw)
		assert.ErrorIs(t, err, ErrInvalidImage, raw)
	}
}

func TestDecodeImageRejectsOversize(t *testing.T) {
	big := base64.StdEncoding.EncodeToString(make([]byte, MaxImageBytes+1))
	_, err := DecodeImage("image/jpeg", big)
	assert.ErrorIs(t, err, ErrInvalidImage)
}
