package icon

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// MaxInlineBytes caps the size of an icon stored inline in the state record.
const MaxInlineBytes = 256 << 10

// Inline encodes img as a data: URL suitable for persisting on the shortcut.
func Inline(img Image) (string, error) {
	if len(img.Data) == 0 {
		return "", errors.New("empty image")
	}
	if len(img.Data) > MaxInlineBytes {
		return "", fmt.Errorf("image is %d bytes, limit %d", len(img.Data), MaxInlineBytes)
	}
	ct := img.ContentType
	if ct == "" {
		return "", errors.New("unknown content type")
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}

// Persistable returns the value to cache for a loaded image: the inline form
// when conversion works, the source url otherwise.
func Persistable(img Image) string {
	if s, err := Inline(img); err == nil {
		return s
	}
	return img.URL
}
