// Package imagehost publishes captured images at a URL the extraction backend
// can dereference.
package imagehost

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

type Uploader interface {
	// Upload stores data and returns its public URL.
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

// ObjectKey returns a fresh storage key under prefix, e.g. "captures/<uuid>.jpg".
func ObjectKey(prefix, mimeType string) string {
	return path.Join(prefix, uuid.NewString()+ExtForMIME(mimeType))
}

// DataURL encodes base64 image data the way browsers and Cloudinary expect.
func DataURL(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}

func ExtForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func MIMEForExt(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
