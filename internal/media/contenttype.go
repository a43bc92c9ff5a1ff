package media

import (
	"path/filepath"
	"strings"
)

// DefaultContentType is used when neither the declared type nor the
// filename extension is recognised.
const DefaultContentType = "image/jpeg"

// allowedTypes maps each accepted content type to its storage key extension.
var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ResolveContentType picks the declared type when it is on the allow-list,
// else the type implied by the filename extension, else DefaultContentType.
// The result is never empty.
func ResolveContentType(declared, filename string) string {
	d := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(d, ';'); i >= 0 {
		d = strings.TrimSpace(d[:i])
	}
	if d == "image/jpg" {
		d = "image/jpeg"
	}
	if _, ok := allowedTypes[d]; ok {
		return d
	}
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return DefaultContentType
}

// ExtensionFor returns the key extension for an allowed content type.
func ExtensionFor(contentType string) string {
	if ext, ok := allowedTypes[contentType]; ok {
		return ext
	}
	return allowedTypes[DefaultContentType]
}
