package constants

import "strings"

// Document formats recognized by the normalizer.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
	TXT   = "TXT"
)

// FileTypes holds the formats a run can record.
var FileTypes = []string{PDF, IMAGE, TXT}

// AllowedExtensions holds the file extensions accepted as invoice input, mapped to their format.
var AllowedExtensions = map[string]string{
	"pdf":  PDF,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"png":  IMAGE,
	"txt":  TXT,
	"text": TXT,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}

// MapMIMEToFormat classifies a sniffed MIME type for files without an extension.
func MapMIMEToFormat(mime string) string {
	switch {
	case mime == "application/pdf":
		return PDF
	case mime == "image/png", mime == "image/jpeg":
		return IMAGE
	case strings.HasPrefix(mime, "text/plain"):
		return TXT
	}
	return ""
}
