package content

import (
	"mime"
	"net/url"
	"path"
	"sort"
	"strings"
)

// knownExtensions overrides the platform MIME table for types where it
// guesses an unhelpful extension.
var knownExtensions = map[string]string{
	"audio/mpeg": ".mp3",
	"audio/mp4":  ".m4a",
}

// GuessExtension maps a MIME type to a file extension, empty when the type
// cannot be resolved.
func GuessExtension(mimeType string) string {
	if ext, ok := knownExtensions[mimeType]; ok {
		return ext
	}

	extensions, err := mime.ExtensionsByType(mimeType)
	if err != nil || len(extensions) == 0 {
		return ""
	}

	sort.Strings(extensions)
	return extensions[0]
}

// GuessFileType guesses the MIME type of a file name or URL from its
// extension, empty when unknown.
func GuessFileType(name string) string {
	ext := path.Ext(name)
	if parsed, err := url.Parse(name); err == nil && parsed.Path != "" {
		ext = path.Ext(parsed.Path)
	}
	if ext == "" {
		return ""
	}

	mimeType, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil {
		return ""
	}

	return mimeType
}

const replacementChar = "_"

// SanitizeFileName strips characters that are unsafe in file names on
// common filesystems. An empty result collapses to "unknown".
func SanitizeFileName(name string) string {
	var out strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			out.WriteString(replacementChar)
		case strings.ContainsRune(`<>:"/\|?*`, r):
			out.WriteString(replacementChar)
		default:
			out.WriteRune(r)
		}
	}

	cleaned := strings.Trim(strings.TrimSpace(out.String()), ".")
	if cleaned == "" {
		return "unknown"
	}

	return cleaned
}
