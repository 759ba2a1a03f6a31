package unrestrict

import (
	"mime"
	"net/url"
	"path"
	"strings"
)

const fallbackContentType = "video/mp4"

var videoTypes = map[string]string{
	".mkv":  "video/x-matroska",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".ts":   "video/mp2t",
	".m2ts": "video/mp2t",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
}

// guessContentType derives a type from the filename or URL extension, then
// falls back to the type the premium API reported, then to video/mp4.
func guessContentType(filename, rawURL, reported string) string {
	for _, candidate := range []string{filename, urlPath(rawURL)} {
		ext := strings.ToLower(path.Ext(strings.TrimSpace(candidate)))
		if ext == "" {
			continue
		}
		if known, ok := videoTypes[ext]; ok {
			return known
		}
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	if reported = strings.TrimSpace(reported); reported != "" {
		return reported
	}
	return fallbackContentType
}

func urlPath(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Path
}
