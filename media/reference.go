// Package media resolves external source references to local normalized
// media files by driving yt-dlp, ffprobe and ffmpeg.
package media

import (
	"net/url"
	"regexp"
	"strings"
)

// SupportedSource names the only accepted source site, for user-facing
// messages.
const SupportedSource = "YouTube"

var (
	referencePattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com|youtu\.be)/`)
	namePattern      = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ValidReference reports whether raw has the supported source-URL shape.
func ValidReference(raw string) bool {
	return referencePattern.MatchString(raw)
}

// ValidName reports whether name stays within the restricted charset
// (letters, digits, underscore, hyphen).
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// Canonicalize strips qualifiers that would make a reference address more
// than one item (playlists, indices, tracking parameters) and derives a
// stable item id for logging. It never fails: when the reference cannot be
// parsed, the original is returned with an empty id.
func Canonicalize(raw string) (canonical string, itemID string) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw, ""
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")

	switch host {
	case "youtu.be":
		itemID = strings.Trim(parsed.Path, "/")
		if itemID == "" {
			return raw, ""
		}
		return "https://youtu.be/" + itemID, itemID

	case "youtube.com":
		path := strings.Trim(parsed.Path, "/")

		if id, ok := strings.CutPrefix(path, "shorts/"); ok && id != "" {
			return "https://www.youtube.com/shorts/" + id, id
		}

		if path == "watch" {
			id := parsed.Query().Get("v")
			if id == "" {
				return raw, ""
			}
			return "https://www.youtube.com/watch?v=" + url.QueryEscape(id), id
		}
	}

	return raw, ""
}
