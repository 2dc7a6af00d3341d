// Package media parses video references (YouTube URLs or ids, Medal.tv
// embeds) into the canonical forms posts store and the front end renders.
package media

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[\w-]{11}$`)

// YoutubeID extracts the 11-character video id from a YouTube URL or a raw
// id. Unrecognized input yields "".
func YoutubeID(urlOrID string) string {
	raw := strings.TrimSpace(urlOrID)
	if raw == "" {
		return ""
	}
	if videoIDPattern.MatchString(raw) {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}

	if strings.Contains(parsed.Host, "youtu.be") {
		for _, segment := range strings.Split(parsed.Path, "/") {
			if segment == "" {
				continue
			}
			if videoIDPattern.MatchString(segment) {
				return segment
			}
			return ""
		}
		return ""
	}

	if candidate := parsed.Query().Get("v"); candidate != "" {
		if videoIDPattern.MatchString(candidate) {
			return candidate
		}
		return ""
	}

	if idx := strings.Index(parsed.Path, "/embed/"); idx >= 0 {
		candidate := parsed.Path[idx+len("/embed/"):]
		if cut := strings.IndexAny(candidate, "/?#&"); cut >= 0 {
			candidate = candidate[:cut]
		}
		if videoIDPattern.MatchString(candidate) {
			return candidate
		}
	}

	return ""
}

// YoutubeEmbedURL builds a privacy-enhanced embed URL for the video, with an
// optional start offset in seconds. Invalid input yields "".
func YoutubeEmbedURL(input string, startSeconds int) string {
	videoID := YoutubeID(input)
	if videoID == "" {
		return ""
	}
	params := url.Values{}
	params.Set("modestbranding", "1")
	params.Set("rel", "0")
	params.Set("autoplay", "0")
	if startSeconds > 0 {
		params.Set("start", fmt.Sprintf("%d", startSeconds))
	}
	return fmt.Sprintf("https://www.youtube-nocookie.com/embed/%s?%s", videoID, params.Encode())
}

// YoutubeThumbURL returns the thumbnail URL for the video, or "".
func YoutubeThumbURL(input string) string {
	videoID := YoutubeID(input)
	if videoID == "" {
		return ""
	}
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID)
}
