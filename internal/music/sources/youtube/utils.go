package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const watchBase = "https://www.youtube.com/watch?v="

var (
	youtubeRegex   = regexp.MustCompile(`(?:https?:\/\/)?(?:www\.|music\.|m\.)?(youtube\.com|youtu\.be)\/\S+`)
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsYouTubeURL reports whether input looks like any youtube.com or youtu.be link.
func IsYouTubeURL(input string) bool {
	return youtubeRegex.MatchString(input)
}

// WatchURL builds the canonical watch link for a bare video ID.
func WatchURL(id string) string {
	return watchBase + id
}

// PlaylistURL builds the canonical playlist link for a list ID.
func PlaylistURL(listID string) string {
	return "https://www.youtube.com/playlist?list=" + url.QueryEscape(listID)
}

// PlaylistID returns the value of the last "list" query parameter, if raw parses as a URL carrying one.
func PlaylistID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	lists := u.Query()["list"]
	if len(lists) == 0 {
		return ""
	}
	return lists[len(lists)-1]
}

// HasSchemeOrHost reports whether the query carries URL markers (a scheme, or a youtube host).
func HasSchemeOrHost(query string) bool {
	return strings.Contains(query, "://") || strings.Contains(query, "youtube.com") || strings.Contains(query, "youtu.be")
}

// CleanVideoURL strips tracking and timestamp parameters from a video link.
func CleanVideoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := u.Hostname()

	switch host {
	case "youtu.be":
		vid := strings.Trim(u.Path, "/")
		if vid == "" {
			return raw
		}
		return fmt.Sprintf("https://youtu.be/%s", vid)

	case "www.youtube.com", "youtube.com", "music.youtube.com", "m.youtube.com":
		if u.Path == "/watch" {
			if vid := u.Query().Get("v"); vid != "" {
				return WatchURL(vid)
			}
		}
		return raw

	default:
		return raw
	}
}
