package youtube

import (
	"strings"

	"github.com/kkdai/youtube/v2"
)

// bestAudioFormat returns the highest-bitrate format that carries audio and no video.
func bestAudioFormat(formats youtube.FormatList) (*youtube.Format, bool) {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 || !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		if best == nil || bitrate(f) > bitrate(best) {
			best = f
		}
	}
	return best, best != nil
}

func bitrate(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

// largestThumbnail returns the URL of the biggest thumbnail, or "".
func largestThumbnail(thumbs youtube.Thumbnails) string {
	var (
		url  string
		area uint
	)
	for _, t := range thumbs {
		if a := t.Width * t.Height; url == "" || a > area {
			url, area = t.URL, a
		}
	}
	return url
}
