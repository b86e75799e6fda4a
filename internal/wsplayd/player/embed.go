package player

import (
	"fmt"
	"net/url"
	"strings"
)

// EmbedOptions are the query parameters of a player embed URL
type EmbedOptions struct {
	ExternalVideoID string
	Hash            string
	Autoplay        bool
	Muted           bool
	Loop            bool
	Controls        bool
	Background      bool
}

// EmbedURL builds the iframe source for a video on base, e.g.
// https://player.vimeo.com/video/76979871?autoplay=1&h=abc
func EmbedURL(base string, opts EmbedOptions) (string, error) {
	if opts.ExternalVideoID == "" {
		return "", fmt.Errorf("external video id is required")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid embed base %q: %w", base, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid embed base %q: scheme and host are required", base)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + url.PathEscape(opts.ExternalVideoID)

	q := url.Values{}
	if opts.Hash != "" {
		q.Set("h", opts.Hash)
	}
	q.Set("autoplay", flag(opts.Autoplay))
	q.Set("muted", flag(opts.Muted))
	q.Set("loop", flag(opts.Loop))
	q.Set("controls", flag(opts.Controls))
	q.Set("background", flag(opts.Background))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
