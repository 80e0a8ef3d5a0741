package validation

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/language"
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var videoIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// VideoID returns the video id in input, which is either a bare id or a
// watch, short link, embed, shorts or live URL.
func VideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", &ValidationError{Message: "error: video is required"}
	}
	if videoIDRE.MatchString(input) {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &ValidationError{Message: "error: invalid video id or URL"}
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case host == "youtu.be":
		id = strings.Trim(u.Path, "/")
	case youtubeHosts[host]:
		id = idFromPath(u)
	default:
		return "", &ValidationError{Message: "error: only YouTube URLs are supported"}
	}

	if !videoIDRE.MatchString(id) {
		return "", &ValidationError{Message: "error: URL must contain a valid video ID"}
	}
	return id, nil
}

func idFromPath(u *url.URL) string {
	if u.Path == "/watch" {
		return u.Query().Get("v")
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 2 {
		switch parts[0] {
		case "embed", "shorts", "live", "v":
			return parts[1]
		}
	}
	return ""
}

// Languages splits a comma or space separated list of language codes and
// checks that each is well formed. The codes are returned as given, since
// the platform matches them literally.
func Languages(input string) ([]string, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool { return r == ',' || r == ' ' })
	codes := make([]string, 0, len(fields))
	for _, code := range fields {
		if _, err := language.Parse(code); err != nil {
			return nil, &ValidationError{Message: "error: invalid language code " + code}
		}
		codes = append(codes, code)
	}
	return codes, nil
}
