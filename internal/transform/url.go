package transform

import (
	"net/url"
	"regexp"
	"strings"
)

const DefaultPlaceholder = "/placeholder-image.jpg"

var (
	videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	digitsRe  = regexp.MustCompile(`^\d+$`)
	handleRe  = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)
)

// ImageURL moves references into the post's relative images directory onto
// base, the host serving the content API's /images directory. Other values
// pass through unchanged and empty paths get the placeholder.
func ImageURL(path, base string) string {
	return imageURL(path, base, DefaultPlaceholder)
}

func imageURL(path, base, placeholder string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return placeholder
	}
	name, ok := strings.CutPrefix(p, "./images/")
	if !ok {
		name, ok = strings.CutPrefix(p, "images/")
	}
	if !ok {
		return p
	}
	return strings.TrimRight(base, "/") + "/images/" + name
}

func hostOf(u *url.URL) string {
	h := strings.ToLower(u.Hostname())
	h = strings.TrimPrefix(h, "www.")
	return strings.TrimPrefix(h, "m.")
}

func parseHTTP(raw string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}
	return u, true
}

// VideoID returns the YouTube video id of a watch, embed, shorts or youtu.be
// link.
func VideoID(raw string) (string, bool) {
	u, ok := parseHTTP(raw)
	if !ok {
		return "", false
	}

	var id string
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch hostOf(u) {
	case "youtu.be":
		id = segs[0]
	case "youtube.com", "youtube-nocookie.com":
		switch {
		case segs[0] == "watch":
			id = u.Query().Get("v")
		case len(segs) == 2 && (segs[0] == "embed" || segs[0] == "shorts" || segs[0] == "live"):
			id = segs[1]
		}
	}
	if !videoIDRe.MatchString(id) {
		return "", false
	}
	return id, true
}

// SocialPost returns the handle and status id of a twitter.com or x.com
// status link.
func SocialPost(raw string) (handle, id string, ok bool) {
	u, ok := parseHTTP(raw)
	if !ok {
		return "", "", false
	}
	switch hostOf(u) {
	case "twitter.com", "x.com":
	default:
		return "", "", false
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) < 3 || segs[1] != "status" {
		return "", "", false
	}
	if !handleRe.MatchString(segs[0]) || !digitsRe.MatchString(segs[2]) {
		return "", "", false
	}
	return segs[0], segs[2], true
}

// embedFor recognizes raw as a single embeddable URL.
func embedFor(raw string) (Embed, bool) {
	if id, ok := VideoID(raw); ok {
		return Embed{Kind: EmbedVideo, ID: id, URL: raw}, true
	}
	if handle, id, ok := SocialPost(raw); ok {
		return Embed{Kind: EmbedSocial, ID: id, Handle: handle, URL: raw}, true
	}
	return Embed{}, false
}
