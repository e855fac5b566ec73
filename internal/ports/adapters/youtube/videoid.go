package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ExtractVideoID accepts a bare id or a watch, youtu.be, shorts, embed or
// live URL and returns the 11-character id, or "" if none is found.
func ExtractVideoID(arg string) string {
	arg = strings.TrimSpace(arg)
	if videoIDRE.MatchString(arg) {
		return arg
	}
	if !strings.Contains(arg, "://") {
		arg = "https://" + arg
	}
	u, err := url.Parse(arg)
	if err != nil {
		return ""
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 {
			switch parts[0] {
			case "shorts", "embed", "live", "v":
				id = parts[1]
			}
		}
	}
	if videoIDRE.MatchString(id) {
		return id
	}
	return ""
}
