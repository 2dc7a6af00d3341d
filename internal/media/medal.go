package media

import (
	"net/url"
	"regexp"
	"strings"
)

var iframeSrcPattern = regexp.MustCompile(`(?i)<iframe[^>]*\s+src=['"]([^'"]+)['"][^>]*>\s*</iframe>`)

// MedalSrc accepts a Medal.tv iframe embed snippet or a Medal.tv URL and
// returns a usable clip source URL, else "".
func MedalSrc(input string) string {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return ""
	}

	if match := iframeSrcPattern.FindStringSubmatch(raw); len(match) == 2 && match[1] != "" {
		return match[1]
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return ""
	}
	if strings.Contains(parsed.Host, "medal.tv") {
		return parsed.String()
	}
	return ""
}
