package transcript

import (
	"regexp"
	"strings"
)

const consentFormMarker = `action="https://consent.youtube.com/s"`

var consentValueRE = regexp.MustCompile(`name="v" value="(.*?)"`)

func hasConsentWall(html string) bool {
	return strings.Contains(html, consentFormMarker)
}

// consentCookie derives the CONSENT cookie value from a consent wall page.
func consentCookie(html, videoID string) (string, error) {
	m := consentValueRE.FindStringSubmatch(html)
	if m == nil {
		return "", newError(KindConsentCookieFailed, videoID)
	}
	return "YES+" + m[1], nil
}
