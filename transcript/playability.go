package transcript

import "strings"

const (
	playabilityOK            = "OK"
	playabilityError         = "ERROR"
	playabilityLoginRequired = "LOGIN_REQUIRED"
)

// Reasons the player API reports for statuses this package knows how to
// diagnose. Anything else is surfaced as KindVideoUnplayable.
const (
	reasonBotDetected      = "Sign in to confirm you’re not a bot"
	reasonAgeRestricted    = "This video may be inappropriate for some users."
	reasonVideoUnavailable = "This video is unavailable"
)

type playabilityStatus struct {
	Status      *string `json:"status"`
	Reason      string  `json:"reason"`
	ErrorScreen *struct {
		PlayerErrorMessageRenderer *struct {
			Subreason *struct {
				Runs []textRun `json:"runs"`
			} `json:"subreason"`
		} `json:"playerErrorMessageRenderer"`
	} `json:"errorScreen"`
}

type textRun struct {
	Text string `json:"text"`
}

func (ps *playabilityStatus) subreasons() []string {
	subs := []string{}
	if ps.ErrorScreen == nil || ps.ErrorScreen.PlayerErrorMessageRenderer == nil ||
		ps.ErrorScreen.PlayerErrorMessageRenderer.Subreason == nil {
		return subs
	}
	for _, run := range ps.ErrorScreen.PlayerErrorMessageRenderer.Subreason.Runs {
		subs = append(subs, run.Text)
	}
	return subs
}

// classifyPlayability maps the reported playability of a video to nil or to
// the *Error describing why its captions cannot be listed. A missing status
// object or status field means the video is playable.
func classifyPlayability(videoID string, ps *playabilityStatus) error {
	if ps == nil || ps.Status == nil || *ps.Status == playabilityOK {
		return nil
	}

	status := *ps.Status
	switch {
	case status == playabilityLoginRequired && ps.Reason == reasonBotDetected:
		return newError(KindRequestBlocked, videoID)
	case status == playabilityLoginRequired && ps.Reason == reasonAgeRestricted:
		return newError(KindAgeRestricted, videoID)
	case status == playabilityError && ps.Reason == reasonVideoUnavailable:
		if looksLikeURL(videoID) {
			return newError(KindInvalidVideoID, videoID)
		}
		return newError(KindVideoUnavailable, videoID)
	}

	e := newError(KindVideoUnplayable, videoID)
	e.Reason = ps.Reason
	e.Subreasons = ps.subreasons()
	return e
}

func looksLikeURL(videoID string) bool {
	return strings.HasPrefix(videoID, "http://") || strings.HasPrefix(videoID, "https://")
}
