package transcript

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies why a transcript could not be retrieved.
type Kind int

const (
	KindRequestFailed Kind = iota
	KindInvalidVideoID
	KindVideoUnavailable
	KindAgeRestricted
	KindVideoUnplayable
	KindRequestBlocked
	KindIPBlocked
	KindTranscriptsDisabled
	KindNoTranscriptFound
	KindNotTranslatable
	KindTranslationLanguageNotAvailable
	KindPoTokenRequired
	KindConsentCookieFailed
	KindDataUnparsable
)

var kindNames = map[Kind]string{
	KindRequestFailed:                   "request_failed",
	KindInvalidVideoID:                  "invalid_video_id",
	KindVideoUnavailable:                "video_unavailable",
	KindAgeRestricted:                   "age_restricted",
	KindVideoUnplayable:                 "video_unplayable",
	KindRequestBlocked:                  "request_blocked",
	KindIPBlocked:                       "ip_blocked",
	KindTranscriptsDisabled:             "transcripts_disabled",
	KindNoTranscriptFound:               "no_transcript_found",
	KindNotTranslatable:                 "not_translatable",
	KindTranslationLanguageNotAvailable: "translation_language_not_available",
	KindPoTokenRequired:                 "po_token_required",
	KindConsentCookieFailed:             "consent_cookie_failed",
	KindDataUnparsable:                  "data_unparsable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every operation of this package. The Kind selects
// which of the optional fields are populated.
type Error struct {
	Kind    Kind
	VideoID string

	// Reason and Subreasons are set for KindVideoUnplayable and, as the
	// HTTP failure description, for KindRequestFailed.
	Reason     string
	Subreasons []string

	// StatusCode is the HTTP status that caused the error, if any.
	StatusCode int

	// RequestedLanguages and List are set for KindNoTranscriptFound.
	RequestedLanguages []string
	List               *TranscriptList

	// ProxyConfig is attached to blocked errors so the message can point at
	// the proxy in use.
	ProxyConfig ProxyConfig

	Err error
}

func newError(kind Kind, videoID string) *Error {
	return &Error{Kind: kind, VideoID: videoID}
}

func (e *Error) Error() string {
	return Message(e)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) withProxyConfig(pc ProxyConfig) *Error {
	e.ProxyConfig = pc
	return e
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// IsBlocked reports whether err means the platform is blocking this client,
// either through bot detection or an IP-level block.
func IsBlocked(err error) bool {
	return IsKind(err, KindRequestBlocked) || IsKind(err, KindIPBlocked)
}

const watchURLFormat = "https://www.youtube.com/watch?v=%s"

const issueHint = "\n\nIf you are sure that the described cause is not responsible for this error " +
	"and that a transcript should be retrievable, please open an issue and include the video ID."

// Message renders the multi-line human readable description of e.
func Message(e *Error) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nCould not retrieve a transcript for the video %s!", fmt.Sprintf(watchURLFormat, e.VideoID))
	if cause := e.cause(); cause != "" {
		sb.WriteString(" This is most likely caused by:\n\n")
		sb.WriteString(cause)
		sb.WriteString(issueHint)
	}
	return sb.String()
}

func (e *Error) cause() string {
	switch e.Kind {
	case KindInvalidVideoID:
		return "You provided an invalid video id. Make sure you are using the video id and NOT the url!\n\n" +
			"Do NOT run: `yt-transcript \"https://www.youtube.com/watch?v=1234\"`\n" +
			"Instead run: `yt-transcript 1234`"
	case KindVideoUnavailable:
		return "The video is no longer available"
	case KindAgeRestricted:
		return "This video is age-restricted. Therefore, you are unable to retrieve transcripts for it " +
			"without authenticating yourself.\n\nUnfortunately, cookie authentication is not supported."
	case KindVideoUnplayable:
		reason := e.Reason
		if reason == "" {
			reason = "No reason specified!"
		}
		msg := "The video is unplayable for the following reason: " + reason
		if len(e.Subreasons) > 0 {
			msg += "\n\nAdditional Details:\n"
			for _, sub := range e.Subreasons {
				msg += " - " + sub + "\n"
			}
		}
		return msg
	case KindRequestBlocked, KindIPBlocked:
		return e.blockedCause()
	case KindTranscriptsDisabled:
		return "Subtitles are disabled for this video"
	case KindNoTranscriptFound:
		msg := fmt.Sprintf("No transcripts were found for any of the requested language codes: %v", e.RequestedLanguages)
		if e.List != nil {
			msg += "\n\n" + e.List.String()
		}
		return msg
	case KindNotTranslatable:
		return "The requested language is not translatable"
	case KindTranslationLanguageNotAvailable:
		return "The requested translation language is not available"
	case KindPoTokenRequired:
		return "The requested video cannot be retrieved without a PO Token. If this happens, please open an issue!"
	case KindConsentCookieFailed:
		return "Failed to automatically give consent to saving cookies"
	case KindDataUnparsable:
		msg := "The data required to fetch the transcript is not parsable. This should not happen, " +
			"please open an issue (make sure to include the video ID)!"
		if e.Err != nil {
			msg += "\n\nDetails: " + e.Err.Error()
		}
		return msg
	case KindRequestFailed:
		reason := e.Reason
		if reason == "" && e.Err != nil {
			reason = e.Err.Error()
		}
		return "Request to YouTube failed: " + reason
	}
	return ""
}

func (e *Error) blockedCause() string {
	var msg string
	if e.Kind == KindIPBlocked {
		msg = "YouTube is blocking requests from your IP. This usually is due to one of the following reasons:\n" +
			"- You have done too many requests and your IP has been blocked by YouTube\n" +
			"- You are doing requests from an IP belonging to a cloud provider (like AWS, Google Cloud " +
			"Platform, Azure, etc.). Unfortunately, most IPs from cloud providers are blocked by YouTube.\n\n"
	} else {
		msg = "YouTube is blocking requests from your IP. This usually is due to one of the following reasons:\n" +
			"- You have done too many requests and your IP has been flagged by YouTube\n" +
			"- You are doing requests from an IP belonging to a cloud provider\n\n"
	}
	switch pc := e.ProxyConfig.(type) {
	case *WebshareProxyConfig:
		return msg + "Webshare Proxy: it looks like you are using rotating residential proxies, but YouTube " +
			"is still blocking the requests. Make sure you are using the \"Residential\" proxies and not " +
			"\"Proxy Server\" or \"Static Residential\". You may also raise the retries (currently " +
			fmt.Sprint(pc.RetriesWhenBlocked()) + ")."
	case *GenericProxyConfig:
		return msg + "You are using a proxy, but YouTube is still blocking the requests. Using rotating " +
			"residential proxies is recommended, since datacenter proxies are blocked as well."
	}
	return msg + "Ways to work around this are to route requests through a proxy (see -webshare-proxy-username " +
		"and -http-proxy) or to wait before retrying."
}
