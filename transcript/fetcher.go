package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultWatchURL  = "https://www.youtube.com/watch?v=%s"
	defaultPlayerURL = "https://www.youtube.com/youtubei/v1/player?key=%s"

	// DefaultClientVersion is the ANDROID client version sent to the player
	// API. The platform rejects outdated versions, so it is configurable.
	DefaultClientVersion = "20.10.38"

	captchaMarker = `class="g-recaptcha"`
)

var apiKeyRE = regexp.MustCompile(`"INNERTUBE_API_KEY":\s*"([a-zA-Z0-9_-]+)"`)

type playerRequest struct {
	Context struct {
		Client struct {
			ClientName    string `json:"clientName"`
			ClientVersion string `json:"clientVersion"`
		} `json:"client"`
	} `json:"context"`
	VideoID string `json:"videoId"`
}

type playerResponse struct {
	PlayabilityStatus *playabilityStatus `json:"playabilityStatus"`
	Captions          *struct {
		Renderer *captionsJSON `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// captionsJSON is the caption catalog part of the player response.
type captionsJSON struct {
	CaptionTracks        []captionTrack        `json:"captionTracks"`
	TranslationLanguages []translationLanguage `json:"translationLanguages"`
}

type captionTrack struct {
	BaseURL        string    `json:"baseUrl"`
	Name           labelText `json:"name"`
	LanguageCode   string    `json:"languageCode"`
	Kind           string    `json:"kind"`
	IsTranslatable bool      `json:"isTranslatable"`
}

type translationLanguage struct {
	LanguageCode string    `json:"languageCode"`
	LanguageName labelText `json:"languageName"`
}

// labelText is a localized label, either as runs or as simple text.
type labelText struct {
	Runs       []textRun `json:"runs"`
	SimpleText string    `json:"simpleText"`
}

func (l labelText) String() string {
	if len(l.Runs) > 0 {
		return l.Runs[0].Text
	}
	return l.SimpleText
}

// ListFetcher discovers the caption catalog of a video: watch page, API key,
// player API call, playability check.
type ListFetcher struct {
	http          *httpClient
	proxy         ProxyConfig
	clientVersion string
	watchURL      string
	playerURL     string
	log           logrus.FieldLogger
}

// Fetch returns the catalog of caption tracks of videoID.
func (f *ListFetcher) Fetch(ctx context.Context, videoID string) (*TranscriptList, error) {
	captions, err := f.fetchCaptionsJSON(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return buildTranscriptList(f.http, videoID, captions), nil
}

// fetchCaptionsJSON runs the discovery and repeats it while the platform
// answers with a blocked response, up to the proxy's retry budget.
func (f *ListFetcher) fetchCaptionsJSON(ctx context.Context, videoID string) (*captionsJSON, error) {
	attempts := 1
	if f.proxy != nil && f.proxy.RetriesWhenBlocked() > attempts {
		attempts = f.proxy.RetriesWhenBlocked()
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		var captions *captionsJSON
		captions, err = f.discover(ctx, videoID)
		if err == nil {
			return captions, nil
		}
		if !IsBlocked(err) {
			return nil, err
		}
		f.log.WithFields(logrus.Fields{
			"video_id": videoID,
			"attempt":  attempt,
			"attempts": attempts,
		}).Debug("Request blocked")
	}

	var te *Error
	if errors.As(err, &te) {
		te.withProxyConfig(f.proxy)
	}
	return nil, err
}

func (f *ListFetcher) discover(ctx context.Context, videoID string) (*captionsJSON, error) {
	page, err := f.fetchVideoHTML(ctx, videoID)
	if err != nil {
		return nil, err
	}
	apiKey, err := extractAPIKey(page, videoID)
	if err != nil {
		return nil, err
	}
	resp, err := f.fetchPlayerResponse(ctx, videoID, apiKey)
	if err != nil {
		return nil, err
	}
	return extractCaptionsJSON(resp, videoID)
}

// fetchVideoHTML returns the unescaped watch page, giving consent once if
// the platform serves its consent wall instead.
func (f *ListFetcher) fetchVideoHTML(ctx context.Context, videoID string) (string, error) {
	page, err := f.fetchHTML(ctx, videoID)
	if err != nil {
		return "", err
	}
	if !hasConsentWall(page) {
		return page, nil
	}

	cookie, err := consentCookie(page, videoID)
	if err != nil {
		return "", err
	}
	f.http.setConsentCookie(cookie)
	f.log.WithField("video_id", videoID).Debug("Consent cookie set")

	page, err = f.fetchHTML(ctx, videoID)
	if err != nil {
		return "", err
	}
	if hasConsentWall(page) {
		return "", newError(KindConsentCookieFailed, videoID)
	}
	return page, nil
}

func (f *ListFetcher) fetchHTML(ctx context.Context, videoID string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf(f.watchURL, url.QueryEscape(videoID)), nil)
	if err != nil {
		e := newError(KindRequestFailed, videoID)
		e.Err = err
		return "", e
	}
	body, err := f.http.do(ctx, videoID, req)
	if err != nil {
		return "", err
	}
	return html.UnescapeString(string(body)), nil
}

// extractAPIKey finds the player API key embedded in the watch page.
func extractAPIKey(page, videoID string) (string, error) {
	if m := apiKeyRE.FindStringSubmatch(page); m != nil {
		return m[1], nil
	}
	if strings.Contains(page, captchaMarker) {
		return "", newError(KindIPBlocked, videoID)
	}
	e := newError(KindDataUnparsable, videoID)
	e.Err = errors.New("INNERTUBE_API_KEY not found in watch page")
	return "", e
}

func (f *ListFetcher) fetchPlayerResponse(ctx context.Context, videoID, apiKey string) (*playerResponse, error) {
	var payload playerRequest
	payload.Context.Client.ClientName = "ANDROID"
	payload.Context.Client.ClientVersion = f.clientVersion
	payload.VideoID = videoID

	data, err := json.Marshal(payload)
	if err != nil {
		e := newError(KindRequestFailed, videoID)
		e.Err = errors.Wrap(err, "encode player request")
		return nil, e
	}
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf(f.playerURL, url.QueryEscape(apiKey)), bytes.NewReader(data))
	if err != nil {
		e := newError(KindRequestFailed, videoID)
		e.Err = err
		return nil, e
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := f.http.do(ctx, videoID, req)
	if err != nil {
		return nil, err
	}

	var resp playerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		e := newError(KindDataUnparsable, videoID)
		e.Err = errors.Wrap(err, "decode player response")
		return nil, e
	}
	return &resp, nil
}

func extractCaptionsJSON(resp *playerResponse, videoID string) (*captionsJSON, error) {
	if err := classifyPlayability(videoID, resp.PlayabilityStatus); err != nil {
		return nil, err
	}
	if resp.Captions == nil || resp.Captions.Renderer == nil || resp.Captions.Renderer.CaptionTracks == nil {
		return nil, newError(KindTranscriptsDisabled, videoID)
	}
	return resp.Captions.Renderer, nil
}
