package transcript

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimeout = 30 * time.Second

// API lists and fetches transcripts. One API holds one HTTP client and the
// consent cookie negotiated through it; it is safe for concurrent use.
type API struct {
	fetcher *ListFetcher
}

type options struct {
	client        *http.Client
	proxy         ProxyConfig
	clientVersion string
	watchURL      string
	playerURL     string
	log           logrus.FieldLogger
}

// Option configures an API.
type Option func(*options)

// WithHTTPClient replaces the default client. With a proxy config the
// client's transport is cloned, the original is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.client = c }
}

func WithProxyConfig(pc ProxyConfig) Option {
	return func(o *options) { o.proxy = pc }
}

// WithClientVersion overrides DefaultClientVersion.
func WithClientVersion(v string) Option {
	return func(o *options) {
		if v != "" {
			o.clientVersion = v
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// withEndpoints points the API at a test server. Both formats take one %s.
func withEndpoints(watchURL, playerURL string) Option {
	return func(o *options) {
		o.watchURL = watchURL
		o.playerURL = playerURL
	}
}

// New returns an API configured by opts.
func New(opts ...Option) *API {
	o := options{
		clientVersion: DefaultClientVersion,
		watchURL:      defaultWatchURL,
		playerURL:     defaultPlayerURL,
		log:           logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	client := o.client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if o.proxy != nil {
		client = proxiedClient(client, o.proxy)
	}

	hc := &httpClient{client: client, proxy: o.proxy}
	return &API{
		fetcher: &ListFetcher{
			http:          hc,
			proxy:         o.proxy,
			clientVersion: o.clientVersion,
			watchURL:      o.watchURL,
			playerURL:     o.playerURL,
			log:           o.log,
		},
	}
}

func proxiedClient(c *http.Client, pc ProxyConfig) *http.Client {
	var transport *http.Transport
	if t, ok := c.Transport.(*http.Transport); ok && t != nil {
		transport = t.Clone()
	} else {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	transport.Proxy = pc.Proxy()
	if pc.PreventKeepingConnectionsAlive() {
		transport.DisableKeepAlives = true
	}

	clone := *c
	clone.Transport = transport
	return &clone
}

// List returns the catalog of caption tracks of videoID. videoID must be a
// bare id, not a URL.
func (a *API) List(ctx context.Context, videoID string) (*TranscriptList, error) {
	return a.fetcher.Fetch(ctx, videoID)
}

// Fetch retrieves the first available transcript in languages, trying them
// in order. An empty languages list means English.
func (a *API) Fetch(ctx context.Context, videoID string, languages []string, preserveFormatting bool) (*FetchedTranscript, error) {
	if len(languages) == 0 {
		languages = []string{"en"}
	}
	list, err := a.List(ctx, videoID)
	if err != nil {
		return nil, err
	}
	t, err := list.FindTranscript(languages)
	if err != nil {
		return nil, err
	}
	return t.Fetch(ctx, preserveFormatting)
}
