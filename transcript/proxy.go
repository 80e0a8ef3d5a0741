package transcript

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ProxyConfig routes the requests of an API through a proxy and decides how
// often a blocked discovery is retried.
type ProxyConfig interface {
	// Proxy is installed as the Proxy func of the client's transport.
	Proxy() func(*http.Request) (*url.URL, error)

	// PreventKeepingConnectionsAlive makes every request use a fresh
	// connection, which rotating proxies need to hand out a new IP.
	PreventKeepingConnectionsAlive() bool

	// RetriesWhenBlocked is the number of discovery attempts made while the
	// platform keeps answering with a blocked response.
	RetriesWhenBlocked() int
}

// ErrInvalidProxyConfig is returned for a GenericProxyConfig without URLs.
var ErrInvalidProxyConfig = errors.New("proxy config: at least one of HTTPURL or HTTPSURL must be set")

// GenericProxyConfig uses the given HTTP and HTTPS proxies. If only one of
// them is set it is used for both schemes.
type GenericProxyConfig struct {
	HTTPURL  string
	HTTPSURL string
}

// NewGenericProxyConfig validates the proxy URLs.
func NewGenericProxyConfig(httpURL, httpsURL string) (*GenericProxyConfig, error) {
	pc := &GenericProxyConfig{HTTPURL: httpURL, HTTPSURL: httpsURL}
	if pc.HTTPURL == "" && pc.HTTPSURL == "" {
		return nil, ErrInvalidProxyConfig
	}
	if pc.HTTPURL == "" {
		pc.HTTPURL = pc.HTTPSURL
	}
	if pc.HTTPSURL == "" {
		pc.HTTPSURL = pc.HTTPURL
	}
	if _, err := url.Parse(pc.HTTPURL); err != nil {
		return nil, errors.Wrap(err, "parse http proxy url")
	}
	if _, err := url.Parse(pc.HTTPSURL); err != nil {
		return nil, errors.Wrap(err, "parse https proxy url")
	}
	return pc, nil
}

// Proxy reads HTTPURL and HTTPSURL on every request, so a config built as a
// struct literal behaves like one from NewGenericProxyConfig.
func (pc *GenericProxyConfig) Proxy() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		raw := pc.urlFor(req.URL.Scheme)
		if raw == "" {
			return nil, ErrInvalidProxyConfig
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrap(err, "parse proxy url")
		}
		return u, nil
	}
}

func (pc *GenericProxyConfig) urlFor(scheme string) string {
	httpURL, httpsURL := pc.HTTPURL, pc.HTTPSURL
	if httpURL == "" {
		httpURL = httpsURL
	}
	if httpsURL == "" {
		httpsURL = httpURL
	}
	if scheme == "https" {
		return httpsURL
	}
	return httpURL
}

func (pc *GenericProxyConfig) PreventKeepingConnectionsAlive() bool { return false }

func (pc *GenericProxyConfig) RetriesWhenBlocked() int { return 0 }

const (
	webshareDefaultDomain  = "p.webshare.io"
	webshareDefaultPort    = 80
	webshareDefaultRetries = 10
)

// WebshareProxyConfig uses Webshare's rotating residential proxies. Each
// request leaves through a different IP, so blocked discoveries are retried.
type WebshareProxyConfig struct {
	Username string
	Password string
	Domain   string
	Port     int

	// FilterIPLocations restricts the exit IPs to these country codes.
	FilterIPLocations []string

	Retries int
}

// NewWebshareProxyConfig returns a config with the default domain, port and
// retry count.
func NewWebshareProxyConfig(username, password string) *WebshareProxyConfig {
	return &WebshareProxyConfig{
		Username: username,
		Password: password,
		Domain:   webshareDefaultDomain,
		Port:     webshareDefaultPort,
		Retries:  webshareDefaultRetries,
	}
}

// URL returns the rotating proxy endpoint including credentials.
func (pc *WebshareProxyConfig) URL() *url.URL {
	var locations strings.Builder
	for _, loc := range pc.FilterIPLocations {
		locations.WriteString("-" + strings.ToUpper(loc))
	}
	domain := pc.Domain
	if domain == "" {
		domain = webshareDefaultDomain
	}
	port := pc.Port
	if port == 0 {
		port = webshareDefaultPort
	}
	return &url.URL{
		Scheme: "http",
		User:   url.UserPassword(pc.Username+locations.String()+"-rotate", pc.Password),
		Host:   fmt.Sprintf("%s:%d", domain, port),
		Path:   "/",
	}
}

func (pc *WebshareProxyConfig) Proxy() func(*http.Request) (*url.URL, error) {
	u := pc.URL()
	return func(*http.Request) (*url.URL, error) { return u, nil }
}

func (pc *WebshareProxyConfig) PreventKeepingConnectionsAlive() bool { return true }

func (pc *WebshareProxyConfig) RetriesWhenBlocked() int { return pc.Retries }
