package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/pkg/errors"
)

const maxBodySize = 16 << 20

// httpClient is shared by a ListFetcher and every Transcript it builds. It
// owns the consent cookie negotiated for this API instance.
type httpClient struct {
	client *http.Client
	proxy  ProxyConfig

	mu            sync.Mutex
	consentCookie string
}

func (c *httpClient) setConsentCookie(value string) {
	c.mu.Lock()
	c.consentCookie = value
	c.mu.Unlock()
}

func (c *httpClient) cookie() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consentCookie
}

// do sends req and returns the response body. A 429 is reported as
// KindIPBlocked, any other status >= 400 and every transport failure as
// KindRequestFailed.
func (c *httpClient) do(ctx context.Context, videoID string, req *http.Request) ([]byte, error) {
	req = req.WithContext(ctx)
	req.Header.Set("Accept-Language", "en-US")
	if cookie := c.cookie(); cookie != "" {
		req.Header.Set("Cookie", "CONSENT="+cookie)
	}
	if c.proxy != nil && c.proxy.PreventKeepingConnectionsAlive() {
		req.Close = true
		req.Header.Set("Connection", "close")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		e := newError(KindRequestFailed, videoID)
		e.Err = err
		return nil, e
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		e := newError(KindIPBlocked, videoID)
		e.StatusCode = resp.StatusCode
		return nil, e
	}
	if resp.StatusCode >= http.StatusBadRequest {
		e := newError(KindRequestFailed, videoID)
		e.StatusCode = resp.StatusCode
		e.Reason = fmt.Sprintf("%s for url: %s", resp.Status, req.URL.Redacted())
		return nil, e
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		e := newError(KindRequestFailed, videoID)
		e.Err = errors.Wrap(err, "read response body")
		return nil, e
	}
	return body, nil
}
