// Package httpclient constructs the http.Client the transport speaks
// through: cookie-jar backed sessions, a mandatory User-Agent, and
// conservative connection pooling.
package httpclient

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/teranos/wikibase/errors"
)

const maxRedirects = 10

// SessionClient wraps http.Client with a cookie jar (MediaWiki login
// sessions are cookie-based) and stamps every request with a User-Agent.
type SessionClient struct {
	*http.Client
	userAgent string
}

// uaTransport injects the User-Agent header on every request.
type uaTransport struct {
	base http.RoundTripper
	ua   func() string
}

func (t *uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.ua())
	}
	return t.base.RoundTrip(req)
}

// New creates a session client. The userAgent func is consulted per request
// so the transport can fold in the username after login.
func New(timeout time.Duration, userAgent func() string) (*SessionClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}

	base := &http.Transport{
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := &SessionClient{
		Client: &http.Client{
			Timeout:   timeout,
			Jar:       jar,
			Transport: &uaTransport{base: base, ua: userAgent},
		},
	}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errors.Newf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	return client, nil
}
