// Package client is the HTTP+SPARQL transport: exponential backoff with
// maxlag and rate-limit handling, edit-token caching, login sessions, and
// the canonical SPARQL prefix block. Callers see a single successful
// response or a terminal error; every transient class in between is
// recovered here.
package client

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/wikibase/config"
	"github.com/teranos/wikibase/internal/httpclient"
	"github.com/teranos/wikibase/logger"
)

// Client speaks the MediaWiki action API and the SPARQL endpoint for one
// Wikibase deployment. It is safe for concurrent use; the cookie jar and
// token cache are shared across all calls.
type Client struct {
	apiURL    string
	sparqlURL string

	httpc *httpclient.SessionClient
	log   *zap.SugaredLogger

	maxlag           int
	retryAfter       time.Duration // default sleep and request timeout
	backoffMaxTries  int           // 0 = unbounded
	backoffMaxValue  time.Duration // cap on a single sleep
	tokenRenewPeriod time.Duration

	writeLimiter *rate.Limiter // nil = unlimited

	mu            sync.Mutex
	username      string
	isBot         bool
	userAgentBase string
	csrfToken     string
	csrfFetched   time.Time
}

// Option tweaks a Client at construction.
type Option func(*Client)

// WithSPARQLEndpoint overrides the SPARQL endpoint URL.
func WithSPARQLEndpoint(url string) Option {
	return func(c *Client) { c.sparqlURL = url }
}

// WithUserAgent overrides the User-Agent base string.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgentBase = ua }
}

// WithMaxlag overrides the maxlag parameter sent on every API call.
func WithMaxlag(maxlag int) Option {
	return func(c *Client) { c.maxlag = maxlag }
}

// WithBackoff bounds the retry loop: maxTries attempts (0 = unbounded),
// maxValue cap on any single sleep.
func WithBackoff(maxTries int, maxValue time.Duration) Option {
	return func(c *Client) {
		c.backoffMaxTries = maxTries
		c.backoffMaxValue = maxValue
	}
}

// WithRetryAfter sets the default sleep between retries; it doubles as the
// HTTP request timeout.
func WithRetryAfter(d time.Duration) Option {
	return func(c *Client) { c.retryAfter = d }
}

// WithWritesPerMinute rate-limits write calls. 0 disables the limiter.
func WithWritesPerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.writeLimiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)
		}
	}
}

// New builds a transport for one deployment from the process configuration
// plus per-client options.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	c := &Client{
		apiURL:           cfg.Endpoints.MediawikiAPIURL,
		sparqlURL:        cfg.Endpoints.SPARQLEndpointURL,
		log:              logger.Named("client"),
		maxlag:           cfg.Transport.Maxlag,
		retryAfter:       time.Duration(cfg.Transport.RetryAfter) * time.Second,
		backoffMaxTries:  cfg.Backoff.MaxTries,
		backoffMaxValue:  time.Duration(cfg.Backoff.MaxValue) * time.Second,
		tokenRenewPeriod: time.Duration(cfg.Transport.TokenRenewPeriod) * time.Second,
		userAgentBase:    cfg.Transport.UserAgent,
	}
	if cfg.Transport.WritesPerMinute > 0 {
		c.writeLimiter = rate.NewLimiter(rate.Limit(float64(cfg.Transport.WritesPerMinute)/60.0), 1)
	}
	for _, opt := range opts {
		opt(c)
	}

	httpc, err := httpclient.New(c.retryAfter, c.userAgent)
	if err != nil {
		return nil, err
	}
	c.httpc = httpc
	return c, nil
}

// APIURL returns the bound MediaWiki API endpoint.
func (c *Client) APIURL() string { return c.apiURL }

// SPARQLURL returns the bound SPARQL endpoint.
func (c *Client) SPARQLURL() string { return c.sparqlURL }

// Username returns the logged-in username, empty before login.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// IsBot reports whether the session logged in as a bot account; writes
// then carry bot=1.
func (c *Client) IsBot() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isBot
}

// userAgent implements the Wikimedia User-Agent policy: the base string,
// and the username once logged in.
func (c *Client) userAgent() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.username != "" {
		return c.userAgentBase + " (user:" + c.username + ")"
	}
	return c.userAgentBase
}
