package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/logger"
)

// APICall performs one MediaWiki action API request and returns the parsed
// JSON document, retrying every transient condition internally:
// connection failures, 503/429 (honouring Retry-After), maxlag and
// readonly error bodies, action throttling, and blank-body decode
// failures. Context cancellation aborts a sleep immediately.
func (c *Client) APICall(ctx context.Context, method string, params map[string]string) (map[string]any, error) {
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("format", "json")
	if _, ok := params["maxlag"]; !ok {
		form.Set("maxlag", strconv.Itoa(c.maxlag))
	}
	action := params["action"]
	apiCalls.WithLabelValues(action).Inc()

	attempt := 0
	for {
		attempt++

		body, status, err := c.doRequest(ctx, method, form)
		if err != nil {
			// TCP/connection failure: transient
			if ctx.Err() != nil {
				return nil, errors.Wrap(errors.ErrCancelled, ctx.Err().Error())
			}
			if retryErr := c.backoff(ctx, attempt, c.retryAfter, "connection", err); retryErr != nil {
				return nil, retryErr
			}
			continue
		}

		switch {
		case status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests:
			reason := "http_503"
			if status == http.StatusTooManyRequests {
				reason = "http_429"
			}
			if retryErr := c.backoff(ctx, attempt, retryAfterHeader(body.header, c.retryAfter), reason,
				errors.Newf("HTTP %d from API", status)); retryErr != nil {
				return nil, retryErr
			}
			continue
		case status >= 400:
			// Other 4xx/5xx are terminal.
			return nil, &errors.TransportError{
				StatusCode: status,
				Attempts:   attempt,
				Err:        errors.Newf("HTTP %d from API", status),
			}
		}

		var doc map[string]any
		if err := json.Unmarshal(body.raw, &doc); err != nil {
			if len(strings.TrimSpace(string(body.raw))) == 0 {
				// The server occasionally answers 200 with an empty
				// body under load; treat like a transient failure.
				if retryErr := c.backoff(ctx, attempt, c.retryAfter, "blank_body", err); retryErr != nil {
					return nil, retryErr
				}
				continue
			}
			return nil, &errors.TransportError{Attempts: attempt, Err: errors.Wrap(err, "decoding API response")}
		}

		apiErr, ok := extractAPIError(doc)
		if !ok {
			return doc, nil
		}

		switch apiErr.Code {
		case "maxlag":
			lag := c.retryAfter
			if errObj, ok := doc["error"].(map[string]any); ok {
				if l, ok := errObj["lag"].(float64); ok && l > 0 {
					lag = time.Duration(l * float64(time.Second))
				}
			}
			if retryErr := c.backoff(ctx, attempt, lag, "maxlag", apiErr); retryErr != nil {
				return nil, retryErr
			}
			continue
		case "readonly":
			if retryErr := c.backoff(ctx, attempt, c.retryAfter, "readonly", apiErr); retryErr != nil {
				return nil, retryErr
			}
			continue
		}

		if hasErrorMessage(doc, "actionthrottledtext") {
			if retryErr := c.backoff(ctx, attempt, retryAfterHeader(body.header, c.retryAfter), "throttled", apiErr); retryErr != nil {
				return nil, retryErr
			}
			continue
		}

		// Server-reported, non-transient error: the caller decides.
		return doc, apiErr
	}
}

type responseBody struct {
	raw    []byte
	header http.Header
}

func (c *Client) doRequest(ctx context.Context, method string, form url.Values) (*responseBody, int, error) {
	var req *http.Request
	var err error

	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+form.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "building API request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return &responseBody{raw: raw, header: resp.Header}, resp.StatusCode, nil
}

// backoff sleeps before the next attempt, or returns the terminal error
// when attempts are exhausted or the context is done. The sleep grows
// exponentially with the attempt number and is capped at backoffMaxValue;
// server-directed sleeps (Retry-After, lag) are used as given, capped the
// same way.
func (c *Client) backoff(ctx context.Context, attempt int, base time.Duration, reason string, cause error) error {
	apiRetries.WithLabelValues(reason).Inc()

	if c.backoffMaxTries > 0 && attempt >= c.backoffMaxTries {
		return &errors.TransportError{Attempts: attempt, Err: errors.Wrapf(cause, "giving up after %d attempts", attempt)}
	}

	sleep := base
	if attempt > 1 {
		shift := attempt - 1
		if shift > 20 {
			shift = 20
		}
		sleep = base * time.Duration(1<<shift)
	}
	if sleep > c.backoffMaxValue {
		sleep = c.backoffMaxValue
	}

	c.log.Warnw("retrying API call",
		logger.FieldAttempt, attempt,
		"reason", reason,
		logger.FieldSleep, sleep.String(),
		logger.FieldError, cause)

	timer := time.NewTimer(sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCancelled, ctx.Err().Error())
	case <-timer.C:
		return nil
	}
}

func retryAfterHeader(h http.Header, fallback time.Duration) time.Duration {
	if h == nil {
		return fallback
	}
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// extractAPIError pulls a server-reported error document out of a 200
// response body.
func extractAPIError(doc map[string]any) (*errors.APIError, bool) {
	errObj, ok := doc["error"].(map[string]any)
	if !ok {
		return nil, false
	}
	code, _ := errObj["code"].(string)
	info, _ := errObj["info"].(string)
	return &errors.APIError{Code: code, Info: info, Body: doc}, true
}

// hasErrorMessage checks error.messages[*].name for a given message name.
func hasErrorMessage(doc map[string]any, name string) bool {
	errObj, ok := doc["error"].(map[string]any)
	if !ok {
		return false
	}
	msgs, ok := errObj["messages"].([]any)
	if !ok {
		return false
	}
	for _, m := range msgs {
		if mm, ok := m.(map[string]any); ok {
			if n, _ := mm["name"].(string); n == name {
				return true
			}
		}
	}
	return false
}
