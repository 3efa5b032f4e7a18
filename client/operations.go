package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/wikibase/errors"
)

// Token returns a cached edit token, refreshing it at most every
// tokenRenewPeriod. Refresh is idempotent; concurrent callers share one
// fetch result.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.csrfToken != "" && time.Since(c.csrfFetched) < c.tokenRenewPeriod {
		token := c.csrfToken
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	doc, err := c.APICall(ctx, http.MethodGet, map[string]string{
		"action": "query",
		"meta":   "tokens",
		"type":   "csrf",
	})
	if err != nil {
		return "", errors.Wrap(err, "fetching edit token")
	}
	token := digString(doc, "query", "tokens", "csrftoken")
	if token == "" {
		return "", errors.New("token response carried no csrftoken")
	}

	c.mu.Lock()
	c.csrfToken = token
	c.csrfFetched = time.Now()
	c.mu.Unlock()
	return token, nil
}

// invalidateToken drops the cached token after a badtoken error.
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.csrfToken = ""
	c.mu.Unlock()
}

// GetEntity fetches one entity's JSON document by id.
func (c *Client) GetEntity(ctx context.Context, id string) (map[string]any, error) {
	doc, err := c.APICall(ctx, http.MethodGet, map[string]string{
		"action": "wbgetentities",
		"ids":    id,
	})
	if err != nil {
		return nil, err
	}
	entities, ok := doc["entities"].(map[string]any)
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "no entities in response for %s", id)
	}
	entity, ok := entities[id].(map[string]any)
	if !ok {
		// Redirects come back under the target id.
		for _, v := range entities {
			if m, ok := v.(map[string]any); ok {
				entity = m
				break
			}
		}
	}
	if entity == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "entity %s", id)
	}
	if _, missing := entity["missing"]; missing {
		return nil, errors.Wrapf(errors.ErrNotFound, "entity %s", id)
	}
	return entity, nil
}

// SearchResult is one wbsearchentities hit.
type SearchResult struct {
	ID          string
	Label       string
	Description string
	URL         string
}

// SearchEntities runs a label/alias search and returns up to maxResults
// hits, paging through continuation offsets as needed.
func (c *Client) SearchEntities(ctx context.Context, search, language string, maxResults int) ([]SearchResult, error) {
	if language == "" {
		language = "en"
	}
	if maxResults <= 0 {
		maxResults = 500
	}

	var results []SearchResult
	offset := 0
	for {
		limit := maxResults - len(results)
		if limit > 50 {
			limit = 50
		}
		doc, err := c.APICall(ctx, http.MethodGet, map[string]string{
			"action":   "wbsearchentities",
			"search":   search,
			"language": language,
			"limit":    strconv.Itoa(limit),
			"continue": strconv.Itoa(offset),
		})
		if err != nil {
			return nil, err
		}
		if success, ok := doc["success"].(float64); !ok || success != 1 {
			return nil, &errors.SearchError{Query: search, Body: doc}
		}

		hits, _ := doc["search"].([]any)
		for _, h := range hits {
			m, ok := h.(map[string]any)
			if !ok {
				continue
			}
			results = append(results, SearchResult{
				ID:          str(m["id"]),
				Label:       str(m["label"]),
				Description: str(m["description"]),
				URL:         str(m["url"]),
			})
		}

		cont, more := doc["search-continue"].(float64)
		if !more || len(results) >= maxResults {
			return results, nil
		}
		offset = int(cont)
	}
}

// EditEntity posts an entity document through wbeditentity and returns the
// server's entity JSON. A label/description conflict surfaces as the typed
// error; a stale token is refreshed once.
func (c *Client) EditEntity(ctx context.Context, params map[string]string, data map[string]any) (map[string]any, error) {
	if c.writeLimiter != nil {
		if err := c.writeLimiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(errors.ErrCancelled, err.Error())
		}
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Wrap(err, "encoding entity document")
	}

	for retried := false; ; {
		token, err := c.Token(ctx)
		if err != nil {
			return nil, err
		}

		form := map[string]string{
			"action": "wbeditentity",
			"data":   string(encoded),
			"token":  token,
		}
		for k, v := range params {
			form[k] = v
		}
		if c.IsBot() {
			form["bot"] = "1"
		}

		doc, err := c.APICall(ctx, http.MethodPost, form)
		if err != nil {
			var apiErr *errors.APIError
			if errors.As(err, &apiErr) {
				if apiErr.Code == "badtoken" && !retried {
					c.invalidateToken()
					retried = true
					continue
				}
				if conflict := asLabelDescriptionConflict(apiErr); conflict != nil {
					return nil, conflict
				}
			}
			return nil, err
		}

		entity, ok := doc["entity"].(map[string]any)
		if !ok {
			return nil, errors.New("wbeditentity response carried no entity")
		}
		return entity, nil
	}
}

// MergeItems merges one item into another via wbmergeitems.
func (c *Client) MergeItems(ctx context.Context, from, to string, ignoreConflicts []string) (map[string]any, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	form := map[string]string{
		"action": "wbmergeitems",
		"fromid": from,
		"toid":   to,
		"token":  token,
	}
	if len(ignoreConflicts) > 0 {
		form["ignoreconflicts"] = strings.Join(ignoreConflicts, "|")
	}
	if c.IsBot() {
		form["bot"] = "1"
	}
	doc, err := c.APICall(ctx, http.MethodPost, form)
	if err != nil {
		return nil, &errors.MergeError{From: from, To: to, Err: err}
	}
	return doc, nil
}

// RemoveClaims deletes statements by their server ids.
func (c *Client) RemoveClaims(ctx context.Context, claimIDs []string, revision int64) (map[string]any, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	form := map[string]string{
		"action": "wbremoveclaims",
		"claim":  strings.Join(claimIDs, "|"),
		"token":  token,
	}
	if revision > 0 {
		form["baserevid"] = strconv.FormatInt(revision, 10)
	}
	if c.IsBot() {
		form["bot"] = "1"
	}
	return c.APICall(ctx, http.MethodPost, form)
}

// DeletePage deletes a page (an entity, via its title) with a reason.
func (c *Client) DeletePage(ctx context.Context, title, reason string) (map[string]any, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}
	return c.APICall(ctx, http.MethodPost, map[string]string{
		"action": "delete",
		"title":  title,
		"reason": reason,
		"token":  token,
	})
}

// Rollback reverts the last edits by one user on one page.
func (c *Client) Rollback(ctx context.Context, title, user string) (map[string]any, error) {
	// Rollback uses its own token kind.
	doc, err := c.APICall(ctx, http.MethodGet, map[string]string{
		"action": "query",
		"meta":   "tokens",
		"type":   "rollback",
	})
	if err != nil {
		return nil, err
	}
	token := digString(doc, "query", "tokens", "rollbacktoken")
	if token == "" {
		return nil, errors.New("token response carried no rollbacktoken")
	}
	return c.APICall(ctx, http.MethodPost, map[string]string{
		"action": "rollback",
		"title":  title,
		"user":   user,
		"token":  token,
	})
}

// asLabelDescriptionConflict extracts the typed conflict error from the
// server's error shape, which embeds the language and conflicting entity
// id in the message parameters.
func asLabelDescriptionConflict(apiErr *errors.APIError) *errors.LabelDescriptionConflictError {
	if apiErr.Code != "modification-failed" && apiErr.Code != "failed-save" {
		return nil
	}
	errObj, ok := apiErr.Body["error"].(map[string]any)
	if !ok {
		return nil
	}
	msgs, _ := errObj["messages"].([]any)
	for _, m := range msgs {
		mm, ok := m.(map[string]any)
		if !ok {
			continue
		}
		name, _ := mm["name"].(string)
		if !strings.Contains(name, "label-with-description-conflict") &&
			!strings.Contains(name, "label-conflict") {
			continue
		}
		conflict := &errors.LabelDescriptionConflictError{Message: apiErr.Info}
		if params, ok := mm["parameters"].([]any); ok {
			// parameters: [label, language, conflicting entity link]
			if len(params) > 1 {
				conflict.Language = str(params[1])
			}
			if len(params) > 2 {
				conflict.ConflictingID = lastPathSegment(str(params[2]))
			}
		}
		return conflict
	}
	return nil
}

func lastPathSegment(s string) string {
	s = strings.TrimSuffix(strings.TrimSpace(s), "|")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

// digString walks nested JSON objects to a string leaf.
func digString(doc map[string]any, path ...string) string {
	cur := any(doc)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[key]
	}
	s, _ := cur.(string)
	return s
}
