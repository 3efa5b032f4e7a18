package client

import (
	"context"
	"net/http"

	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/logger"
)

// Login authenticates the session. Bot passwords ("user@botname") go
// through action=login; everything else through action=clientlogin. The
// session cookies live in the client's jar and are shared by every
// subsequent call; the User-Agent gains the username.
func (c *Client) Login(ctx context.Context, username, password string, bot bool) error {
	loginToken, err := c.fetchLoginToken(ctx)
	if err != nil {
		return err
	}

	var doc map[string]any
	if bot {
		doc, err = c.APICall(ctx, http.MethodPost, map[string]string{
			"action":     "login",
			"lgname":     username,
			"lgpassword": password,
			"lgtoken":    loginToken,
		})
		if err != nil {
			return errors.Wrap(err, "bot login failed")
		}
		if result := digString(doc, "login", "result"); result != "Success" {
			return errors.Newf("bot login failed with result %q", result)
		}
	} else {
		doc, err = c.APICall(ctx, http.MethodPost, map[string]string{
			"action":     "clientlogin",
			"username":   username,
			"password":   password,
			"logintoken": loginToken,
			"loginreturnurl": c.apiURL,
		})
		if err != nil {
			return errors.Wrap(err, "clientlogin failed")
		}
		status := digString(doc, "clientlogin", "status")
		if status != "PASS" {
			return errors.Newf("clientlogin failed with status %q", status)
		}
	}

	c.mu.Lock()
	c.username = username
	c.isBot = bot
	c.csrfToken = "" // force a fresh edit token under the new session
	c.mu.Unlock()

	c.log.Infow("logged in", "username", username, "bot", bot, logger.FieldEndpoint, c.apiURL)
	return nil
}

func (c *Client) fetchLoginToken(ctx context.Context) (string, error) {
	doc, err := c.APICall(ctx, http.MethodGet, map[string]string{
		"action": "query",
		"meta":   "tokens",
		"type":   "login",
	})
	if err != nil {
		return "", errors.Wrap(err, "fetching login token")
	}
	token := digString(doc, "query", "tokens", "logintoken")
	if token == "" {
		return "", errors.New("token response carried no logintoken")
	}
	return token, nil
}
