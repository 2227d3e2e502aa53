// Copyright (c) 2025 BVK Chaitanya

// Package pushover sends notifications through the Pushover messages api.
package pushover

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

const DefaultURL = "https://api.pushover.net/1/messages.json"

type Keys struct {
	ApplicationKey string
	UserKey        string
}

func (v *Keys) Check() error {
	if len(v.ApplicationKey) == 0 || len(v.UserKey) == 0 {
		return fmt.Errorf("application and user keys are required: %w", os.ErrInvalid)
	}
	return nil
}

type Client struct {
	url        string
	token      string
	user       string
	httpClient *http.Client
}

// New creates a client that posts messages to the url. Empty url is replaced
// with DefaultURL.
func New(keys *Keys, url string, timeout time.Duration) (*Client, error) {
	if err := keys.Check(); err != nil {
		return nil, err
	}
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:        url,
		token:      keys.ApplicationKey,
		user:       keys.UserKey,
		httpClient: &http.Client{Timeout: timeout},
	}
	return c, nil
}

type message struct {
	Token     string `json:"token"`
	User      string `json:"user"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type response struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

func (c *Client) SendMessage(ctx context.Context, at time.Time, msg string) error {
	m := &message{
		Token:     c.token,
		User:      c.user,
		Timestamp: at.Unix(),
		Message:   msg,
	}
	var msgbuf bytes.Buffer
	if err := json.NewEncoder(&msgbuf).Encode(m); err != nil {
		return fmt.Errorf("could not json-encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &msgbuf)
	if err != nil {
		return fmt.Errorf("could not create post request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not perform post request: %w", err)
	}
	defer resp.Body.Close()

	r := new(response)
	if err := json.NewDecoder(resp.Body).Decode(r); err != nil {
		return fmt.Errorf("could not json-decode response for http-status %d: %w", resp.StatusCode, err)
	}
	if r.Status != 1 {
		if len(r.Errors) != 0 {
			return fmt.Errorf("send failed with http-status %d and error: %w", resp.StatusCode, errors.New(r.Errors[0]))
		}
		return fmt.Errorf("send failed with http-status %d and response status %d", resp.StatusCode, r.Status)
	}
	return nil
}
