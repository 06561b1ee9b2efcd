// Package mailgun is a thin client for the Mailgun messages API, used to
// deliver the weekly idea digest.
package mailgun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	domain  string
	apiKey  string
	client  *http.Client
	baseURL string
}

func NewClient(domain, apiKey string) *Client {
	return &Client{
		domain: domain,
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Send delivers one HTML email to the given recipients.
func (c *Client) Send(ctx context.Context, from string, to []string, subject, htmlBody string) error {
	endpoint := fmt.Sprintf("https://api.mailgun.net/v3/%s/messages", c.domain)
	if c.baseURL != "" {
		endpoint = fmt.Sprintf("%s/v3/%s/messages", c.baseURL, c.domain)
	}

	form := url.Values{}
	form.Set("from", from)
	form.Set("to", strings.Join(to, ","))
	form.Set("subject", subject)
	form.Set("html", htmlBody)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth("api", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mailgun api error: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
