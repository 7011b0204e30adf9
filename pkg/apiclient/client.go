package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// HTTPOptions contains options for the HTTP client.
type HTTPOptions struct {
	// URL is the base URL of the node API.
	URL string

	// APIKey is added to every JSON object body as the "key" field.
	APIKey string

	// HTTPClient is the HTTP client to use. If nil, http.DefaultClient is used.
	HTTPClient *http.Client

	// HTTPHeader specifies the HTTP headers to send with each request.
	HTTPHeader http.Header
}

// HTTPError is returned when the node responds with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("unexpected http status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected http status %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Client posts JSON bodies to paths under a single base URL.
type Client struct {
	opts    HTTPOptions
	baseURL *url.URL
}

func New(opts HTTPOptions) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("URL cannot be empty")
	}
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %v", opts.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL %q: scheme must be http or https", opts.URL)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	return &Client{opts: opts, baseURL: u}, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	return u.String()
}

func (c *Client) encode(body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	if c.opts.APIKey == "" || len(b) == 0 || b[0] != '{' {
		return b, nil
	}
	var fields map[string]json.RawMessage
	if err = json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	key, err := json.Marshal(c.opts.APIKey)
	if err != nil {
		return nil, err
	}
	fields["key"] = key
	return json.Marshal(fields)
}

// Post sends body as JSON to path and returns the raw response body.
// Errors returned by the underlying http.Client are passed through unchanged.
func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	b, err := c.encode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	for k, v := range c.opts.HTTPHeader {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")

	logger.WithField("url", req.URL.String()).Tracef("POST %d bytes", len(b))

	res, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: data}
	}
	return data, nil
}
