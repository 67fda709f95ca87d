package load

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	loadgen "github.com/skudasov/graphsense-loadgen"
)

const maxLoggedBody = 1024

var (
	// ErrDecode response body is not valid json of the expected shape
	ErrDecode = errors.New("undecodable response body")
	// ErrSchema response body misses an expected field
	ErrSchema = errors.New("response does not match schema")
)

// StatusError non success response
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// Response transport level outcome of one request
type Response struct {
	URL        string
	StatusCode int
	BytesIn    int64
	BytesOut   int64
}

// Client GETs json documents from the analytics API
type Client struct {
	target string
	hc     *http.Client
	l      *loadgen.Logger
}

func NewClient(target string, hc *http.Client, l *loadgen.Logger) *Client {
	return &Client{
		target: strings.TrimRight(target, "/"),
		hc:     hc,
		l:      l,
	}
}

// Get requests path, decodes the body into out and checks its schema.
// Failures are logged with url and body at warn level.
func (c *Client) Get(ctx context.Context, path string, out interface{}) (Response, error) {
	url := c.target + path
	res := Response{URL: url}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return res, errors.Wrapf(err, "GET %s", url)
	}
	req.Header.Set("Accept", "application/json")
	l := c.l.FromCtx(ctx)
	resp, err := c.hc.Do(req)
	if err != nil {
		l.Warnw("request failed", "url", url, "err", err)
		return res, errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()
	res.StatusCode = resp.StatusCode
	body, err := ioutil.ReadAll(resp.Body)
	res.BytesIn = int64(len(body))
	if err != nil {
		l.Warnw("failed to read body", "url", url, "err", err)
		return res, errors.Wrapf(err, "GET %s: read body", url)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		l.Warnw("request failed", "url", url, "status", resp.StatusCode, "body", truncate(body))
		return res, &StatusError{URL: url, Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		l.Warnw("failed to decode response", "url", url, "body", truncate(body), "err", err)
		return res, errors.Wrapf(ErrDecode, "GET %s: %s", url, err)
	}
	if err := checkSchema(out); err != nil {
		l.Warnw("unexpected response schema", "url", url, "body", truncate(body), "err", err)
		return res, errors.Wrapf(ErrSchema, "GET %s: %s", url, err)
	}
	return res, nil
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}
