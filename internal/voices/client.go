package voices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Endpoint is the path of the voice listing.
const Endpoint = "/api/voices"

const defaultUserAgent = "voices"

// Fetcher retrieves the voice listing. Client is the HTTP implementation.
type Fetcher interface {
	FetchVoices(ctx context.Context) ([]Voice, error)
}

// Client fetches the voice listing from a backend.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for requests. Timeouts, if any,
// belong on this client; none are imposed otherwise.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient returns a client for the backend at baseURL, which must be an
// absolute http or https URL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q is not a supported protocol", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidBaseURL, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + Endpoint
	u.RawQuery = ""
	u.Fragment = ""

	c := &Client{
		endpoint:   u.String(),
		httpClient: &http.Client{},
		userAgent:  defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint returns the absolute URL of the listing.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// listing is the response body of the voice listing.
type listing struct {
	Voices []Voice `json:"voices"`
}

// FetchVoices issues a GET for the listing. A non-success status yields a
// *FetchError; transport and decoding failures are returned as produced by
// the transport or decoder. A body without a voices field yields an empty,
// non-nil slice.
func (c *Client) FetchVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "zstd, gzip")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if id := RequestID(ctx); id != "" {
		req.Header.Set("X-Request-Id", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// report what the transport said, not the request line
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Err != nil {
			return nil, uerr.Err
		}
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, newFetchError(resp)
	}

	body, closeBody, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer closeBody()

	dec := json.NewDecoder(body)
	var l *listing
	if err := dec.Decode(&l); err != nil {
		return nil, err
	}
	if l == nil {
		return nil, ErrNullBody
	}
	// the body must hold exactly one JSON value
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err == nil {
			err = ErrTrailingData
		}
		return nil, err
	}
	if l.Voices == nil {
		l.Voices = []Voice{}
	}
	return l.Voices, nil
}

// decodeBody wraps the response body according to its Content-Encoding.
func decodeBody(resp *http.Response) (io.Reader, func(), error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, func() {}, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case "zstd":
		zr, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}
