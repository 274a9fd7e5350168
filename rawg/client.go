// Package rawg is a small client for the RAWG video game database API.
package rawg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const DefaultBaseURL = "https://api.rawg.io/api"

type Client struct {
	http    *http.Client
	baseURL *url.URL
	apiKey  string
	log     zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("apiKey required")
	}
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		http:    http.DefaultClient,
		baseURL: u,
		apiKey:  apiKey,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) newReq(ctx context.Context, p string, q url.Values) (*http.Request, error) {
	u := *c.baseURL
	u.Path = path.Join(u.Path, p)
	qq := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			qq.Add(k, v)
		}
	}
	qq.Set("key", c.apiKey)
	u.RawQuery = qq.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Get issues GET {path}?{query} and decodes the JSON body into out.
// Failures are reported as *NetworkError, *HTTPError or *ParseError.
func (c *Client) Get(ctx context.Context, p string, q url.Values, out any) error {
	req, err := c.newReq(ctx, p, q)
	if err != nil {
		return &NetworkError{Method: http.MethodGet, URL: p, Err: err}
	}
	target := redact(req.URL)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("url", target).Msg("rawg request failed")
		return &NetworkError{Method: http.MethodGet, URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Method: http.MethodGet, URL: target, Err: err}
	}

	c.log.Debug().Str("url", target).Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("rawg response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: target, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{URL: target, Err: err}
	}
	return nil
}

// ListGames returns the first page of games matching q.
func (c *Client) ListGames(ctx context.Context, q GameQuery) (*Page[Game], error) {
	var p Page[Game]
	if err := c.Get(ctx, "/games", q.Values(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetDeveloper fetches a developer by numeric id or slug.
func (c *Client) GetDeveloper(ctx context.Context, ref string) (*Developer, error) {
	if ref == "" {
		return nil, errors.New("developer reference required")
	}
	// newReq cleans the joined path, so a dot segment or a slash would
	// address a different endpoint.
	if ref == "." || ref == ".." || strings.ContainsAny(ref, `/\`) {
		return nil, fmt.Errorf("invalid developer reference %q", ref)
	}
	var d Developer
	if err := c.Get(ctx, path.Join("/developers", ref), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) ListGenres(ctx context.Context) (*Page[Genre], error) {
	var p Page[Genre]
	if err := c.Get(ctx, "/genres", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlatforms returns the parent platforms (PC, PlayStation, Xbox, ...).
func (c *Client) ListPlatforms(ctx context.Context) (*Page[Platform], error) {
	var p Page[Platform]
	if err := c.Get(ctx, "/platforms/lists/parents", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GameQuery holds the optional filters of the games listing endpoint.
// Zero values are not sent.
type GameQuery struct {
	Genre     int
	Platform  int
	Developer string
}

func (q GameQuery) Values() url.Values {
	v := url.Values{}
	if q.Genre != 0 {
		v.Set("genres", strconv.Itoa(q.Genre))
	}
	if q.Platform != 0 {
		v.Set("platforms", strconv.Itoa(q.Platform))
	}
	if q.Developer != "" {
		v.Set("developers", q.Developer)
	}
	return v
}

// redact drops the api key from a request URL so it can be logged and
// carried in errors.
func redact(u *url.URL) string {
	c := *u
	q := c.Query()
	q.Del("key")
	c.RawQuery = q.Encode()
	return c.String()
}
