// Package github reads organisation, repository and security data from
// the GitHub REST API.
//
// List endpoints use the per-page protocol: pages are requested from 1
// upward and the walk ends on the first page shorter than the page size,
// or when the response links no further page.
package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gogithub "github.com/google/go-github/v69/github"
	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/eemetrics/pkg/logging"
)

// DefaultPerPage is the largest page size GitHub accepts.
const DefaultPerPage = 100

// Client wraps a go-github client.
type Client struct {
	gh      *gogithub.Client
	logger  *logging.Logger
	perPage int
	baseURL string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a GitHub Enterprise or test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithPerPage overrides DefaultPerPage.
func WithPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.perPage = n
		}
	}
}

// NewClient creates a Client authenticating with a personal access token.
func NewClient(ctx context.Context, token string, opts ...Option) (*Client, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return NewFromClient(gogithub.NewClient(httpClient), opts...)
}

// NewFromClient wraps an existing go-github client.
func NewFromClient(gh *gogithub.Client, opts ...Option) (*Client, error) {
	c := &Client{gh: gh, perPage: DefaultPerPage}
	for _, fn := range opts {
		fn(c)
	}
	if c.logger == nil {
		c.logger = logging.New("eemetrics/github", logging.Catalog)
	}
	if c.baseURL != "" {
		base, err := url.Parse(strings.TrimRight(c.baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		c.gh.BaseURL = base
	}
	c.logger.Info("ENGEXPUTILS011", logging.Fields{"baseUrl": c.gh.BaseURL.String()})
	return c, nil
}

// collect walks a per-page list endpoint. fetch receives the page to load
// and returns that page's items.
func collect[T any](ctx context.Context, perPage int, fetch func(ctx context.Context, opts gogithub.ListOptions) ([]T, *gogithub.Response, error)) ([]T, error) {
	var all []T
	opts := gogithub.ListOptions{Page: 1, PerPage: perPage}
	for {
		items, resp, err := fetch(ctx, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < perPage || resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}
