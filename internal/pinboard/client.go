// Package pinboard reads and writes bookmarks through the Pinboard v1 API.
package pinboard

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"pocketpin/internal/logger"
	"pocketpin/internal/models"
	"pocketpin/internal/requester"
)

const DefaultBaseURL = "https://api.pinboard.in/v1"

// Doer sends one logical request. *requester.Requester implements it.
type Doer interface {
	Do(ctx context.Context, req requester.Request, v any) error
}

// Client represents a Pinboard API client scoped to one sync tag.
type Client struct {
	BaseURL   *url.URL
	AuthToken string
	Tag       string

	doer   Doer
	logger *logger.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithLogger sets the logger that receives "Synced:" lines.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new Pinboard API client.
func NewClient(baseURL, authToken, tag string, doer Doer, opts ...Option) (*Client, error) {
	parsedURL, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	c := &Client{
		BaseURL:   parsedURL,
		AuthToken: authToken,
		Tag:       tag,
		doer:      doer,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Latest returns the most recent bookmark carrying the sync tag, or nil if
// there is none.
func (c *Client) Latest(ctx context.Context) (*models.Bookmark, error) {
	q := c.query()
	q.Set("tag", c.Tag)
	q.Set("results", "1")

	var posts []Post
	err := c.doer.Do(ctx, requester.Request{
		Method: http.MethodGet,
		URL:    c.BaseURL.JoinPath("/posts/all").String(),
		Query:  q,
	}, &posts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest synced bookmark: %w", err)
	}
	if len(posts) == 0 {
		return nil, nil
	}

	post := posts[0]
	created, err := time.Parse(TimeFormat, post.Time)
	if err != nil {
		return nil, fmt.Errorf("failed to parse time of %s: %w", post.Href, err)
	}
	return &models.Bookmark{
		URL:     post.Href,
		Title:   post.Description,
		Tags:    models.NewTags(splitTags(post.Tags)),
		Created: created,
	}, nil
}

// Add bookmarks b without replacing an existing bookmark for the same URL.
// It reports created=false, with a nil error, when Pinboard already has it.
func (c *Client) Add(ctx context.Context, b models.Bookmark) (bool, error) {
	q := c.query()
	q.Set("url", b.URL)
	q.Set("description", b.Title)
	q.Set("tags", FormatTags(b.Tags))
	q.Set("shared", "no")
	q.Set("replace", "no")
	q.Set("dt", b.Created.UTC().Format(TimeFormat))

	var resp resultResponse
	err := c.doer.Do(ctx, requester.Request{
		Method: http.MethodGet,
		URL:    c.BaseURL.JoinPath("/posts/add").String(),
		Query:  q,
	}, &resp)
	if err != nil {
		return false, fmt.Errorf("failed to add bookmark %s: %w", b.URL, err)
	}

	switch resp.ResultCode {
	case resultDone:
		c.logger.Infof("Synced: %s", b)
		return true, nil
	case ResultAlreadyExists:
		c.logger.Debugf("Already synced: %s", b.URL)
		return false, nil
	default:
		return false, &ResultError{URL: b.URL, Code: resp.ResultCode}
	}
}

func (c *Client) query() url.Values {
	return url.Values{
		"format":     {"json"},
		"auth_token": {c.AuthToken},
	}
}

// FormatTags renders tags in Pinboard's syntax: whitespace inside a tag
// becomes an underscore and tags are comma-separated.
func FormatTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return '_'
			}
			return r
		}, strings.TrimSpace(tag))
		if tag != "" {
			out = append(out, tag)
		}
	}
	return strings.Join(out, ",")
}

// splitTags accepts both the comma-joined form this client writes and the
// space-separated form posts/all returns. Tags never contain whitespace once
// written, so either separator is unambiguous.
func splitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
