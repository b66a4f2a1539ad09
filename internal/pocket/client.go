// Package pocket reads a Pocket account's saved items through the v3
// retrieve API.
package pocket

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"slices"
	"time"

	"pocketpin/internal/logger"
	"pocketpin/internal/models"
	"pocketpin/internal/requester"
)

const (
	DefaultBaseURL = "https://getpocket.com"
	// PageSize is the count requested per /v3/get call.
	PageSize = 30
	// maxBlindSkips bounds consecutive malformed pages while the total is
	// still unknown.
	maxBlindSkips = 3
)

// Doer sends one logical request. *requester.Requester implements it.
type Doer interface {
	Do(ctx context.Context, req requester.Request, v any) error
}

// Client represents a Pocket API client.
type Client struct {
	BaseURL     *url.URL
	ConsumerKey string
	AccessToken string
	// Tag is added to every bookmark read.
	Tag string

	doer   Doer
	logger *logger.Logger
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithLogger sets the logger used for skipped pages.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new Pocket API client.
func NewClient(baseURL, consumerKey, accessToken, tag string, doer Doer, opts ...Option) (*Client, error) {
	parsedURL, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	c := &Client{
		BaseURL:     parsedURL,
		ConsumerKey: consumerKey,
		AccessToken: accessToken,
		Tag:         tag,
		doer:        doer,
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Bookmarks returns a lazy sequence over the account's items, oldest first,
// restricted to items changed at or after since when since is non-nil.
//
// Pages are requested one at a time as the caller ranges; breaking out of
// the loop stops pagination. Every call starts again from offset 0. A
// request error is yielded once and ends the sequence. A malformed page is
// skipped; until some page has reported a total, at most maxBlindSkips of
// them in a row are tolerated.
func (c *Client) Bookmarks(ctx context.Context, since *time.Time) iter.Seq2[models.Bookmark, error] {
	return func(yield func(models.Bookmark, error) bool) {
		total := -1
		skipped := 0
		for offset := 0; ; offset += PageSize {
			page, err := c.fetchPage(ctx, offset, since)
			if err != nil {
				yield(models.Bookmark{}, err)
				return
			}
			if page.total != nil {
				total = *page.total
			}

			for _, b := range page.bookmarks {
				if !yield(b, nil) {
					return
				}
			}

			switch {
			case total >= 0:
				if total <= offset+PageSize {
					return
				}
			case page.malformed:
				skipped++
				if skipped >= maxBlindSkips {
					c.logger.Warnf("Giving up after %d unreadable pocket pages", skipped)
					return
				}
			case page.records < PageSize:
				return
			}
			if !page.malformed {
				skipped = 0
			}
		}
	}
}

type page struct {
	bookmarks []models.Bookmark
	total     *int
	// records counts every entry of the list, complete or not.
	records   int
	malformed bool
}

func (c *Client) fetchPage(ctx context.Context, offset int, since *time.Time) (page, error) {
	body := models.PocketRetrieveRequest{
		ConsumerKey: c.ConsumerKey,
		AccessToken: c.AccessToken,
		// "simple" omits tags.
		DetailType: "complete",
		State:      "all",
		Sort:       "oldest",
		Offset:     offset,
		Count:      PageSize,
		Total:      "1",
	}
	if since != nil {
		s := since.Unix()
		body.Since = &s
	}

	var resp models.PocketRetrieveResponse
	err := c.doer.Do(ctx, requester.Request{
		Method: http.MethodPost,
		URL:    c.BaseURL.JoinPath("/v3/get").String(),
		Body:   body,
	}, &resp)
	if err != nil {
		return page{}, fmt.Errorf("failed to fetch pocket items at offset %d: %w", offset, err)
	}

	var p page
	if resp.Total != nil {
		n := int(*resp.Total)
		p.total = &n
	}

	records, ok := decodeList(resp.List)
	if !ok {
		msg := "missing item list"
		if resp.Error != nil {
			msg = *resp.Error
		}
		c.logger.Warnf("Skipping pocket page at offset %d: %s", offset, msg)
		p.malformed = true
		return p, nil
	}

	p.records = len(records)
	p.bookmarks = make([]models.Bookmark, 0, len(records))
	for id, raw := range records {
		b, ok := c.toBookmark(id, raw)
		if !ok {
			c.logger.Debugf("Skipping incomplete pocket item %s", id)
			continue
		}
		p.bookmarks = append(p.bookmarks, b)
	}
	slices.SortFunc(p.bookmarks, func(a, b models.Bookmark) int {
		return cmp.Or(a.Created.Compare(b.Created), cmp.Compare(a.SourceID, b.SourceID))
	})
	return p, nil
}

// decodeList reports ok=false when the list is absent or null. Pocket
// encodes an empty list as [].
func decodeList(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	if raw[0] == '[' {
		return nil, true
	}
	var records map[string]json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (c *Client) toBookmark(key string, raw json.RawMessage) (models.Bookmark, bool) {
	var item models.PocketItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.Bookmark{}, false
	}
	if item.ResolvedURL == nil || item.ResolvedTitle == nil || item.TimeAdded == nil {
		return models.Bookmark{}, false
	}

	id := item.ID()
	if id == "" {
		id = key
	}
	return models.Bookmark{
		URL:      *item.ResolvedURL,
		Title:    *item.ResolvedTitle,
		Tags:     models.NewTags(item.TagNames(), c.Tag),
		Created:  item.TimeAdded.Time(),
		SourceID: id,
	}, true
}
