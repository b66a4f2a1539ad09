package testutil

import (
	"cmp"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"pocketpin/internal/models"
)

// Pocket serves POST /v3/get from an in-memory item list. It honours offset,
// count and since (matched on time_updated, falling back to time_added, as
// the real service matches on modification time), and reports total as a
// string.
type Pocket struct {
	ConsumerKey string
	AccessToken string

	mu        sync.Mutex
	items     []models.PocketItem
	requests  []models.PocketRetrieveRequest
	malformed map[int]string
}

// NewPocket returns an empty Pocket accepting the given credentials.
func NewPocket(consumerKey, accessToken string) *Pocket {
	return &Pocket{
		ConsumerKey: consumerKey,
		AccessToken: accessToken,
		malformed:   make(map[int]string),
	}
}

// Add appends items to the account.
func (p *Pocket) Add(items ...models.PocketItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, items...)
}

// MalformedAt makes the page starting at offset answer 200 with body instead
// of an item list.
func (p *Pocket) MalformedAt(offset int, body string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.malformed[offset] = body
}

// Requests returns the decoded request bodies received so far.
func (p *Pocket) Requests() []models.PocketRetrieveRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.requests)
}

// Article builds a well-formed Pocket item.
func Article(id, url, title string, added time.Time, tags ...string) models.PocketItem {
	ts := models.NewEpochSeconds(added)
	item := models.PocketItem{
		ItemID:        id,
		ResolvedID:    id,
		GivenURL:      url,
		GivenTitle:    title,
		ResolvedURL:   &url,
		ResolvedTitle: &title,
		TimeAdded:     &ts,
		TimeUpdated:   &ts,
		Status:        "0",
	}
	if len(tags) > 0 {
		item.Tags = make(map[string]models.PocketTag, len(tags))
		for _, tag := range tags {
			item.Tags[tag] = models.PocketTag{ItemID: id, Tag: tag}
		}
	}
	return item
}

// Touched returns item with time_updated moved to t, as Pocket does when an
// old item is archived, tagged or favourited.
func Touched(item models.PocketItem, t time.Time) models.PocketItem {
	ts := models.NewEpochSeconds(t)
	item.TimeUpdated = &ts
	return item
}

func (p *Pocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Path != "/v3/get" {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}

	var req models.PocketRetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("X-Error", "Invalid request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)

	if req.ConsumerKey != p.ConsumerKey || req.AccessToken != p.AccessToken {
		w.Header().Set("X-Error", "Invalid consumer key or access token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if body, ok := p.malformed[req.Offset]; ok {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
		return
	}

	matched := make([]models.PocketItem, 0, len(p.items))
	for _, item := range p.items {
		if req.Since != nil && modified(item) < *req.Since {
			continue
		}
		matched = append(matched, item)
	}
	slices.SortStableFunc(matched, func(a, b models.PocketItem) int {
		return cmp.Compare(added(a), added(b))
	})

	count := req.Count
	if count <= 0 {
		count = len(matched)
	}
	start := min(max(req.Offset, 0), len(matched))
	end := min(start+count, len(matched))
	page := matched[start:end]

	var list any = []any{}
	if len(page) > 0 {
		byID := make(map[string]models.PocketItem, len(page))
		for _, item := range page {
			byID[item.ID()] = item
		}
		list = byID
	}

	resp := map[string]any{
		"status":   1,
		"complete": 1,
		"list":     list,
		"since":    time.Now().Unix(),
	}
	if req.Total == "1" {
		resp["total"] = models.FlexInt(len(matched))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func added(item models.PocketItem) int64 {
	if item.TimeAdded == nil {
		return 0
	}
	return int64(*item.TimeAdded)
}

func modified(item models.PocketItem) int64 {
	if item.TimeUpdated != nil {
		return int64(*item.TimeUpdated)
	}
	return added(item)
}
