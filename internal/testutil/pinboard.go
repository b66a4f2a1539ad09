package testutil

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"pocketpin/internal/models"
)

// PinboardTimeFormat is the wire format of Pinboard's dt and time fields.
const PinboardTimeFormat = "2006-01-02T15:04:05Z"

// Post is a bookmark stored by the Pinboard fake, in wire form.
type Post struct {
	Href        string `json:"href"`
	Description string `json:"description"`
	Extended    string `json:"extended"`
	Tags        string `json:"tags"`
	Time        string `json:"time"`
	Shared      string `json:"shared"`
}

// Pinboard serves /posts/all and /posts/add of the v1 API from memory.
// Adds with replace=no for a URL already present answer
// "item already exists", like the real service.
type Pinboard struct {
	AuthToken string

	mu         sync.Mutex
	posts      []Post
	adds       []url.Values
	resultCode string
}

// NewPinboard returns an empty account accepting token.
func NewPinboard(token string) *Pinboard {
	return &Pinboard{AuthToken: token}
}

// Seed stores b as if it had been added earlier, tags comma-joined.
func (p *Pinboard) Seed(b models.Bookmark) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, Post{
		Href:        b.URL,
		Description: b.Title,
		Tags:        strings.Join(b.Tags, ","),
		Time:        b.Created.UTC().Format(PinboardTimeFormat),
		Shared:      "no",
	})
}

// Posts returns the stored posts.
func (p *Pinboard) Posts() []Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.posts)
}

// Adds returns the query of every /posts/add call, accepted or not.
func (p *Pinboard) Adds() []url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.adds)
}

// RespondWith forces every subsequent add to answer code without storing
// anything. An empty code restores normal behaviour.
func (p *Pinboard) RespondWith(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resultCode = code
}

func (p *Pinboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if q.Get("auth_token") != p.AuthToken {
		http.Error(w, "401 Forbidden", http.StatusUnauthorized)
		return
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/posts/all"):
		p.handleAll(w, q)
	case strings.HasSuffix(r.URL.Path, "/posts/add"):
		p.handleAdd(w, q)
	default:
		http.Error(w, "404 Not Found", http.StatusNotFound)
	}
}

func (p *Pinboard) handleAll(w http.ResponseWriter, q url.Values) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tag := q.Get("tag")
	matched := make([]Post, 0, len(p.posts))
	for _, post := range p.posts {
		if tag != "" && !slices.Contains(splitTags(post.Tags), tag) {
			continue
		}
		matched = append(matched, post)
	}
	// Newest first. The wire format sorts lexically.
	slices.SortStableFunc(matched, func(a, b Post) int {
		return strings.Compare(b.Time, a.Time)
	})
	if n, err := strconv.Atoi(q.Get("results")); err == nil && n >= 0 && n < len(matched) {
		matched = matched[:n]
	}

	writeJSON(w, matched)
}

func (p *Pinboard) handleAdd(w http.ResponseWriter, q url.Values) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.adds = append(p.adds, q)

	if p.resultCode != "" {
		writeJSON(w, map[string]string{"result_code": p.resultCode})
		return
	}

	href := q.Get("url")
	if href == "" {
		writeJSON(w, map[string]string{"result_code": "missing url"})
		return
	}

	dt := q.Get("dt")
	if dt == "" {
		dt = time.Now().UTC().Format(PinboardTimeFormat)
	} else if _, err := time.Parse(PinboardTimeFormat, dt); err != nil {
		writeJSON(w, map[string]string{"result_code": "invalid datetime"})
		return
	}

	for i, post := range p.posts {
		if post.Href != href {
			continue
		}
		if q.Get("replace") == "no" {
			writeJSON(w, map[string]string{"result_code": "item already exists"})
			return
		}
		p.posts = slices.Delete(p.posts, i, i+1)
		break
	}

	p.posts = append(p.posts, Post{
		Href:        href,
		Description: q.Get("description"),
		Extended:    q.Get("extended"),
		Tags:        q.Get("tags"),
		Time:        dt,
		Shared:      q.Get("shared"),
	})
	writeJSON(w, map[string]string{"result_code": "done"})
}

func splitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
