package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Routes are path templates for REST lookups; "{id}" is replaced with the
// object id.
type Routes struct {
	Post string
	Term string
	User string
}

// DefaultRoutes follow the WordPress REST API.
var DefaultRoutes = Routes{
	Post: "/wp/v2/posts/{id}",
	Term: "/wp/v2/categories/{id}",
	User: "/wp/v2/users/{id}",
}

var _ Source = (*REST)(nil)

// REST reads objects from a JSON HTTP API.
type REST struct {
	baseURL string
	routes  Routes
	client  *http.Client
}

// RESTOption configures a REST source.
type RESTOption func(*REST)

// WithRoutes overrides DefaultRoutes.
func WithRoutes(r Routes) RESTOption {
	return func(s *REST) { s.routes = r }
}

// WithHTTPClient sets the HTTP client used for lookups.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(s *REST) { s.client = c }
}

// NewREST creates a REST source rooted at baseURL.
func NewREST(baseURL string, opts ...RESTOption) *REST {
	s := &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		routes:  DefaultRoutes,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// wpPost mirrors the fields we read from a WordPress post response, where
// the title is wrapped in {"rendered": ...}.
type wpPost struct {
	ID     int64  `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Link   string `json:"link"`
	Title  struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
}

func (s *REST) Post(ctx context.Context, id int64) (*Post, error) {
	var raw wpPost
	if err := s.get(ctx, s.routes.Post, id, &raw); err != nil {
		return nil, err
	}
	return &Post{
		ID:     raw.ID,
		Type:   raw.Type,
		Title:  raw.Title.Rendered,
		Status: raw.Status,
		Link:   raw.Link,
	}, nil
}

func (s *REST) Term(ctx context.Context, id int64) (*Term, error) {
	var t Term
	if err := s.get(ctx, s.routes.Term, id, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *REST) User(ctx context.Context, id int64) (*User, error) {
	var u User
	if err := s.get(ctx, s.routes.User, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *REST) get(ctx context.Context, route string, id int64, out any) error {
	url := s.baseURL + strings.ReplaceAll(route, "{id}", strconv.FormatInt(id, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("content: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("content: get %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return ErrNotFound
	case resp.StatusCode >= 300:
		return fmt.Errorf("content: get %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("content: read %s: %w", url, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("content: decode %s: %w", url, err)
	}
	return nil
}
