package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"newsdesk/internal/model"
)

// rlsMarker is how PostgREST spells a row-level security rejection.
const rlsMarker = "row-level security policy"

// RESTStore talks to a hosted PostgREST gateway (e.g. Supabase) exposing
// the news_posts table.
type RESTStore struct {
	baseURL string
	apiKey  string
	tokens  map[Role]string
	client  *http.Client
}

// NewRESTStore targets baseURL (without /rest/v1). tokens maps each role to
// the bearer token it is sent with; roles without a token use apiKey.
func NewRESTStore(baseURL, apiKey string, tokens map[Role]string) *RESTStore {
	return &RESTStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		tokens:  tokens,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Close is a no-op; the HTTP client holds no exclusive resources.
func (s *RESTStore) Close() error { return nil }

func (s *RESTStore) List(ctx context.Context) ([]model.Post, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "published_at.desc")

	var posts []model.Post
	if err := s.do(ctx, http.MethodGet, q, nil, "", &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []model.Post{}
	}
	return posts, nil
}

func (s *RESTStore) Get(ctx context.Context, id string) (*model.Post, error) {
	return s.getOne(ctx, "id", id)
}

func (s *RESTStore) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return s.getOne(ctx, "slug", slug)
}

func (s *RESTStore) getOne(ctx context.Context, column, value string) (*model.Post, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set(column, "eq."+value)
	q.Set("limit", "1")

	var posts []model.Post
	if err := s.do(ctx, http.MethodGet, q, nil, "", &posts); err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, newError(ErrNotFound, fmt.Sprintf("no post with %s %q", column, value), nil)
	}
	return &posts[0], nil
}

// Save upserts on the primary key.
func (s *RESTStore) Save(ctx context.Context, post *model.Post) error {
	body, err := json.Marshal(post)
	if err != nil {
		return err
	}
	q := url.Values{}
	q.Set("on_conflict", "id")
	return s.do(ctx, http.MethodPost, q, body, "resolution=merge-duplicates,return=minimal", nil)
}

// Delete asks for the deleted rows back so a missing id can be reported.
func (s *RESTStore) Delete(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	var deleted []model.Post
	if err := s.do(ctx, http.MethodDelete, q, nil, "return=representation", &deleted); err != nil {
		return err
	}
	if len(deleted) == 0 {
		return newError(ErrNotFound, fmt.Sprintf("post %s not found", id), nil)
	}
	return nil
}

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (s *RESTStore) do(ctx context.Context, method string, q url.Values, body []byte, prefer string, out any) error {
	endpoint := s.baseURL + "/rest/v1/" + Table + "?" + q.Encode()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.token(ctx))
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transient(strings.ToLower(method)+" "+Table, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transient("read response", err)
	}
	if resp.StatusCode >= 300 {
		return classifyResponse(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", Table, err)
	}
	return nil
}

func (s *RESTStore) token(ctx context.Context) string {
	if t, ok := s.tokens[RoleFrom(ctx)]; ok && t != "" {
		return t
	}
	return s.apiKey
}

// classifyResponse maps a PostgREST failure onto the store error kinds.
// The row-level security text is only inspected here.
func classifyResponse(status int, raw []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(raw, &apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	cause := fmt.Errorf("%s returned %d (code %q)", Table, status, apiErr.Code)

	switch {
	case apiErr.Code == "42501", strings.Contains(apiErr.Message, rlsMarker),
		status == http.StatusUnauthorized, status == http.StatusForbidden:
		return newError(ErrPermissionDenied, apiErr.Message, cause)
	case status == http.StatusNotFound:
		return newError(ErrNotFound, apiErr.Message, cause)
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		return newError(ErrTransient, apiErr.Message, cause)
	default:
		return newError(nil, apiErr.Message, cause)
	}
}
