package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Filter narrows a list call. Filtering semantics belong to the server.
type Filter struct {
	Category string
	Search   string
}

func (f Filter) values() url.Values {
	values := url.Values{}
	if category := strings.TrimSpace(f.Category); category != "" && !strings.EqualFold(category, "all") {
		values.Set("category", category)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		values.Set("search", search)
	}
	return values
}

// Resource is a typed client for one REST collection.
type Resource[T any] struct {
	c    *Client
	path string
	kind string
}

func newResource[T any](c *Client, path, kind string) *Resource[T] {
	return &Resource[T]{c: c, path: path, kind: kind}
}

// Kind is the singular name used in realtime event names, e.g. "blog".
func (r *Resource[T]) Kind() string { return r.kind }

// List returns every record matching f. It never returns a nil slice without an error.
func (r *Resource[T]) List(ctx context.Context, f Filter) ([]T, error) {
	env, err := Fetch[[]T](ctx, r.c, Request{Endpoint: "/" + r.path, Query: f.values()}).Get()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.path, err)
	}
	if env.Data == nil || *env.Data == nil {
		return []T{}, nil
	}
	return *env.Data, nil
}

// Get returns the record with id, or nil when the server sent no data.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	endpoint, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}
	env, err := Fetch[T](ctx, r.c, Request{Endpoint: endpoint}).Get()
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", r.kind, id, err)
	}
	return env.Data, nil
}

// Create posts payload and returns the stored record. Write errors are returned
// as the server reported them.
func (r *Resource[T]) Create(ctx context.Context, payload T) (*T, error) {
	env, err := Fetch[T](ctx, r.c, Request{Method: http.MethodPost, Endpoint: "/" + r.path, Body: payload}).Get()
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Update replaces the record with id and returns the stored record.
func (r *Resource[T]) Update(ctx context.Context, id string, payload T) (*T, error) {
	endpoint, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}
	env, err := Fetch[T](ctx, r.c, Request{Method: http.MethodPut, Endpoint: endpoint, Body: payload}).Get()
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Delete removes the record with id.
func (r *Resource[T]) Delete(ctx context.Context, id string) (Ack, error) {
	endpoint, err := r.itemPath(id)
	if err != nil {
		return Ack{}, err
	}
	env, err := Fetch[struct{}](ctx, r.c, Request{Method: http.MethodDelete, Endpoint: endpoint}).Get()
	if err != nil {
		return Ack{}, err
	}
	return Ack{Success: env.Success, Message: env.Message}, nil
}

func (r *Resource[T]) itemPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%s id required", r.kind)
	}
	return "/" + r.path + "/" + url.PathEscape(id), nil
}

// BlogResource adds slug lookups.
type BlogResource struct {
	*Resource[Blog]
}

// GetBySlug returns the blog published under slug, or nil.
func (r *BlogResource) GetBySlug(ctx context.Context, slug string) (*Blog, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, fmt.Errorf("blog slug required")
	}
	env, err := Fetch[Blog](ctx, r.c, Request{Endpoint: "/blogs/slug/" + url.PathEscape(slug)}).Get()
	if err != nil {
		return nil, fmt.Errorf("get blog %q: %w", slug, err)
	}
	return env.Data, nil
}

// ContactResource adds the inbox status change.
type ContactResource struct {
	*Resource[Contact]
}

// UpdateStatus moves a contact message to status.
func (r *ContactResource) UpdateStatus(ctx context.Context, id, status string) (Ack, error) {
	switch status {
	case ContactNew, ContactRead, ContactReplied, ContactArchived:
	default:
		return Ack{}, fmt.Errorf("unknown contact status %q", status)
	}
	endpoint, err := r.itemPath(id)
	if err != nil {
		return Ack{}, err
	}
	env, err := Fetch[Contact](ctx, r.c, Request{
		Method:   http.MethodPatch,
		Endpoint: endpoint + "/status",
		Body:     map[string]string{"status": status},
	}).Get()
	if err != nil {
		return Ack{}, err
	}
	return Ack{Success: env.Success, Message: env.Message}, nil
}
