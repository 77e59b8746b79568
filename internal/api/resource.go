package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/alexanderramin/tally/internal/domain"
)

// Resource is the CRUD client for one REST collection, e.g. /projects.
type Resource[T domain.Record] struct {
	client *Client
	name   string
	path   string
}

// NewResource binds the collection named name (also its path segment).
func NewResource[T domain.Record](c *Client, name string) *Resource[T] {
	return &Resource[T]{client: c, name: name, path: "/" + name}
}

func (r *Resource[T]) Name() string { return r.name }

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	return r.ListWhere(ctx, nil)
}

// ListWhere lists the collection filtered by query parameters such as
// projectId.
func (r *Resource[T]) ListWhere(ctx context.Context, query url.Values) ([]T, error) {
	var out []T
	if err := r.client.do(ctx, http.MethodGet, r.path, query, nil, &out); err != nil {
		return nil, fmt.Errorf("listing %s: %w", r.name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodGet, r.itemPath(id), nil, nil, &out); err != nil {
		return out, fmt.Errorf("getting %s %s: %w", r.name, id, err)
	}
	return out, nil
}

// Create POSTs item and returns the server's copy, which carries the
// assigned ID and timestamps.
func (r *Resource[T]) Create(ctx context.Context, item T) (T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodPost, r.path, nil, item, &out); err != nil {
		return out, fmt.Errorf("creating %s: %w", r.name, err)
	}
	return out, nil
}

// Update PATCHes the full record.
func (r *Resource[T]) Update(ctx context.Context, item T) (T, error) {
	var out T
	if item.GetID() == "" {
		return out, fmt.Errorf("updating %s: missing id", r.name)
	}
	if err := r.client.do(ctx, http.MethodPatch, r.itemPath(item.GetID()), nil, item, &out); err != nil {
		return out, fmt.Errorf("updating %s %s: %w", r.name, item.GetID(), err)
	}
	return out, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if err := r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil, nil); err != nil {
		return fmt.Errorf("deleting %s %s: %w", r.name, id, err)
	}
	return nil
}

func (r *Resource[T]) itemPath(id string) string {
	return r.path + "/" + url.PathEscape(id)
}
