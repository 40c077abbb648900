package backend

import (
	"context"
	"fmt"
	"net/http"
)

// Resource is the list/detail/status/trash lifecycle the back-office
// resources share. The backend is not uniform about delete paths or
// payload encoding, so both are configurable.
type Resource[T any] struct {
	c    *Client
	base string
	// deletePath formats the permanent-delete path for an id.
	deletePath string
	multipart  bool
}

func newResource[T any](c *Client, base, deletePath string, multipart bool) *Resource[T] {
	return &Resource[T]{c: c, base: base, deletePath: deletePath, multipart: multipart}
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.c.get(ctx, r.base, nil, &items); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.base, err)
	}
	return items, nil
}

func (r *Resource[T]) Trash(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.c.get(ctx, r.base+"/trash", nil, &items); err != nil {
		return nil, fmt.Errorf("list %s trash: %w", r.base, err)
	}
	return items, nil
}

func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	var item T
	if err := r.c.get(ctx, fmt.Sprintf("%s/%d", r.base, id), nil, &item); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", r.base, id, err)
	}
	return &item, nil
}

func (r *Resource[T]) Create(ctx context.Context, in Fields) (*T, error) {
	var item T
	if err := r.c.Do(ctx, r.write(http.MethodPost, r.base, in), &item); err != nil {
		return nil, fmt.Errorf("create %s: %w", r.base, err)
	}
	return &item, nil
}

func (r *Resource[T]) Update(ctx context.Context, id int64, in Fields) (*T, error) {
	var item T
	if err := r.c.Do(ctx, r.write(http.MethodPut, fmt.Sprintf("%s/%d", r.base, id), in), &item); err != nil {
		return nil, fmt.Errorf("update %s %d: %w", r.base, id, err)
	}
	return &item, nil
}

func (r *Resource[T]) ToggleStatus(ctx context.Context, id int64) error {
	if err := r.c.put(ctx, fmt.Sprintf("%s/status/%d", r.base, id), nil, nil, nil); err != nil {
		return fmt.Errorf("toggle %s %d status: %w", r.base, id, err)
	}
	return nil
}

func (r *Resource[T]) MoveToTrash(ctx context.Context, id int64) error {
	if err := r.c.put(ctx, fmt.Sprintf("%s/trash/%d", r.base, id), nil, nil, nil); err != nil {
		return fmt.Errorf("trash %s %d: %w", r.base, id, err)
	}
	return nil
}

func (r *Resource[T]) Restore(ctx context.Context, id int64) error {
	if err := r.c.put(ctx, fmt.Sprintf("%s/restore/%d", r.base, id), nil, nil, nil); err != nil {
		return fmt.Errorf("restore %s %d: %w", r.base, id, err)
	}
	return nil
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	if err := r.c.delete(ctx, fmt.Sprintf(r.deletePath, r.base, id), nil); err != nil {
		return fmt.Errorf("delete %s %d: %w", r.base, id, err)
	}
	return nil
}

// EmptyTrash permanently deletes every trashed record.
func (r *Resource[T]) EmptyTrash(ctx context.Context) error {
	if err := r.c.delete(ctx, r.base+"/trash/empty", nil); err != nil {
		return fmt.Errorf("empty %s trash: %w", r.base, err)
	}
	return nil
}

func (r *Resource[T]) write(method, path string, in Fields) Request {
	if r.multipart {
		return Request{Method: method, Path: path, Multipart: in}
	}
	return Request{Method: method, Path: path, Body: in}
}
