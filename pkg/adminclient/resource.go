package adminclient

import (
	"context"
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// Upload is a file sent with a form.
type Upload struct {
	Field string
	Name  string
	Data  []byte
}

// Form is the payload of a create or update. It is always sent as
// multipart/form-data.
type Form struct {
	Fields map[string]string
	Files  []Upload
}

// Resource is a typed REST collection such as "/products".
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds path, relative to the client's base URL, to T.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: path}
}

func (r *Resource[T]) url(id string) string {
	u := r.client.baseURL + r.path
	if id != "" {
		u += "/" + url.PathEscape(id)
	}
	return u
}

// List fetches the whole collection.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.client.send(ctx, fiber.Get(r.url("")), true, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	item := new(T)
	if err := r.client.send(ctx, fiber.Get(r.url(id)), true, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Create posts form and returns the stored record.
func (r *Resource[T]) Create(ctx context.Context, form Form) (*T, error) {
	item := new(T)
	if err := r.client.send(ctx, withForm(fiber.Post(r.url("")), form), true, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Update puts form to the record id and returns the stored result.
func (r *Resource[T]) Update(ctx context.Context, id string, form Form) (*T, error) {
	item := new(T)
	if err := r.client.send(ctx, withForm(fiber.Put(r.url(id)), form), true, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the record id.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.send(ctx, fiber.Delete(r.url(id)), true, nil)
}

func withForm(agent *fiber.Agent, form Form) *fiber.Agent {
	for _, f := range form.Files {
		agent.FileData(&fiber.FormFile{
			Fieldname: f.Field,
			Name:      f.Name,
			Content:   f.Data,
		})
	}
	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	for k, v := range form.Fields {
		args.Set(k, v)
	}
	return agent.MultipartForm(args)
}
