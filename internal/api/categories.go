package api

import (
	"context"
	"encoding/json"
	"net/url"

	"finboard/internal/core"
)

// Categories lists the user's categories, optionally of one type.
func (c *Client) Categories(ctx context.Context, typ core.TxType) ([]core.Category, error) {
	q := url.Values{}
	if typ != "" {
		q.Set("type", string(typ))
	}
	var out struct {
		Categories []core.Category `json:"categories"`
	}
	err := c.get(ctx, "/categories", q, &out)
	return out.Categories, err
}

func (c *Client) Category(ctx context.Context, id string) (core.Category, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/categories/"+url.PathEscape(id), nil, &raw); err != nil {
		return core.Category{}, err
	}
	var cat core.Category
	err := unwrapKey(raw, "category", &cat)
	return cat, err
}

func (c *Client) CreateCategory(ctx context.Context, in core.CategoryInput) (core.Category, error) {
	var raw json.RawMessage
	if err := c.post(ctx, "/categories", in, &raw); err != nil {
		return core.Category{}, err
	}
	var cat core.Category
	err := unwrapKey(raw, "category", &cat)
	return cat, err
}

func (c *Client) UpdateCategory(ctx context.Context, id string, in core.CategoryInput) (core.Category, error) {
	var raw json.RawMessage
	if err := c.put(ctx, "/categories/"+url.PathEscape(id), in, &raw); err != nil {
		return core.Category{}, err
	}
	var cat core.Category
	err := unwrapKey(raw, "category", &cat)
	return cat, err
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.delete(ctx, "/categories/"+url.PathEscape(id), nil, nil)
}

// CreateDefaultCategories asks the backend to seed its default set.
func (c *Client) CreateDefaultCategories(ctx context.Context) error {
	return c.post(ctx, "/categories/defaults", nil, nil)
}
