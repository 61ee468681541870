package api

import (
	"context"
	"fmt"
	"net/http"

	"werss-client/internal/domain/entity"
)

// ListTags returns a page of tags.
func (c *Client) ListTags(ctx context.Context, page, pageSize int) (*entity.ListResult[entity.Tag], error) {
	q := pageQuery(page, pageSize, entity.DefaultTagPageSize)
	var out entity.ListResult[entity.Tag]
	if err := c.do(ctx, get("/wx/tags", "/wx/tags", q), &out); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return &out, nil
}

// GetTag returns one tag.
func (c *Client) GetTag(ctx context.Context, id string) (*entity.Tag, error) {
	pid, err := pathID("tag id", id)
	if err != nil {
		return nil, err
	}
	var out entity.Tag
	if err := c.do(ctx, get("/wx/tags/{id}", "/wx/tags/"+pid, nil), &out); err != nil {
		return nil, fmt.Errorf("get tag %s: %w", id, err)
	}
	return &out, nil
}

// CreateTag creates a tag.
func (c *Client) CreateTag(ctx context.Context, in entity.TagCreate) (*entity.Tag, error) {
	if err := entity.ValidateStruct(&in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	req := request{method: http.MethodPost, route: "/wx/tags", path: "/wx/tags", body: in}
	var out entity.Tag
	if err := c.do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("create tag %s: %w", in.Name, err)
	}
	return &out, nil
}

// UpdateTag replaces a tag's fields.
func (c *Client) UpdateTag(ctx context.Context, id string, in entity.TagCreate) (*entity.Tag, error) {
	pid, err := pathID("tag id", id)
	if err != nil {
		return nil, err
	}
	if err := entity.ValidateStruct(&in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	req := request{method: http.MethodPut, route: "/wx/tags/{id}", path: "/wx/tags/" + pid, body: in}
	var out entity.Tag
	if err := c.do(ctx, req, &out); err != nil {
		return nil, fmt.Errorf("update tag %s: %w", id, err)
	}
	return &out, nil
}

// DeleteTag removes a tag.
func (c *Client) DeleteTag(ctx context.Context, id string) error {
	pid, err := pathID("tag id", id)
	if err != nil {
		return err
	}
	req := request{method: http.MethodDelete, route: "/wx/tags/{id}", path: "/wx/tags/" + pid}
	if err := c.do(ctx, req, nil); err != nil {
		return fmt.Errorf("delete tag %s: %w", id, err)
	}
	return nil
}
