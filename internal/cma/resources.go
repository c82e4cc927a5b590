package cma

import (
	"context"
	"net/http"
	"net/url"

	"github.com/spaceferry/spaceferry/internal/contentgraph"
)

// ListLocales returns the locales already defined in the target
// environment. The driver uses this for idempotent locale import.
func (c *Client) ListLocales(ctx context.Context) ([]contentgraph.Locale, error) {
	var result collection[contentgraph.Locale]
	if err := c.request(ctx, http.MethodGet, c.envPath("locales"), nil, nil, &result); err != nil {
		return nil, err
	}
	return result.Items, nil
}

// CreateLocale defines a new locale in the target environment.
func (c *Client) CreateLocale(ctx context.Context, locale contentgraph.Locale) (*contentgraph.Locale, error) {
	body := struct {
		Name         string `json:"name"`
		Code         string `json:"code"`
		FallbackCode string `json:"fallbackCode,omitempty"`
		Optional     bool   `json:"optional,omitempty"`
	}{locale.Name, locale.Code, locale.FallbackCode, locale.Optional}

	var created contentgraph.Locale
	if err := c.request(ctx, http.MethodPost, c.envPath("locales"), nil, body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// CreateTag creates a tag with an explicit id. A 409 from the service
// means the tag already exists; callers treat that as non-fatal.
func (c *Client) CreateTag(ctx context.Context, tag contentgraph.Tag) error {
	body := struct {
		Name string `json:"name"`
	}{tag.Name}
	return c.request(ctx, http.MethodPut, c.envPath("tags", url.PathEscape(tag.Sys.ID)), nil, body, nil)
}

// CreateContentType creates (or overwrites) a content type with the
// explicit id from the source space.
func (c *Client) CreateContentType(ctx context.Context, ct contentgraph.ContentType) (*contentgraph.ContentType, error) {
	body := struct {
		Name         string `json:"name"`
		Description  string `json:"description,omitempty"`
		DisplayField string `json:"displayField,omitempty"`
		Fields       any    `json:"fields"`
	}{ct.Name, ct.Description, ct.DisplayField, ct.Fields}

	var created contentgraph.ContentType
	err := c.request(ctx, http.MethodPut, c.envPath("content_types", url.PathEscape(ct.Sys.ID)), nil, body, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// PublishContentType activates a content type version.
func (c *Client) PublishContentType(ctx context.Context, id string, version int) error {
	return c.request(ctx, http.MethodPut,
		c.envPath("content_types", url.PathEscape(id), "published"),
		versionHeader(version), nil, nil)
}

// GetEditorInterface fetches the editor interface for a content type. The
// service auto-creates one per content type, so this normally succeeds
// once the content type exists.
func (c *Client) GetEditorInterface(ctx context.Context, contentTypeID string) (*contentgraph.EditorInterface, error) {
	var ei contentgraph.EditorInterface
	err := c.request(ctx, http.MethodGet,
		c.envPath("content_types", url.PathEscape(contentTypeID), "editor_interface"),
		nil, nil, &ei)
	if err != nil {
		return nil, err
	}
	return &ei, nil
}

// UpdateEditorInterface overwrites a content type's editor interface with
// the source configuration.
func (c *Client) UpdateEditorInterface(ctx context.Context, contentTypeID string, version int, ei contentgraph.EditorInterface) error {
	body := struct {
		Controls any `json:"controls,omitempty"`
		Sidebar  any `json:"sidebar,omitempty"`
	}{ei.Controls, ei.Sidebar}
	return c.request(ctx, http.MethodPut,
		c.envPath("content_types", url.PathEscape(contentTypeID), "editor_interface"),
		versionHeader(version), body, nil)
}

// CreateAsset creates (or overwrites) an asset with its source id.
func (c *Client) CreateAsset(ctx context.Context, asset contentgraph.Asset) (*contentgraph.Asset, error) {
	body := struct {
		Fields contentgraph.AssetFields `json:"fields"`
	}{asset.Fields}

	var created contentgraph.Asset
	err := c.request(ctx, http.MethodPut, c.envPath("assets", url.PathEscape(asset.Sys.ID)), nil, body, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetAsset fetches an asset, including the processing state of its file
// descriptors.
func (c *Client) GetAsset(ctx context.Context, id string) (*contentgraph.Asset, error) {
	var asset contentgraph.Asset
	if err := c.request(ctx, http.MethodGet, c.envPath("assets", url.PathEscape(id)), nil, nil, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// ProcessAsset triggers server-side processing of one locale's file.
func (c *Client) ProcessAsset(ctx context.Context, id string, version int, locale string) error {
	return c.request(ctx, http.MethodPut,
		c.envPath("assets", url.PathEscape(id), "files", url.PathEscape(locale), "process"),
		versionHeader(version), nil, nil)
}

// PublishAsset publishes an asset version.
func (c *Client) PublishAsset(ctx context.Context, id string, version int) error {
	return c.request(ctx, http.MethodPut,
		c.envPath("assets", url.PathEscape(id), "published"),
		versionHeader(version), nil, nil)
}

// CreateEntry creates (or overwrites) an entry with its source id under
// its declared content type.
func (c *Client) CreateEntry(ctx context.Context, entry contentgraph.Entry) (*contentgraph.Entry, error) {
	body := struct {
		Fields map[string]map[string]contentgraph.Value `json:"fields"`
	}{entry.Fields}
	headers := map[string]string{
		"X-Contentful-Content-Type": entry.ContentTypeID(),
	}

	var created contentgraph.Entry
	err := c.request(ctx, http.MethodPut, c.envPath("entries", url.PathEscape(entry.Sys.ID)), headers, body, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetEntry fetches an entry by id.
func (c *Client) GetEntry(ctx context.Context, id string) (*contentgraph.Entry, error) {
	var entry contentgraph.Entry
	if err := c.request(ctx, http.MethodGet, c.envPath("entries", url.PathEscape(id)), nil, nil, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// PublishEntry publishes an entry version.
func (c *Client) PublishEntry(ctx context.Context, id string, version int) error {
	return c.request(ctx, http.MethodPut,
		c.envPath("entries", url.PathEscape(id), "published"),
		versionHeader(version), nil, nil)
}

// Count returns the total number of resources of the given collection
// ("entries", "assets", "content_types", "locales", "tags") without
// fetching any items.
func (c *Client) Count(ctx context.Context, resource string) (int, error) {
	var result collection[struct{}]
	if err := c.request(ctx, http.MethodGet, c.envPath(resource)+"?limit=0", nil, nil, &result); err != nil {
		return 0, err
	}
	return result.Total, nil
}
