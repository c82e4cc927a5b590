// Package contentgraph defines the exported content-space document model:
// content types, locales, tags, editor interfaces, entries, and assets,
// plus the link traversal used to relate entries to the assets they
// reference.
package contentgraph

import "encoding/json"

// Resource kinds used in sys.type and link linkType values.
const (
	KindEntry       = "Entry"
	KindAsset       = "Asset"
	KindLink        = "Link"
	KindContentType = "ContentType"
)

// Sys is the system-metadata block carried by every exported resource.
type Sys struct {
	ID               string `json:"id"`
	Type             string `json:"type,omitempty"`
	Version          int    `json:"version,omitempty"`
	PublishedVersion int    `json:"publishedVersion,omitempty"`
	ContentType      *Link  `json:"contentType,omitempty"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

// Link is a typed reference to another resource by id.
type Link struct {
	Sys LinkSys `json:"sys"`
}

// LinkSys is the sys block inside a link value.
type LinkSys struct {
	Type     string `json:"type"`
	LinkType string `json:"linkType"`
	ID       string `json:"id"`
}

// NewLink builds a link to the given resource kind and id.
func NewLink(linkType, id string) *Link {
	return &Link{Sys: LinkSys{Type: KindLink, LinkType: linkType, ID: id}}
}

// Entry is a single content entry. Fields maps field id -> locale code ->
// value; values are scalars, links, or lists thereof (see Value).
type Entry struct {
	Sys    Sys                         `json:"sys"`
	Fields map[string]map[string]Value `json:"fields"`
}

// ContentTypeID returns the id of the entry's content type, or "" if the
// export did not record one.
func (e *Entry) ContentTypeID() string {
	if e.Sys.ContentType == nil {
		return ""
	}
	return e.Sys.ContentType.Sys.ID
}

// Asset is a single media asset. File descriptors are locale-keyed.
type Asset struct {
	Sys    Sys         `json:"sys"`
	Fields AssetFields `json:"fields"`
}

// AssetFields holds the localized title/description and file descriptors.
type AssetFields struct {
	Title       map[string]string     `json:"title,omitempty"`
	Description map[string]string     `json:"description,omitempty"`
	File        map[string]*AssetFile `json:"file,omitempty"`
}

// AssetFile is one per-locale file descriptor. Before upload the binary is
// addressed by URL (or Upload for not-yet-imported files); after processing
// the target service fills URL in with the hosted location.
type AssetFile struct {
	URL         string          `json:"url,omitempty"`
	Upload      string          `json:"upload,omitempty"`
	FileName    string          `json:"fileName,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// Processed reports whether the descriptor has a resolved hosted URL.
func (f *AssetFile) Processed() bool {
	return f != nil && f.URL != ""
}

// ContentType is a content-type definition. The field schema is carried
// opaquely; the migration never interprets it, only replays it.
type ContentType struct {
	Sys          Sys             `json:"sys"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	DisplayField string          `json:"displayField,omitempty"`
	Fields       json.RawMessage `json:"fields"`
}

// Locale is a locale definition.
type Locale struct {
	Sys          Sys    `json:"sys"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	FallbackCode string `json:"fallbackCode,omitempty"`
	Default      bool   `json:"default,omitempty"`
	Optional     bool   `json:"optional,omitempty"`
}

// Tag is a tag definition.
type Tag struct {
	Sys  Sys    `json:"sys"`
	Name string `json:"name"`
}

// EditorInterface configures the editing UI for one content type. Controls
// are opaque to the migration.
type EditorInterface struct {
	Sys      Sys             `json:"sys"`
	Controls json.RawMessage `json:"controls,omitempty"`
	Sidebar  json.RawMessage `json:"sidebar,omitempty"`
}

// ContentTypeID returns the content type this editor interface belongs to.
func (ei *EditorInterface) ContentTypeID() string {
	if ei.Sys.ContentType == nil {
		return ""
	}
	return ei.Sys.ContentType.Sys.ID
}
