package models

// VideoSource is one configured video-search API endpoint.
type VideoSource struct {
	// Key uniquely identifies the source.
	Key string `json:"key"`

	// Name is the display name.
	Name string `json:"name"`

	// API is the search endpoint URL.
	API string `json:"api"`

	// Detail is an optional detail-page base URL.
	Detail string `json:"detail,omitempty"`

	// Disabled is controlled by the admin UI only; the config merge
	// preserves it across file re-imports.
	Disabled *bool `json:"disabled,omitempty"`

	// From records the entry's provenance.
	From Provenance `json:"from"`
}

// CustomCategory is an admin-defined browse category.
type CustomCategory struct {
	// Name is the display label.
	Name string `json:"name"`

	// Type is the media kind the category queries, e.g. "movie" or "tv".
	Type string `json:"type"`

	// Query is the upstream search term.
	Query string `json:"query"`

	// Disabled is controlled by the admin UI only.
	Disabled *bool `json:"disabled,omitempty"`

	// From records the entry's provenance.
	From Provenance `json:"from"`
}

// CategoryKey identifies a category by its query and type.
// Used as a map key so equality is structural rather than a delimiter-joined
// string that could collide.
type CategoryKey struct {
	Query string
	Type  string
}

// Key returns the category's natural unique key.
func (c *CustomCategory) Key() CategoryKey {
	return CategoryKey{Query: c.Query, Type: c.Type}
}

// UserRole is the access level of a portal user.
type UserRole string

const (
	// RoleOwner is the single pinned superuser.
	RoleOwner UserRole = "owner"
	// RoleAdmin can manage sources and configuration.
	RoleAdmin UserRole = "admin"
	// RoleUser is a regular viewer.
	RoleUser UserRole = "user"
)

// User is one portal account as carried in the admin configuration.
type User struct {
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	Banned   bool     `json:"banned,omitempty"`
}

// AdminConfig is the persisted admin configuration object, stored as JSON in
// the durable store. The config merge engine folds the raw ConfigFile blob
// into the typed entity families in place.
type AdminConfig struct {
	// ConfigFile is the raw config blob: JSON, M3U, or line-oriented records.
	ConfigFile string `json:"configFile,omitempty"`

	// VideoSources are the configured video-search APIs.
	VideoSources []VideoSource `json:"sourceConfig"`

	// Categories are the custom browse categories.
	Categories []CustomCategory `json:"customCategories"`

	// Lives are the configured live playlist feeds.
	Lives []LiveSource `json:"liveConfig"`

	// Users are the portal accounts.
	Users []User `json:"userConfig"`
}
