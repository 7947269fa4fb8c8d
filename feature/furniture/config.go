package furniture

// Config holds configuration for the furniture feature.
type Config struct {
	// Enabled registers the feature routes.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Object is the gamedata object in the storage bucket.
	Object string `mapstructure:"object" default:"gamedata/FurnitureData.json"`
	// Domain is the partition of the local cache holding the catalogue.
	Domain string `mapstructure:"domain" default:"furniture"`
	// PageSize is the number of items per gamedata page.
	PageSize int `mapstructure:"page_size" default:"100"`
	// ListLimit caps the in-memory sorted listing, 0 keeps every item.
	ListLimit int `mapstructure:"list_limit" default:"0"`
}
