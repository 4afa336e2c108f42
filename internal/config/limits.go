package config

const (
	// MaxPageTitleLength is the maximum length for page titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (titles should be short and descriptive).
	MaxPageTitleLength = 255

	// MaxDirectoryTitleLength is the maximum length for directory titles.
	// Same as page titles for consistency.
	MaxDirectoryTitleLength = 255

	// MaxSlugLength is the maximum length for page slugs. Slugs derive
	// from titles but collisions append numeric suffixes.
	MaxSlugLength = 280

	// MaxPageContentLength is the maximum markdown content size in bytes.
	MaxPageContentLength = 1 << 20 // 1 MiB

	// MaxDescriptionLength is the maximum length for directory
	// descriptions (markdown shown on the directory page).
	MaxDescriptionLength = 10000

	// MaxChangeMessageLength is the maximum length for revision change
	// messages.
	MaxChangeMessageLength = 500

	// MaxDirectoryPathLength is the maximum length for full directory
	// paths. Longer paths indicate overly deep hierarchies.
	MaxDirectoryPathLength = 1000

	// DefaultSearchLimit is the page count returned by search when the
	// request does not specify one.
	DefaultSearchLimit = 20

	// MaxSearchLimit caps the page count a single search may return.
	MaxSearchLimit = 100

	// DefaultRevisionLimit is the snapshot count returned by revision
	// listings when the request does not specify one.
	DefaultRevisionLimit = 50
)
