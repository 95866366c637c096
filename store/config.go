package store

// Config holds configuration for the Store.
type Config struct {
	// TablePrefix is prepended to every descriptor's table name
	// (e.g., "staging_" turns "courses" into "staging_courses").
	// Default: ""
	TablePrefix string

	// FallbackPolicy applies to calls that do not pass WithFallbackPolicy.
	// Default: FallbackOnMissingCredentials
	FallbackPolicy FallbackPolicy

	// DisableScan makes queries that need a full scan fail with
	// ErrUnroutableQuery unless they are issued through List.
	// Default: false
	DisableScan bool

	// DefaultPageSize is the page size when a call sets no limit.
	// Default: 50
	DefaultPageSize int32

	// MaxPageSize caps every page size.
	// Default: 500
	// Max: 1000
	MaxPageSize int32
}

// DefaultConfig returns the defaults used by the admin backend.
func DefaultConfig() Config {
	return Config{
		FallbackPolicy:  FallbackOnMissingCredentials,
		DefaultPageSize: 50,
		MaxPageSize:     500,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if !c.FallbackPolicy.valid() {
		c.FallbackPolicy = FallbackOnMissingCredentials
	}
	if c.MaxPageSize < 1 {
		c.MaxPageSize = 500
	}
	if c.MaxPageSize > 1000 {
		c.MaxPageSize = 1000
	}
	if c.DefaultPageSize < 1 {
		c.DefaultPageSize = 50
	}
	if c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = c.MaxPageSize
	}
}

// pageSize resolves a requested limit against the configured bounds.
func (c *Config) pageSize(requested int32) int32 {
	if requested < 1 {
		return c.DefaultPageSize
	}
	if requested > c.MaxPageSize {
		return c.MaxPageSize
	}
	return requested
}
