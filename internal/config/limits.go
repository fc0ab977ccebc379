package config

const (
	// DefaultPageSize is the page size used when a listing request does not
	// set limit.
	DefaultPageSize = 50

	// MaxPageSize caps listing pages; larger requests are clamped, matching
	// the source API's behavior.
	MaxPageSize = 200

	// MaxSearchLimit caps autocomplete search results.
	MaxSearchLimit = 50

	// MinSearchLength is the shortest query the search endpoint accepts.
	MinSearchLength = 2

	// DefaultTreeDepth is the subtree depth served when the request does
	// not set one.
	DefaultTreeDepth = 2

	// MaxTreeDepth caps subtree materialization; referral chains can be
	// thousands of levels deep and unbounded rendering would serve the
	// whole platform.
	MaxTreeDepth = 10

	// MaxBulkUsers caps how many user ids a bulk assignment lookup accepts.
	MaxBulkUsers = 200
)
