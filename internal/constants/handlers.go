package constants

import "time"

// Handler constants
const (
	// DefaultHandlerPageSize is the page size for paginated handler endpoints
	DefaultHandlerPageSize = 100

	// RunCacheTTL is how long finished attendance runs stay retrievable by ID
	RunCacheTTL = 2 * time.Hour

	// RunCacheCleanup is the purge interval of the attendance run cache
	RunCacheCleanup = 10 * time.Minute

	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100

	// SSEKeepAliveInterval is how often an idle event stream receives a comment ping
	SSEKeepAliveInterval = 15 * time.Second

	// TrainJobHistory is how many training jobs the server remembers
	TrainJobHistory = 20

	// ServerRequestTimeout bounds a single API request
	ServerRequestTimeout = 5 * time.Minute
)

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (100MB)
	MaxUploadSize = 100 << 20
)
