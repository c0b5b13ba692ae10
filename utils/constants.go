package utils

import (
	"time"
)

// Billing constants
const (
	// DefaultPlainWordLength is the characters-per-credit unit for plain bodies
	DefaultPlainWordLength = 160

	// DefaultUnicodeWordLength is the characters-per-credit unit for unicode bodies
	DefaultUnicodeWordLength = 70
)

// Dispatch constants
const (
	// DefaultDispatchBatchSize caps how many due logs one worker tick claims
	DefaultDispatchBatchSize = 200

	// DefaultSendTimeout bounds a single gateway adapter call
	DefaultSendTimeout = 30 * time.Second

	// DefaultDispatchInterval is the worker poll period
	DefaultDispatchInterval = 5 * time.Second
)

// Bridge session constants
const (
	// MaxSessionRetries bounds reconnect attempts before a session closes
	MaxSessionRetries = 5

	// SessionRetryBaseDelay is the base for jittered reconnect backoff
	SessionRetryBaseDelay = 2 * time.Second
)

// Cache constants
const (
	// PlatformSettingsCacheKey is the redis key for the settings blob
	PlatformSettingsCacheKey = "platform:settings"

	// PlatformSettingsCacheTTL bounds staleness of cached settings
	PlatformSettingsCacheTTL = 60 * time.Second
)

// CORS constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
