package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const SweepJobInterval = 5 * time.Minute

// Webhook rate limiting
const WebhookRateLimitPerMin = 120

// Booking flow tunables
const (
	// Number of candidate dates offered when asking for a booking date,
	// starting today.
	BookingDateWindowDays = 7

	// Length of the human-readable booking reference.
	BookingReferenceLength = 8
)
