package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./shelfmark.db"

	// DefaultHistoryDepth is the visit-history ring buffer capacity
	DefaultHistoryDepth = 10
)
