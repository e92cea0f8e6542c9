package constants

import "time"

const (
	DefaultRating = 1200
	KFactor       = 32

	// Rank windows for opponent eligibility. Direct result registration is
	// restricted to near neighbours; advance bookings reach further down
	// the ladder.
	ResultRankWindow   = 2
	ScheduleRankWindow = 5

	DefaultMatchLimit = 50
)

const (
	// Seed roster ratings: top of the list starts at SeedTopRating and each
	// following player sits SeedRatingStep below the previous one.
	SeedTopRating  = 1600
	SeedRatingStep = 20
)

const (
	DatabaseTimeout   = 5 * time.Second
	RequestTimeout    = 30 * time.Second
	CommentaryTimeout = 10 * time.Second
	ShutdownTimeout   = 5 * time.Second
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

// CommentaryFallback is written to a match when the external generator
// fails or times out. Commentary is a best-effort annotation and must never
// block or fail the result registration.
const CommentaryFallback = "What a match! 🏓"
