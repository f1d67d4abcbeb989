package testevents

import "time"

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	DefaultSettle        = 2 * time.Second
	RecentLimit          = 50
	PercentageMultiplier = 100
)

// Submission results.
const (
	resultScored   = "scored"
	resultRejected = "rejected"
	resultFailed   = "failed"
)
