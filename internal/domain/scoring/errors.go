package scoring

import "errors"

// Sentinel kinds for scoring configuration errors.
var (
	ErrInvalidWeights    = errors.New("invalid rule weights")
	ErrInvalidThresholds = errors.New("invalid verdict thresholds")
)
