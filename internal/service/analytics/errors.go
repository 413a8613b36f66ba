package analytics

import "errors"

var (
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidDaysRange = errors.New("days must be between 1 and 30")
)
