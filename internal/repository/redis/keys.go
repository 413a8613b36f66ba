package redis

import "fmt"

// Keyspace layout:
//
//	tables:{id}                     serialized table record
//	analytics:visitors:{YYYY-MM-DD} per-day list of visitor session events
const (
	tablesPrefix   = "tables:"
	visitorsPrefix = "analytics:visitors:"
)

func KeyTable(id int64) string {
	return fmt.Sprintf("%s%d", tablesPrefix, id)
}

func KeyVisitorDay(date string) string {
	return visitorsPrefix + date
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("rl:%s:%s", scope, id)
}
