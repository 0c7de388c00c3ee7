package utils

import "time"

// UnixTimeToTime converts a ledger timestamp (Unix seconds, as stored on the
// event record) to UTC wall time.
func UnixTimeToTime(unixTime int64) time.Time {
	return time.Unix(unixTime, 0).UTC()
}
