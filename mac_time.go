package main

import "time"

// macEpochOffset is the number of seconds between the classic Mac OS epoch
// (1904-01-01 00:00:00) and the Unix epoch (1970-01-01 00:00:00).
const macEpochOffset = 2082844800

// MacTimeToUnix converts a Mac OS timestamp (seconds since 1904-01-01) to
// a Unix time.Time in UTC.
func MacTimeToUnix(mac uint32) time.Time {
	return time.Unix(int64(mac)-macEpochOffset, 0).UTC()
}

// UnixToMacTime converts t to a Mac OS timestamp, truncating to the
// nearest second. Times before the Mac epoch wrap the same way the
// original 32-bit field did.
func UnixToMacTime(t time.Time) uint32 {
	return uint32(t.UTC().Unix() + macEpochOffset)
}
