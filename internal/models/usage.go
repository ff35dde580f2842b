package models

import "time"

// UsageDateFormat is the layout for daily usage date stamps.
const UsageDateFormat = "2006-01-02"

// DailyUsage records screen time for a single calendar day.
type DailyUsage struct {
	Date    string `json:"date"` // "2006-01-02"
	Seconds int    `json:"seconds"`
}

// UsageDate formats t as a daily usage date stamp.
func UsageDate(t time.Time) string {
	return t.Format(UsageDateFormat)
}
