package util

import "time"

// StartOfDay 返回 loc 时区当天零点
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// StartOfWeek 返回 t 所在自然周（周一至周日）的周一零点
func StartOfWeek(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return StartOfDay(local.AddDate(0, 0, -(weekday - 1)), loc)
}
