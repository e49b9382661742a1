package utils

import (
	"fmt"
	"strings"
	"time"
)

// HoursPerWorkingDay is used to derive period working hours
const HoursPerWorkingDay = 8

// WorkingDays counts Monday-Friday days in the inclusive range [start, end].
// Only the calendar date of each bound is considered. It returns 0 when end is before start.
func WorkingDays(start, end time.Time) int {
	from := dateOnly(start)
	to := dateOnly(end)
	if to.Before(from) {
		return 0
	}

	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// MonthGrid partitions a year into week rows per month. Weeks start on Monday
// and contain only the days that belong to the month, so the first and last rows
// may be shorter than seven days.
func MonthGrid(year int) map[time.Month][][]int {
	grid := make(map[time.Month][][]int, 12)

	for month := time.January; month <= time.December; month++ {
		var weeks [][]int
		var week []int
		for day := 1; day <= DaysInMonth(year, month); day++ {
			wd := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Weekday()
			if wd == time.Monday && len(week) > 0 {
				weeks = append(weeks, week)
				week = nil
			}
			week = append(week, day)
		}
		if len(week) > 0 {
			weeks = append(weeks, week)
		}
		grid[month] = weeks
	}

	return grid
}

// DaysInMonth returns the number of days in the month
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// PeriodCode formats a period code such as JAN24
func PeriodCode(year int, month time.Month) string {
	return fmt.Sprintf("%s%02d", strings.ToUpper(month.String()[:3]), year%100)
}

// PeriodName formats a period name such as "January 2024"
func PeriodName(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month.String(), year)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
