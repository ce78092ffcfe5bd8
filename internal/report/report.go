package report

import (
	"sort"
	"strings"
	"time"

	"mail-auto-ticketing/internal/models"
)

const dateLayout = "2006-01-02"

// Summary counts the tickets created on one day
type Summary struct {
	Date   string `json:"date"`
	Total  int    `json:"total"`
	Open   int    `json:"open"`
	Closed int    `json:"closed"`
}

// DayCount is the number of tickets created on a date
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Daily summarizes the tickets whose timestamp starts with now's date. Statuses
// are compared case-insensitively; other statuses only count towards Total.
func Daily(tickets []models.Ticket, now time.Time) Summary {
	s := Summary{Date: now.Format(dateLayout)}

	for _, t := range tickets {
		ts, ok := t.Get("timestamp")
		if !ok || !strings.HasPrefix(ts, s.Date) {
			continue
		}
		s.Total++

		status, _ := t.Get("status")
		switch {
		case strings.EqualFold(status, models.StatusOpen):
			s.Open++
		case strings.EqualFold(status, models.StatusClosed):
			s.Closed++
		}
	}
	return s
}

// PerDay counts tickets per creation date in ascending order. Tickets without a
// timestamp are skipped.
func PerDay(tickets []models.Ticket) []DayCount {
	counts := make(map[string]int)
	for _, t := range tickets {
		ts, ok := t.Get("timestamp")
		if !ok || strings.TrimSpace(ts) == "" {
			continue
		}
		date, _, _ := strings.Cut(strings.TrimSpace(ts), " ")
		counts[date]++
	}

	days := make([]DayCount, 0, len(counts))
	for date, n := range counts {
		days = append(days, DayCount{Date: date, Count: n})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}
