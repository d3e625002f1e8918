package appointment

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used on every boundary.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar date at midnight UTC. Appointments carry no
// time-of-day, so every date entering the package passes through Day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO date. A full RFC 3339 timestamp is accepted as
// well; its time component is dropped.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Day(t), nil
}

// AddDays shifts a calendar date.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// SameDay compares calendar dates, ignoring any time component.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// Quarter is a calendar quarter, rendered like "2025Q1".
type Quarter struct {
	Year int
	Q    int
}

// QuarterOf returns the quarter containing t.
func QuarterOf(t time.Time) Quarter {
	return Quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

// ParseQuarter parses "2025Q1" (case-insensitive "q").
func ParseQuarter(s string) (Quarter, error) {
	var q Quarter
	if len(s) != 6 || (s[4] != 'Q' && s[4] != 'q') {
		return q, fmt.Errorf("invalid quarter %q: expected YYYYQn", s)
	}
	if _, err := fmt.Sscanf(s[:4]+" "+s[5:], "%d %d", &q.Year, &q.Q); err != nil {
		return q, fmt.Errorf("invalid quarter %q: %w", s, err)
	}
	if q.Q < 1 || q.Q > 4 {
		return q, fmt.Errorf("invalid quarter %q: quarter must be 1-4", s)
	}
	return q, nil
}

// Start is the first day of the quarter.
func (q Quarter) Start() time.Time {
	return Date(q.Year, time.Month((q.Q-1)*3+1), 1)
}

// End is the last day of the quarter.
func (q Quarter) End() time.Time {
	return q.Start().AddDate(0, 3, -1)
}

// Contains reports whether t falls in the quarter.
func (q Quarter) Contains(t time.Time) bool {
	return QuarterOf(t) == q
}

func (q Quarter) String() string {
	return fmt.Sprintf("%04dQ%d", q.Year, q.Q)
}
