package library

import (
	"math"
	"time"
)

// LoanStatus is derived on read from a loan's dates; it is never stored.
type LoanStatus string

const (
	StatusActive   LoanStatus = "active"
	StatusOverdue  LoanStatus = "overdue"
	StatusReturned LoanStatus = "returned"
)

// Severity buckets how late an overdue loan is.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

const (
	mildMaxDays     = 7
	moderateMaxDays = 30
)

// calendarDay truncates t to midnight of its calendar day in loc.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// IsOverdue reports whether an unreturned loan's due day is before today.
// Time of day is ignored on both sides. Loans without a due date and
// returned loans are never overdue.
func IsOverdue(l Loan, now time.Time) bool {
	if l.DueDate.IsZero() || l.Returned() {
		return false
	}
	loc := now.Location()
	return calendarDay(l.DueDate.Time, loc).Before(calendarDay(now, loc))
}

// DaysOverdue is 0 for loans that are not overdue, otherwise the elapsed
// time since the due date rounded up to whole days (never less than 1).
func DaysOverdue(l Loan, now time.Time) int {
	if !IsOverdue(l, now) {
		return 0
	}
	days := int(math.Ceil(now.Sub(l.DueDate.Time).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

// SeverityFor buckets a positive day count. Callers must not classify loans
// that are not overdue.
func SeverityFor(daysOverdue int) Severity {
	switch {
	case daysOverdue <= mildMaxDays:
		return SeverityMild
	case daysOverdue <= moderateMaxDays:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

// Status derives the loan's lifecycle state. Every listing, badge and count
// goes through this function.
func Status(l Loan, now time.Time) LoanStatus {
	if l.Returned() {
		return StatusReturned
	}
	if IsOverdue(l, now) {
		return StatusOverdue
	}
	return StatusActive
}

// ParseStatus maps a user-supplied filter value to a status. The empty
// string and "all" yield ok=true with an empty status.
func ParseStatus(s string) (LoanStatus, bool) {
	switch LoanStatus(s) {
	case "", "all":
		return "", true
	case StatusActive, StatusOverdue, StatusReturned:
		return LoanStatus(s), true
	}
	return "", false
}

// ParseSeverity maps a user-supplied filter value to a severity. The empty
// string and "all" yield ok=true with an empty severity.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(s) {
	case "", "all":
		return "", true
	case SeverityMild, SeverityModerate, SeveritySevere:
		return Severity(s), true
	}
	return "", false
}
