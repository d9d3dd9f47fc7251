package library

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookAvailable prefers the backend's availability flag and falls back to
// the copy count when no flag was sent.
func BookAvailable(b Book) bool {
	switch {
	case b.Available != nil:
		return *b.Available
	case b.IsAvailable != nil:
		return *b.IsAvailable
	default:
		return b.AvailableCopies > 0
	}
}

// CanLend is the stricter check used before creating a loan: the book must
// be flagged available and have a copy on the shelf.
func CanLend(b Book) bool {
	return BookAvailable(b) && b.AvailableCopies > 0
}

// ComputeStatistics counts loans by derived status, available books and
// members. Each figure is an independent pass over its collection.
func ComputeStatistics(loans []Loan, books []Book, users []User, now time.Time) Statistics {
	s := Statistics{
		TotalLoans:       len(loans),
		TotalBooks:       len(books),
		TotalUsers:       len(users),
		OutstandingFines: decimal.Zero,
	}
	for _, l := range loans {
		switch Status(l, now) {
		case StatusActive:
			s.ActiveLoans++
		case StatusOverdue:
			s.OverdueLoans++
		}
	}
	for _, l := range loans {
		if l.Returned() {
			s.ReturnedLoans++
		}
	}
	for _, l := range loans {
		if l.Fine.IsPositive() {
			s.OutstandingFines = s.OutstandingFines.Add(l.Fine)
		}
	}
	for _, b := range books {
		if BookAvailable(b) {
			s.AvailableBooks++
		}
	}
	for _, u := range users {
		if u.Role == RoleMember {
			s.TotalMembers++
		}
	}
	return s
}
