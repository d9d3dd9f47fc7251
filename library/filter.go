package library

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// LoanFilter narrows a loan listing. Zero values match everything.
type LoanFilter struct {
	Status LoanStatus
	Search string
}

// FilterLoans keeps loans whose derived status and display fields match f.
func FilterLoans(loans []Loan, f LoanFilter, now time.Time) []Loan {
	needle := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Loan, 0, len(loans))
	for i := range loans {
		l := &loans[i]
		if f.Status != "" && Status(*l, now) != f.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(LoanBookTitle(l)), needle) &&
			!strings.Contains(strings.ToLower(LoanMemberName(l)), needle) {
			continue
		}
		out = append(out, *l)
	}
	return out
}

// SortKey selects the loan listing order.
type SortKey string

const (
	SortByDueDate    SortKey = "dueDate"
	SortByLoanDate   SortKey = "loanDate"
	SortByBookTitle  SortKey = "bookTitle"
	SortByMemberName SortKey = "memberName"
)

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case SortByDueDate, SortByLoanDate, SortByBookTitle, SortByMemberName:
		return k, true
	case "":
		return SortByDueDate, true
	}
	return "", false
}

func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase, collate.Loose)
}

// SortLoans orders loans in place. Text keys use locale-aware collation.
func SortLoans(loans []Loan, key SortKey, descending bool) {
	col := newCollator()
	compare := func(a, b Loan) int {
		switch key {
		case SortByLoanDate:
			return a.LoanDate.Compare(b.LoanDate.Time)
		case SortByBookTitle:
			return col.CompareString(LoanBookTitle(&a), LoanBookTitle(&b))
		case SortByMemberName:
			return col.CompareString(LoanMemberName(&a), LoanMemberName(&b))
		default:
			return a.DueDate.Compare(b.DueDate.Time)
		}
	}
	slices.SortStableFunc(loans, func(a, b Loan) int {
		if descending {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

// SortBooks orders books by title with locale-aware collation.
func SortBooks(books []Book) {
	col := newCollator()
	slices.SortStableFunc(books, func(a, b Book) int {
		if c := col.CompareString(a.Title, b.Title); c != 0 {
			return c
		}
		return CompareIDs(a.ID, b.ID)
	})
}

// OverdueEntry is an overdue loan with its lateness precomputed.
type OverdueEntry struct {
	Loan        Loan     `json:"loan"`
	DaysOverdue int      `json:"daysOverdue"`
	Severity    Severity `json:"severity"`
}

// SeverityCounts tallies overdue entries per bucket.
type SeverityCounts struct {
	Mild     int `json:"mild"`
	Moderate int `json:"moderate"`
	Severe   int `json:"severe"`
}

// OverdueEntries keeps the loans the status engine classifies as overdue,
// most overdue first.
func OverdueEntries(loans []Loan, now time.Time) []OverdueEntry {
	out := make([]OverdueEntry, 0)
	for _, l := range loans {
		if Status(l, now) != StatusOverdue {
			continue
		}
		days := DaysOverdue(l, now)
		out = append(out, OverdueEntry{Loan: l, DaysOverdue: days, Severity: SeverityFor(days)})
	}
	slices.SortStableFunc(out, func(a, b OverdueEntry) int {
		return cmp.Compare(b.DaysOverdue, a.DaysOverdue)
	})
	return out
}

// FilterBySeverity keeps entries in the given bucket; empty keeps all.
func FilterBySeverity(entries []OverdueEntry, sev Severity) []OverdueEntry {
	if sev == "" {
		return entries
	}
	out := make([]OverdueEntry, 0, len(entries))
	for _, e := range entries {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}

// CountSeverities tallies entries per severity bucket.
func CountSeverities(entries []OverdueEntry) SeverityCounts {
	var c SeverityCounts
	for _, e := range entries {
		switch e.Severity {
		case SeverityMild:
			c.Mild++
		case SeverityModerate:
			c.Moderate++
		case SeveritySevere:
			c.Severe++
		}
	}
	return c
}
