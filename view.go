package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"library-client/client"
	"library-client/library"
)

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func formatDate(t library.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintf(w, "%-6s %-34s %-24s %-16s %-8s %s\n", "ID", "Title", "Author", "Category", "Copies", "Available")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for i := range books {
		b := &books[i]
		fmt.Fprintf(w, "%-6s %-34s %-24s %-16s %-8s %s\n",
			b.ID,
			truncateString(library.BookTitle(b), 34),
			truncateString(library.BookAuthor(b), 24),
			truncateString(b.Category, 16),
			fmt.Sprintf("%d/%d", b.AvailableCopies, b.TotalCopies),
			yesNo(library.BookAvailable(*b)))
	}
}

func printBook(w io.Writer, b *library.Book) {
	fmt.Fprintf(w, "ID:          %s\n", b.ID)
	fmt.Fprintf(w, "Title:       %s\n", library.BookTitle(b))
	fmt.Fprintf(w, "Author:      %s\n", library.BookAuthor(b))
	fmt.Fprintf(w, "ISBN:        %s\n", library.BookISBN(b))
	if b.Category != "" {
		fmt.Fprintf(w, "Category:    %s\n", b.Category)
	}
	if b.Publisher != "" {
		fmt.Fprintf(w, "Publisher:   %s\n", b.Publisher)
	}
	if b.PublishedYear != 0 {
		fmt.Fprintf(w, "Published:   %d\n", b.PublishedYear)
	}
	fmt.Fprintf(w, "Copies:      %d of %d on the shelf\n", b.AvailableCopies, b.TotalCopies)
	fmt.Fprintf(w, "Lendable:    %s\n", yesNo(library.CanLend(*b)))
	if b.Description != "" {
		fmt.Fprintf(w, "\n%s\n", b.Description)
	}
}

func printUsers(w io.Writer, users []library.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No members registered.")
		return
	}
	fmt.Fprintf(w, "%-6s %-16s %-26s %-28s %-10s %s\n", "ID", "Username", "Name", "Email", "Role", "Loans")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for i := range users {
		u := &users[i]
		fmt.Fprintf(w, "%-6s %-16s %-26s %-28s %-10s %d\n",
			u.ID,
			truncateString(u.Username, 16),
			truncateString(library.UserFullName(u), 26),
			truncateString(library.UserEmail(u), 28),
			u.Role,
			u.ActiveLoansCount)
	}
}

func printUser(w io.Writer, u *library.User) {
	fmt.Fprintf(w, "ID:        %s\n", u.ID)
	fmt.Fprintf(w, "Username:  %s\n", u.Username)
	fmt.Fprintf(w, "Name:      %s\n", library.UserFullName(u))
	fmt.Fprintf(w, "Email:     %s\n", library.UserEmail(u))
	fmt.Fprintf(w, "Role:      %s\n", u.Role)
	if !u.CreatedDate.IsZero() {
		fmt.Fprintf(w, "Joined:    %s\n", formatDate(u.CreatedDate))
	}
}

func printLoans(w io.Writer, loans []library.Loan, now time.Time) {
	if len(loans) == 0 {
		fmt.Fprintln(w, "No loans found.")
		return
	}
	fmt.Fprintf(w, "%-6s %-30s %-22s %-10s %-10s %-9s %-5s %s\n", "ID", "Book", "Member", "Loaned", "Due", "Status", "Late", "Fine")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i := range loans {
		l := &loans[i]
		late := "-"
		if d := library.DaysOverdue(*l, now); d > 0 {
			late = fmt.Sprintf("%dd", d)
		}
		fine := "-"
		if l.Fine.IsPositive() {
			fine = l.Fine.StringFixed(2)
		}
		fmt.Fprintf(w, "%-6s %-30s %-22s %-10s %-10s %-9s %-5s %s\n",
			l.ID,
			truncateString(library.LoanBookTitle(l), 30),
			truncateString(library.LoanMemberName(l), 22),
			formatDate(l.LoanDate),
			formatDate(l.DueDate),
			library.Status(*l, now),
			late,
			fine)
	}
}

func printLoan(w io.Writer, l *library.Loan, now time.Time) {
	fmt.Fprintf(w, "Loan:      %s\n", l.ID)
	fmt.Fprintf(w, "Book:      %s (ID: %s)\n", library.LoanBookTitle(l), l.BookID)
	fmt.Fprintf(w, "Member:    %s (ID: %s)\n", library.LoanMemberName(l), l.Borrower())
	fmt.Fprintf(w, "Loaned:    %s\n", formatDate(l.LoanDate))
	fmt.Fprintf(w, "Due:       %s\n", formatDate(l.DueDate))
	if l.Returned() {
		fmt.Fprintf(w, "Returned:  %s\n", formatDate(l.ReturnDate))
	}
	status := string(library.Status(*l, now))
	if d := library.DaysOverdue(*l, now); d > 0 {
		status = fmt.Sprintf("%s, %d days (%s)", status, d, library.SeverityFor(d))
	}
	fmt.Fprintf(w, "Status:    %s\n", status)
	if !l.Fine.IsZero() {
		fmt.Fprintf(w, "Fine:      %s\n", l.Fine.StringFixed(2))
	}
	if l.Notes != "" {
		fmt.Fprintf(w, "Notes:     %s\n", l.Notes)
	}
}

func printOverdue(w io.Writer, entries []library.OverdueEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No overdue loans.")
		return
	}
	c := library.CountSeverities(entries)
	fmt.Fprintf(w, "%d overdue: %d mild, %d moderate, %d severe\n\n", len(entries), c.Mild, c.Moderate, c.Severe)
	fmt.Fprintf(w, "%-6s %-32s %-24s %-10s %-6s %s\n", "ID", "Book", "Member", "Due", "Days", "Severity")
	fmt.Fprintln(w, strings.Repeat("-", 95))
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(w, "%-6s %-32s %-24s %-10s %-6d %s\n",
			e.Loan.ID,
			truncateString(library.LoanBookTitle(&e.Loan), 32),
			truncateString(library.LoanMemberName(&e.Loan), 24),
			formatDate(e.Loan.DueDate),
			e.DaysOverdue,
			e.Severity)
	}
}

func printStats(w io.Writer, s library.Statistics) {
	fmt.Fprintf(w, "%-20s %d\n", "Total books:", s.TotalBooks)
	fmt.Fprintf(w, "%-20s %d\n", "Available books:", s.AvailableBooks)
	fmt.Fprintf(w, "%-20s %d\n", "Total users:", s.TotalUsers)
	fmt.Fprintf(w, "%-20s %d\n", "Members:", s.TotalMembers)
	fmt.Fprintf(w, "%-20s %d\n", "Total loans:", s.TotalLoans)
	fmt.Fprintf(w, "%-20s %d\n", "Active loans:", s.ActiveLoans)
	fmt.Fprintf(w, "%-20s %d\n", "Overdue loans:", s.OverdueLoans)
	fmt.Fprintf(w, "%-20s %d\n", "Returned loans:", s.ReturnedLoans)
	fmt.Fprintf(w, "%-20s %s\n", "Outstanding fines:", s.OutstandingFines.StringFixed(2))
}

func printProbes(w io.Writer, baseURL string, results []client.ProbeResult) {
	fmt.Fprintf(w, "Checking %s\n", baseURL)
	fmt.Fprintf(w, "%-18s %-7s %-10s %s\n", "Endpoint", "Status", "Latency", "Result")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range results {
		result := "OK"
		if !r.OK() {
			result = r.Err.Error()
		}
		status := "-"
		if r.Status != 0 {
			status = fmt.Sprint(r.Status)
		}
		fmt.Fprintf(w, "%-18s %-7s %-10s %s\n", r.Path, status, r.Latency.Round(time.Millisecond), result)
	}
}
