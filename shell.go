package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-client/client"
	"library-client/library"
)

const shellHelp = `Available commands:
  Books: list books, available books, search book, show book, add book
  Members: list members, search member, add member
  Circulation: checkout, return, renew, pay fine, list loans, overdue
  Session: login, logout, whoami, ping, stats
  System: help, exit`

// shell is the interactive front end. Every handler prompts on out and reads
// answers line by line from sc.
type shell struct {
	app      *app
	sc       *bufio.Scanner
	out      io.Writer
	password func(prompt string) (string, error)
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sh := &shell{
				app:      a,
				sc:       bufio.NewScanner(cmd.InOrStdin()),
				out:      cmd.OutOrStdout(),
				password: readPassword,
			}
			return sh.run(cmd.Context())
		},
	}
}

func (sh *shell) printf(format string, args ...any) { fmt.Fprintf(sh.out, format, args...) }
func (sh *shell) println(args ...any)               { fmt.Fprintln(sh.out, args...) }

// ask prompts and returns the trimmed answer; ok is false once input ends.
func (sh *shell) ask(prompt string) (string, bool) {
	sh.printf("%s", prompt)
	if !sh.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.sc.Text()), true
}

func (sh *shell) run(ctx context.Context) error {
	sh.println("Welcome to the Library Management System!")
	sh.println(shellHelp)

	for {
		sh.printf("\n> ")
		if !sh.sc.Scan() {
			break
		}
		cmd := strings.TrimSpace(sh.sc.Text())

		switch cmd {
		case "":
		case "list books":
			sh.handleListBooks(ctx)
		case "available books":
			sh.handleAvailableBooks(ctx)
		case "search book":
			sh.handleSearchBooks(ctx)
		case "show book":
			sh.handleShowBook(ctx)
		case "add book":
			sh.handleAddBook(ctx)
		case "list members":
			sh.handleListMembers(ctx)
		case "search member":
			sh.handleSearchMembers(ctx)
		case "add member":
			sh.handleAddMember(ctx)
		case "checkout":
			sh.handleCheckout(ctx)
		case "return":
			sh.handleReturn(ctx)
		case "renew":
			sh.handleRenew(ctx)
		case "pay fine":
			sh.handlePayFine(ctx)
		case "list loans":
			sh.handleListLoans(ctx)
		case "overdue":
			sh.handleOverdue(ctx)
		case "stats":
			printStats(sh.out, sh.app.manager.Statistics(ctx))
		case "login":
			sh.handleLogin(ctx)
		case "logout":
			sh.handleLogout(ctx)
		case "whoami":
			sh.handleWhoami(ctx)
		case "ping":
			printProbes(sh.out, sh.app.api.BaseURL(), sh.app.api.Ping(ctx))
		case "help":
			sh.println(shellHelp)
		case "exit", "quit":
			sh.println("Goodbye!")
			return nil
		default:
			sh.println("Unknown command. Type 'help' to see the available commands.")
		}
	}
	return sh.sc.Err()
}

// report prints err, adding a hint when the session has been dropped.
func (sh *shell) report(err error) {
	sh.printf("Error: %v\n", err)
	if client.IsUnauthorized(err) {
		sh.println("Use 'login' to sign in again.")
	}
}

func (sh *shell) handleListBooks(ctx context.Context) {
	books, err := sh.app.api.ListBooks(ctx)
	if err != nil {
		sh.report(err)
		return
	}
	library.SortBooks(books)
	printBooks(sh.out, books)
}

func (sh *shell) handleAvailableBooks(ctx context.Context) {
	books, err := sh.app.api.ListAvailableBooks(ctx)
	if err != nil {
		sh.report(err)
		return
	}
	library.SortBooks(books)
	printBooks(sh.out, books)
}

func (sh *shell) handleSearchBooks(ctx context.Context) {
	query, ok := sh.ask("Search query: ")
	if !ok {
		return
	}
	if query == "" {
		sh.println("Error: Search query cannot be empty")
		return
	}
	books, err := sh.app.api.SearchBooks(ctx, query)
	if err != nil {
		sh.report(err)
		return
	}
	if len(books) == 0 {
		sh.printf("No books found matching '%s'.\n", query)
		return
	}
	sh.printf("Found %d book(s) matching '%s':\n", len(books), query)
	printBooks(sh.out, books)
}

func (sh *shell) handleShowBook(ctx context.Context) {
	id, ok := sh.ask("Book ID: ")
	if !ok {
		return
	}
	b, err := sh.app.api.GetBook(ctx, library.ID(id))
	if err != nil {
		sh.report(err)
		return
	}
	printBook(sh.out, b)
}

func (sh *shell) handleAddBook(ctx context.Context) {
	var req library.BookRequest
	var ok bool
	if req.Title, ok = sh.ask("Title: "); !ok {
		return
	}
	if req.Author, ok = sh.ask("Author: "); !ok {
		return
	}
	if req.ISBN, ok = sh.ask("ISBN: "); !ok {
		return
	}
	if req.Category, ok = sh.ask("Category (optional): "); !ok {
		return
	}
	copies, ok := sh.ask("Copies [1]: ")
	if !ok {
		return
	}
	req.TotalCopies = 1
	if copies != "" {
		if _, err := fmt.Sscan(copies, &req.TotalCopies); err != nil {
			sh.printf("Invalid number of copies: %s\n", copies)
			return
		}
	}

	b, err := sh.app.api.CreateBook(ctx, req)
	if err != nil {
		sh.report(err)
		return
	}
	sh.printf("Added book '%s' with ID %s\n", b.Title, b.ID)
}

func (sh *shell) handleListMembers(ctx context.Context) {
	users, err := sh.app.api.ListMembers(ctx)
	if err != nil {
		sh.report(err)
		return
	}
	printUsers(sh.out, users)
}

func (sh *shell) handleSearchMembers(ctx context.Context) {
	query, ok := sh.ask("Search query: ")
	if !ok {
		return
	}
	users, err := sh.app.api.SearchUsers(ctx, query)
	if err != nil {
		sh.report(err)
		return
	}
	printUsers(sh.out, users)
}

func (sh *shell) handleAddMember(ctx context.Context) {
	req := library.UserRequest{Role: library.RoleMember}
	var ok bool
	if req.Username, ok = sh.ask("Username: "); !ok {
		return
	}
	if req.FirstName, ok = sh.ask("First name: "); !ok {
		return
	}
	if req.LastName, ok = sh.ask("Last name: "); !ok {
		return
	}
	if req.Email, ok = sh.ask("Email: "); !ok {
		return
	}

	password, err := sh.password(fmt.Sprintf("Enter password for %s: ", req.Username))
	if err != nil {
		sh.printf("Error reading password: %v\n", err)
		return
	}
	if password == "" {
		sh.println("Error: Password cannot be empty")
		return
	}
	req.Password = password

	u, err := sh.app.api.CreateUser(ctx, req)
	if err != nil {
		sh.report(err)
		return
	}
	sh.printf("Added member '%s' with ID %s\n", library.UserFullName(u), u.ID)
}

func (sh *shell) handleCheckout(ctx context.Context) {
	var req library.LoanRequest
	bookID, ok := sh.ask("Book ID: ")
	if !ok {
		return
	}
	memberID, ok := sh.ask("Member ID: ")
	if !ok {
		return
	}
	req.BookID, req.MemberID = library.ID(bookID), library.ID(memberID)

	def := defaultDueDate(sh.app.manager.Now())
	due, ok := sh.ask(fmt.Sprintf("Due date [%s]: ", def))
	if !ok {
		return
	}
	if due == "" {
		due = def
	}
	req.DueDate = due
	if req.Notes, ok = sh.ask("Notes (optional): "); !ok {
		return
	}

	l, err := sh.app.manager.CreateLoan(ctx, req)
	if err != nil {
		sh.report(err)
		return
	}
	sh.printf("Book '%s' checked out to %s, due %s\n",
		library.LoanBookTitle(l), library.LoanMemberName(l), formatDate(l.DueDate))
}

func (sh *shell) handleReturn(ctx context.Context) {
	id, ok := sh.ask("Loan ID: ")
	if !ok {
		return
	}
	l, err := sh.app.manager.ReturnLoan(ctx, library.ID(id))
	if err != nil {
		sh.report(err)
		return
	}
	sh.printf("Book '%s' returned\n", library.LoanBookTitle(l))
	if l.Fine.IsPositive() {
		sh.printf("Late return: fine of %s recorded\n", l.Fine.StringFixed(2))
	}
}

func (sh *shell) handleRenew(ctx context.Context) {
	id, ok := sh.ask("Loan ID: ")
	if !ok {
		return
	}
	due, ok := sh.ask("New due date (YYYY-MM-DD): ")
	if !ok {
		return
	}
	l, err := sh.app.manager.RenewLoan(ctx, library.ID(id), due)
	if err != nil {
		sh.report(err)
		return
	}
	sh.printf("Loan %s now due %s\n", l.ID, formatDate(l.DueDate))
}

func (sh *shell) handlePayFine(ctx context.Context) {
	id, ok := sh.ask("Loan ID: ")
	if !ok {
		return
	}
	l, err := sh.app.manager.PayFine(ctx, library.ID(id))
	if err != nil {
		sh.report(err)
		return
	}
	sh.printf("Fine on loan %s paid\n", l.ID)
}

func (sh *shell) handleListLoans(ctx context.Context) {
	answer, ok := sh.ask("Status (all, active, overdue, returned) [all]: ")
	if !ok {
		return
	}
	status, valid := library.ParseStatus(strings.ToLower(answer))
	if !valid {
		sh.printf("Unknown status: %s\n", answer)
		return
	}
	loans, err := sh.app.manager.Loans(ctx, library.LoanFilter{Status: status}, library.SortByDueDate, false)
	if err != nil {
		sh.report(err)
		return
	}
	printLoans(sh.out, loans, sh.app.manager.Now())
}

func (sh *shell) handleOverdue(ctx context.Context) {
	entries, err := sh.app.manager.OverdueReport(ctx)
	if err != nil {
		sh.report(err)
		return
	}
	printOverdue(sh.out, entries)
}

func (sh *shell) handleLogin(ctx context.Context) {
	username, ok := sh.ask("Username: ")
	if !ok {
		return
	}
	password, err := sh.password("Password: ")
	if err != nil {
		sh.printf("Error reading password: %v\n", err)
		return
	}
	resp, err := sh.app.api.Login(ctx, client.Credentials{Username: username, Password: password})
	if err != nil {
		sh.report(err)
		return
	}
	sh.printf("Logged in as %s (%s)\n", library.UserFullName(resp.Profile()), roleOf(resp.Profile()))
}

func (sh *shell) handleLogout(ctx context.Context) {
	if err := sh.app.api.Logout(ctx); err != nil {
		sh.report(err)
		return
	}
	sh.println("Logged out.")
}

func (sh *shell) handleWhoami(ctx context.Context) {
	profile, err := sh.app.sess.Profile(ctx)
	if err != nil {
		sh.report(err)
		return
	}
	if profile == nil {
		sh.println("Not logged in.")
		return
	}
	printUser(sh.out, profile)
}
