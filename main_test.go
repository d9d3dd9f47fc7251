package main

import (
	"bufio"
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"library-client/client"
	"library-client/library"
	"library-client/mockapi"
	"library-client/report"
)

// setupCLI starts a mock API with a librarian, a member, two books and one
// loan that is ten days late, and points the CLI's configuration at it.
func setupCLI(t *testing.T) *mockapi.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := mockapi.New()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("LIBRARY_CONFIG", "")
	t.Setenv("LIBRARY_API_URL", ts.URL+"/api")
	t.Setenv("LIBRARY_ENV", "production")
	t.Setenv("LIBRARY_LOG_LEVEL", "error")
	t.Setenv("LIBRARY_SESSION_BACKEND", "sqlite")
	t.Setenv("LIBRARY_SESSION_PATH", filepath.Join(home, "session.db"))
	t.Setenv("LIBRARY_SESSION_KEY", "")

	_, err := srv.AddUser(library.User{
		Username: "librarian", Email: "lib@example.com",
		FirstName: "Lena", LastName: "Reed", Role: library.RoleLibrarian,
	}, "secret1")
	require.NoError(t, err)
	member, err := srv.AddUser(library.User{
		Username: "mia", Email: "mia@example.com", FirstName: "Mia", LastName: "Wong",
	}, "secret2")
	require.NoError(t, err)

	srv.AddBook(library.Book{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", TotalCopies: 2})
	late := srv.AddBook(library.Book{Title: "Emma", Author: "Jane Austen", TotalCopies: 1})
	// two hours inside the tenth day so rounding up stays at 10
	due := time.Now().AddDate(0, 0, -10).Add(2 * time.Hour)
	srv.AddLoan(library.Loan{
		BookID:   late.ID,
		UserID:   member.ID,
		LoanDate: library.NewTimestamp(due.AddDate(0, 0, -14)),
		DueDate:  library.NewTimestamp(due),
	})
	return srv
}

// runCLI executes one command line the way main does.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	require.NoError(t, a.close())
	return out.String(), err
}

func login(t *testing.T) {
	t.Helper()
	out, err := runCLI(t, "login", "-u", "librarian", "-p", "secret1")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as Lena Reed (LIBRARIAN)")
}

func TestCLIRequiresLogin(t *testing.T) {
	setupCLI(t)

	_, err := runCLI(t, "books", "list")
	require.Error(t, err)
	assert.True(t, client.IsUnauthorized(err))
}

func TestCLIBooks(t *testing.T) {
	setupCLI(t)
	login(t)

	out, err := runCLI(t, "books", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Emma")

	out, err = runCLI(t, "books", "add", "--title", "Beloved", "--author", "Toni Morrison",
		"--isbn", "978-1-4000-3341-6", "--copies", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Added book 'Beloved'")

	out, err = runCLI(t, "books", "search", "belov")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 book(s) matching 'belov'")

	_, err = runCLI(t, "books", "add", "--title", "", "--author", "Nobody")
	require.Error(t, err)
	assert.True(t, library.IsValidationError(err))
}

func TestCLILoanLifecycle(t *testing.T) {
	setupCLI(t)
	login(t)

	// user 2 is the member, book 3 is Dune
	out, err := runCLI(t, "loans", "create", "--book", "3", "--member", "2", "--notes", "gift edition")
	require.NoError(t, err)
	assert.Contains(t, out, "'Dune' lent to Mia Wong")

	out, err = runCLI(t, "loans", "list", "--status", "active")
	require.NoError(t, err)
	assert.Contains(t, out, "Dune")
	assert.NotContains(t, out, "Emma")

	out, err = runCLI(t, "loans", "list", "--status", "overdue")
	require.NoError(t, err)
	assert.Contains(t, out, "Emma")
	assert.Contains(t, out, "10d")

	out, err = runCLI(t, "loans", "return", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "'Emma' returned by Mia Wong")
	assert.Contains(t, out, "fine of 5.00")

	out, err = runCLI(t, "loans", "pay-fine", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Fine on loan 5 paid")

	_, err = runCLI(t, "loans", "return", "5")
	require.ErrorIs(t, err, library.ErrLoanReturned)

	_, err = runCLI(t, "loans", "list", "--status", "lost")
	require.Error(t, err)
}

func TestCLIOverdueExport(t *testing.T) {
	setupCLI(t)
	login(t)

	path := filepath.Join(t.TempDir(), "overdue.xlsx")
	out, err := runCLI(t, "loans", "overdue", "--severity", "moderate", "--xlsx", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 overdue: 0 mild, 1 moderate, 0 severe")
	assert.Contains(t, out, "Report written to")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.OverdueSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Emma", rows[1][1])

	out, err = runCLI(t, "loans", "overdue", "--severity", "severe")
	require.NoError(t, err)
	assert.Contains(t, out, "No overdue loans.")
}

func TestCLIStats(t *testing.T) {
	setupCLI(t)
	login(t)

	out, err := runCLI(t, "stats")
	require.NoError(t, err)
	assert.Regexp(t, `Total books:\s+2\n`, out)
	assert.Regexp(t, `Overdue loans:\s+1\n`, out)
	assert.Regexp(t, `Members:\s+1\n`, out)
	assert.Regexp(t, `Outstanding fines:\s+0\.00\n`, out)
}

func TestCLILogoutDropsSession(t *testing.T) {
	setupCLI(t)
	login(t)

	out, err := runCLI(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "librarian")

	_, err = runCLI(t, "logout")
	require.NoError(t, err)

	out, err = runCLI(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")

	_, err = runCLI(t, "members", "list")
	assert.True(t, client.IsUnauthorized(err))
}

func TestShellSession(t *testing.T) {
	setupCLI(t)
	login(t)

	root, a := newRootCmd()
	defer a.close()
	root.SetArgs([]string{"shell"})
	root.SetIn(strings.NewReader("list books\ncheckout\n3\n2\n\n\nbogus\nexit\n"))
	var out bytes.Buffer
	root.SetOut(&out)
	require.NoError(t, root.ExecuteContext(context.Background()))

	text := out.String()
	assert.Contains(t, text, "Welcome to the Library Management System!")
	assert.Contains(t, text, "Dune")
	assert.Contains(t, text, "Book 'Dune' checked out to Mia Wong")
	assert.Contains(t, text, "Unknown command.")
	assert.Contains(t, text, "Goodbye!")
}

func TestShellAddMemberUsesPasswordPrompt(t *testing.T) {
	setupCLI(t)
	login(t)

	a := &app{}
	require.NoError(t, a.open(context.Background(), "", "", false))
	defer a.close()

	var out bytes.Buffer
	sh := &shell{
		app: a,
		sc:  bufio.NewScanner(strings.NewReader("add member\nnoah\nNoah\nKim\nnoah@example.com\nexit\n")),
		out: &out,
		password: func(string) (string, error) {
			return "hunter22", nil
		},
	}
	require.NoError(t, sh.run(context.Background()))
	assert.Contains(t, out.String(), "Added member 'Noah Kim'")
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"The Left Hand of Darkness", 12, "The Left ..."},
		{"Über Straße", 6, "Übe..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncateString(tt.in, tt.max), tt.in)
	}
}

func TestPrintLoansShowsDerivedStatus(t *testing.T) {
	now := time.Date(2024, time.July, 15, 10, 0, 0, 0, time.Local)
	loans := []library.Loan{
		{ID: "1", BookTitle: "Dune", UserFullName: "Mia Wong",
			LoanDate: library.NewTimestamp(now.AddDate(0, 0, -20)),
			DueDate:  library.NewTimestamp(now.AddDate(0, 0, -3)),
			BackendStatus: "ACTIVE"},
		{ID: "2", BookTitle: "Emma", UserFullName: "Noah Kim",
			DueDate:    library.NewTimestamp(now.AddDate(0, 0, -3)),
			ReturnDate: library.NewTimestamp(now.AddDate(0, 0, -1)),
			Fine:       decimal.RequireFromString("1.50")},
	}
	var out bytes.Buffer
	printLoans(&out, loans, now)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "overdue")
	assert.Contains(t, lines[2], "3d")
	assert.Contains(t, lines[3], "returned")
	assert.Contains(t, lines[3], "1.50")

	out.Reset()
	printLoans(&out, nil, now)
	assert.Equal(t, "No loans found.\n", out.String())
}

func TestWriteOverdueFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, writeOverdueFile(path, nil, time.Now()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
