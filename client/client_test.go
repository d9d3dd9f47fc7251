package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-client/library"
	"library-client/mockapi"
	"library-client/session"
)

var fixedNow = time.Date(2024, time.July, 15, 10, 0, 0, 0, time.Local)

func newTestServer(t *testing.T, opts ...mockapi.Option) (*mockapi.Server, *Client, *session.Session) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := mockapi.New(append([]mockapi.Option{mockapi.WithClock(func() time.Time { return fixedNow })}, opts...)...)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	sess := session.New(session.NewMemoryStore())
	c := New(ts.URL+"/api", time.Second, sess, WithLogger(zerolog.Nop()))
	return srv, c, sess
}

func signIn(t *testing.T, srv *mockapi.Server, c *Client) library.User {
	t.Helper()
	u, err := srv.AddUser(library.User{
		Username: "librarian", Email: "lib@example.com",
		FirstName: "Lena", LastName: "Reed", Role: library.RoleLibrarian,
	}, "secret1")
	require.NoError(t, err)
	_, err = c.Login(context.Background(), Credentials{Username: "librarian", Password: "secret1"})
	require.NoError(t, err)
	return u
}

func TestLoginStoresSession(t *testing.T) {
	ctx := context.Background()
	srv, c, sess := newTestServer(t)
	signIn(t, srv, c)

	assert.True(t, sess.Active(ctx))
	profile, err := sess.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "librarian", profile.Username)
	assert.Equal(t, library.RoleLibrarian, profile.Role)

	srv.AddBook(library.Book{Title: "Dune", Author: "Frank Herbert", TotalCopies: 2})
	books, err := c.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
	assert.True(t, library.CanLend(books[0]))
}

func TestLoginWrongPassword(t *testing.T) {
	srv, c, sess := newTestServer(t)
	_, err := srv.AddUser(library.User{Username: "bob", Email: "bob@example.com", FirstName: "Bob", LastName: "Stone"}, "secret1")
	require.NoError(t, err)

	_, err = c.Login(context.Background(), Credentials{Username: "bob", Password: "nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.EqualError(t, err, "invalid username or password")
	assert.False(t, sess.Active(context.Background()))
}

func TestLoginAfterSessionKeyChange(t *testing.T) {
	ctx := context.Background()
	srv, c, _ := newTestServer(t)
	signIn(t, srv, c)

	inner := session.NewMemoryStore()
	old, err := session.NewSealedStore(inner, "old-key")
	require.NoError(t, err)
	require.NoError(t, session.New(old).Start(ctx, "stale", nil))

	rekeyed, err := session.NewSealedStore(inner, "new-key")
	require.NoError(t, err)
	sess := session.New(rekeyed)
	c2 := New(c.BaseURL(), time.Second, sess, WithLogger(zerolog.Nop()))

	_, err = c2.Login(ctx, Credentials{Username: "librarian", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, sess.Active(ctx))
}

func TestAnonymousRequestKeepsBackendMessage(t *testing.T) {
	_, c, _ := newTestServer(t)

	_, err := c.ListBooks(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "missing Authorization header", apiErr.Message)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	ctx := context.Background()
	_, c, sess := newTestServer(t)
	require.NoError(t, sess.Start(ctx, "not-a-jwt", &library.User{Username: "ghost"}))

	_, err := c.ListLoans(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, reloginMessage, apiErr.Message)

	assert.False(t, sess.Active(ctx))
	profile, err := sess.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestForbiddenClearsSession(t *testing.T) {
	ctx := context.Background()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(ts.Close)
	sess := session.New(session.NewMemoryStore())
	require.NoError(t, sess.Start(ctx, "tok", nil))

	c := New(ts.URL, time.Second, sess, WithLogger(zerolog.Nop()))
	err := c.Get(ctx, "/books", nil)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.False(t, sess.Active(ctx))
}

func TestRequestHeaders(t *testing.T) {
	ctx := context.Background()
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "[]")
	}))
	t.Cleanup(ts.Close)

	sess := session.New(session.NewMemoryStore())
	c := New(ts.URL, time.Second, sess, WithLogger(zerolog.Nop()))

	_, err := c.ListBooks(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.Get("Authorization"))
	assert.NotEmpty(t, got.Get("X-Request-ID"))

	require.NoError(t, sess.Start(ctx, "abc", nil))
	_, err = c.ListBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
}

func TestCreateLoanPayload(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/loans/create", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id": 9, "bookId": 3, "userId": 4, "dueDate": "2024-03-20T00:00:00"}`)
	}))
	t.Cleanup(ts.Close)
	c := New(ts.URL, time.Second, nil, WithLogger(zerolog.Nop()))

	loan, err := c.CreateLoan(context.Background(), library.LoanRequest{BookID: "3", MemberID: "4", DueDate: "2024-03-20"})
	require.NoError(t, err)
	assert.Equal(t, library.ID("9"), loan.ID)

	assert.EqualValues(t, 3, body["bookId"])
	assert.EqualValues(t, 4, body["userId"])
	assert.Equal(t, "2024-03-20T00:00:00", body["dueDate"])
	notes, present := body["notes"]
	assert.True(t, present)
	assert.Nil(t, notes)
}

func TestFormatDueDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "bare date", in: "2024-03-20", want: "2024-03-20T00:00:00"},
		{name: "already timestamped", in: "2024-03-20T12:30:00", want: "2024-03-20T12:30:00"},
		{name: "trims", in: " 2024-03-20 ", want: "2024-03-20T00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDueDate(tt.in))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "message field", status: 400, body: `{"message":"bad due date","error":"Bad Request"}`, want: "bad due date"},
		{name: "error field", status: 409, body: `{"error":"conflict"}`, want: "conflict"},
		{name: "plain text", status: 500, body: "boom", want: "boom"},
		{name: "empty body", status: 502, body: "", want: "HTTP 502: Bad Gateway"},
		{name: "json without message", status: 500, body: `{"code":1}`, want: "HTTP 500: Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage(tt.status, []byte(tt.body)))
		})
	}
}

func TestNotFound(t *testing.T) {
	srv, c, _ := newTestServer(t)
	signIn(t, srv, c)

	_, err := c.GetBook(context.Background(), "999")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.EqualError(t, err, "book not found")
}

func TestBookAndUserCRUD(t *testing.T) {
	ctx := context.Background()
	srv, c, _ := newTestServer(t)
	signIn(t, srv, c)

	book, err := c.CreateBook(ctx, library.BookRequest{
		Title: "Neuromancer", Author: "William Gibson", ISBN: "978-0441569595",
		Category: "Sci-Fi", TotalCopies: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, book.AvailableCopies)

	_, err = c.CreateBook(ctx, library.BookRequest{Author: "Nobody", TotalCopies: 1})
	require.Error(t, err)
	assert.True(t, library.IsValidationError(err))

	found, err := c.SearchBooks(ctx, "neuro")
	require.NoError(t, err)
	require.Len(t, found, 1)

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sci-Fi"}, cats)

	byCat, err := c.BooksByCategory(ctx, "Sci-Fi")
	require.NoError(t, err)
	assert.Len(t, byCat, 1)

	updated, err := c.UpdateBook(ctx, book.ID, library.BookRequest{Title: "Neuromancer", Author: "William Gibson", TotalCopies: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.TotalCopies)

	member, err := c.CreateUser(ctx, library.UserRequest{
		Username: "mia", Email: "mia@example.com", Password: "hunter22",
		FirstName: "Mia", LastName: "Wong", Role: library.RoleMember,
	})
	require.NoError(t, err)
	assert.Equal(t, "Mia Wong", library.UserFullName(member))

	members, err := c.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "mia", members[0].Username)

	promoted, err := c.ChangeRole(ctx, member.ID, library.RoleLibrarian)
	require.NoError(t, err)
	assert.Equal(t, library.RoleLibrarian, promoted.Role)

	_, err = c.ChangeRole(ctx, member.ID, "JANITOR")
	assert.True(t, library.IsValidationError(err))

	stats, err := c.UserStatistics(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats["totalUsers"])

	require.NoError(t, c.DeleteUser(ctx, member.ID))
	require.NoError(t, c.DeleteBook(ctx, book.ID))
	_, err = c.GetBook(ctx, book.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestLoanLifecycle(t *testing.T) {
	ctx := context.Background()
	srv, c, _ := newTestServer(t)
	signIn(t, srv, c)
	lm := library.NewLibraryManager(c, library.WithClock(func() time.Time { return fixedNow }))

	book := srv.AddBook(library.Book{Title: "Emma", Author: "Jane Austen", TotalCopies: 1})
	member, err := srv.AddUser(library.User{Username: "sam", Email: "sam@example.com", FirstName: "Sam", LastName: "Hill"}, "secret1")
	require.NoError(t, err)

	loan, err := lm.CreateLoan(ctx, library.LoanRequest{BookID: book.ID, MemberID: member.ID, DueDate: "2024-07-29", Notes: "gift wrap"})
	require.NoError(t, err)
	assert.Equal(t, "Emma", library.LoanBookTitle(loan))
	assert.Equal(t, "Sam Hill", library.LoanMemberName(loan))
	assert.Equal(t, library.StatusActive, library.Status(*loan, fixedNow))

	_, err = lm.CreateLoan(ctx, library.LoanRequest{BookID: book.ID, MemberID: member.ID, DueDate: "2024-07-29"})
	assert.True(t, errors.Is(err, library.ErrBookUnavailable))

	renewed, err := lm.RenewLoan(ctx, loan.ID, "2024-08-05")
	require.NoError(t, err)
	assert.Equal(t, 5, renewed.DueDate.Day())

	returned, err := lm.ReturnLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, library.StatusReturned, library.Status(*returned, fixedNow))
	assert.True(t, returned.Fine.IsZero())

	_, err = lm.ReturnLoan(ctx, loan.ID)
	assert.True(t, errors.Is(err, library.ErrLoanReturned))
}

func TestLateReturnChargesFine(t *testing.T) {
	ctx := context.Background()
	srv, c, _ := newTestServer(t)
	signIn(t, srv, c)
	lm := library.NewLibraryManager(c, library.WithClock(func() time.Time { return fixedNow }))

	book := srv.AddBook(library.Book{Title: "Ulysses", Author: "James Joyce", TotalCopies: 1})
	member, err := srv.AddUser(library.User{Username: "kim", Email: "kim@example.com", FirstName: "Kim", LastName: "Lee"}, "secret1")
	require.NoError(t, err)
	late := srv.AddLoan(library.Loan{
		BookID:   book.ID,
		UserID:   member.ID,
		LoanDate: library.NewTimestamp(fixedNow.AddDate(0, 0, -24)),
		DueDate:  library.NewTimestamp(fixedNow.AddDate(0, 0, -10)),
	})

	returned, err := lm.ReturnLoan(ctx, late.ID)
	require.NoError(t, err)
	assert.True(t, returned.Fine.Equal(decimal.RequireFromString("5.00")), "fine was %s", returned.Fine)

	stats := lm.Statistics(ctx)
	assert.True(t, stats.OutstandingFines.Equal(decimal.RequireFromString("5")))
	assert.Equal(t, 1, stats.ReturnedLoans)

	paid, err := lm.PayFine(ctx, late.ID)
	require.NoError(t, err)
	assert.True(t, paid.Fine.IsZero())

	_, err = lm.PayFine(ctx, late.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestOverdueFallsBackWhenEndpointsFail(t *testing.T) {
	ctx := context.Background()
	srv, c, _ := newTestServer(t,
		mockapi.WithFailingPath("/loans/overdue"),
		mockapi.WithFailingPath("/loans/active"),
	)
	signIn(t, srv, c)
	lm := library.NewLibraryManager(c, library.WithClock(func() time.Time { return fixedNow }))

	book := srv.AddBook(library.Book{Title: "Beloved", Author: "Toni Morrison", TotalCopies: 3})
	member, err := srv.AddUser(library.User{Username: "ana", Email: "ana@example.com", FirstName: "Ana", LastName: "Diaz"}, "secret1")
	require.NoError(t, err)
	srv.AddLoan(library.Loan{BookID: book.ID, UserID: member.ID, DueDate: library.NewTimestamp(fixedNow.AddDate(0, 0, -40))})
	srv.AddLoan(library.Loan{BookID: book.ID, UserID: member.ID, DueDate: library.NewTimestamp(fixedNow.AddDate(0, 0, -3))})
	srv.AddLoan(library.Loan{BookID: book.ID, UserID: member.ID, DueDate: library.NewTimestamp(fixedNow.AddDate(0, 0, 3))})

	entries, err := lm.OverdueReport(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 40, entries[0].DaysOverdue)
	assert.Equal(t, library.SeveritySevere, entries[0].Severity)
	assert.Equal(t, 3, entries[1].DaysOverdue)
	assert.Equal(t, library.SeverityMild, entries[1].Severity)

	active, err := lm.ActiveLoans(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestPing(t *testing.T) {
	srv, c, _ := newTestServer(t, mockapi.WithFailingPath("/loans/overdue"))
	signIn(t, srv, c)

	results := c.Ping(context.Background())
	require.Len(t, results, len(PingPaths))
	for _, r := range results {
		if r.Path == "/loans/overdue" {
			assert.False(t, r.OK())
			assert.Equal(t, http.StatusInternalServerError, r.Status)
			continue
		}
		assert.True(t, r.OK(), r.Path)
		assert.Equal(t, http.StatusOK, r.Status)
	}
}

func TestValidateAndRefresh(t *testing.T) {
	ctx := context.Background()
	srv, c, sess := newTestServer(t)
	signIn(t, srv, c)

	ok, err := c.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	resp, err := c.Refresh(ctx)
	require.NoError(t, err)
	tok, err := sess.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, resp.Token, tok)

	require.NoError(t, sess.Start(ctx, "garbage", nil))
	ok, err = c.Validate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, sess.Active(ctx))
}

func TestRegisterSignsIn(t *testing.T) {
	ctx := context.Background()
	_, c, sess := newTestServer(t)

	resp, err := c.Register(ctx, library.UserRequest{
		Username: "newbie", Email: "newbie@example.com", Password: "secret1",
		FirstName: "New", LastName: "Bie",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.True(t, sess.Active(ctx))
	require.NoError(t, c.Logout(ctx))
	assert.False(t, sess.Active(ctx))
}
