package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrBookUnavailable is returned when a loan is requested for a book with
	// no copy on the shelf.
	ErrBookUnavailable = errors.New("book is not available for loan")

	// ErrLoanNotFound is returned when a loan id does not match any loan.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrLoanReturned is returned when returning or renewing a loan that is
	// already closed.
	ErrLoanReturned = errors.New("loan has already been returned")
)

// Backend is the subset of the REST API the loan workflows depend on.
type Backend interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id ID) (*Book, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListLoans(ctx context.Context) ([]Loan, error)
	ListActiveLoans(ctx context.Context) ([]Loan, error)
	ListOverdueLoans(ctx context.Context) ([]Loan, error)
	GetLoan(ctx context.Context, id ID) (*Loan, error)
	CreateLoan(ctx context.Context, req LoanRequest) (*Loan, error)
	ReturnLoan(ctx context.Context, id ID) (*Loan, error)
	RenewLoan(ctx context.Context, id ID, dueDate string) (*Loan, error)
	PayFine(ctx context.Context, id ID) (*Loan, error)
}

// LibraryManager is a thin façade over the backend, keeping CLI code simple.
// It validates before mutating and derives every status through Status.
type LibraryManager struct {
	backend Backend
	now     func() time.Time
}

// ManagerOption customizes a LibraryManager.
type ManagerOption func(*LibraryManager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(lm *LibraryManager) { lm.now = now }
}

// NewLibraryManager wraps backend.
func NewLibraryManager(backend Backend, opts ...ManagerOption) *LibraryManager {
	lm := &LibraryManager{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(lm)
	}
	return lm
}

// Now returns the manager's notion of the current time.
func (lm *LibraryManager) Now() time.Time { return lm.now() }

// ------------------ Loans ------------------

// Loans lists all loans matching f, ordered by key.
func (lm *LibraryManager) Loans(ctx context.Context, f LoanFilter, key SortKey, descending bool) ([]Loan, error) {
	loans, err := lm.backend.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	out := FilterLoans(loans, f, lm.now())
	SortLoans(out, key, descending)
	return out, nil
}

// ActiveLoans asks the backend for active loans and falls back to deriving
// them from the full list when that endpoint fails.
func (lm *LibraryManager) ActiveLoans(ctx context.Context) ([]Loan, error) {
	now := lm.now()
	loans, err := lm.backend.ListActiveLoans(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("active loans endpoint failed, filtering all loans")
		all, err := lm.backend.ListLoans(ctx)
		if err != nil {
			return nil, err
		}
		loans = all
	}
	// The backend's notion of "active" may include overdue loans; keep only
	// what the status engine calls unreturned.
	out := make([]Loan, 0, len(loans))
	for _, l := range loans {
		if Status(l, now) != StatusReturned {
			out = append(out, l)
		}
	}
	return out, nil
}

// OverdueReport lists overdue loans with days overdue and severity, most
// overdue first. It uses the overdue endpoint when it works and otherwise
// derives the list from active loans.
func (lm *LibraryManager) OverdueReport(ctx context.Context) ([]OverdueEntry, error) {
	loans, err := lm.backend.ListOverdueLoans(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("overdue loans endpoint failed, deriving from active loans")
		loans, err = lm.ActiveLoans(ctx)
		if err != nil {
			return nil, err
		}
	}
	return OverdueEntries(loans, lm.now()), nil
}

// CreateLoan validates req, confirms the book can be lent and creates the
// loan. Validation failures return a *ValidationError without touching the
// network.
func (lm *LibraryManager) CreateLoan(ctx context.Context, req LoanRequest) (*Loan, error) {
	if err := ValidateLoanRequest(req, lm.now()).Err(); err != nil {
		return nil, err
	}
	book, err := lm.backend.GetBook(ctx, req.BookID)
	if err != nil {
		return nil, fmt.Errorf("fetch book %s: %w", req.BookID, err)
	}
	if !CanLend(*book) {
		return nil, fmt.Errorf("%q: %w", book.Title, ErrBookUnavailable)
	}
	loan, err := lm.backend.CreateLoan(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info().Str("loan_id", loan.ID.String()).Str("book_id", req.BookID.String()).
		Str("member_id", req.Borrower().String()).Msg("loan created")
	return loan, nil
}

// openLoan fetches a loan and refuses closed ones.
func (lm *LibraryManager) openLoan(ctx context.Context, id ID) (*Loan, error) {
	if id == "" {
		return nil, ErrLoanNotFound
	}
	loan, err := lm.backend.GetLoan(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.Returned() {
		return nil, fmt.Errorf("loan %s: %w", id, ErrLoanReturned)
	}
	return loan, nil
}

// ReturnLoan records the return of an open loan.
func (lm *LibraryManager) ReturnLoan(ctx context.Context, id ID) (*Loan, error) {
	if _, err := lm.openLoan(ctx, id); err != nil {
		return nil, err
	}
	return lm.backend.ReturnLoan(ctx, id)
}

// RenewLoan moves the due date of an open loan.
func (lm *LibraryManager) RenewLoan(ctx context.Context, id ID, dueDate string) (*Loan, error) {
	if err := ValidateRenewal(dueDate, lm.now()).Err(); err != nil {
		return nil, err
	}
	if _, err := lm.openLoan(ctx, id); err != nil {
		return nil, err
	}
	return lm.backend.RenewLoan(ctx, id, dueDate)
}

// PayFine settles the fine recorded on a loan.
func (lm *LibraryManager) PayFine(ctx context.Context, id ID) (*Loan, error) {
	if id == "" {
		return nil, ErrLoanNotFound
	}
	return lm.backend.PayFine(ctx, id)
}

// ------------------ Statistics ------------------

// Statistics fetches loans, books and users concurrently and aggregates
// them. A collection whose fetch fails counts as empty; partial figures are
// preferred over none.
func (lm *LibraryManager) Statistics(ctx context.Context) Statistics {
	var (
		loans []Loan
		books []Book
		users []User
		g     errgroup.Group
	)
	g.Go(func() error {
		var err error
		if loans, err = lm.backend.ListLoans(ctx); err != nil {
			log.Warn().Err(err).Msg("statistics: loans unavailable")
			loans = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if books, err = lm.backend.ListBooks(ctx); err != nil {
			log.Warn().Err(err).Msg("statistics: books unavailable")
			books = nil
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if users, err = lm.backend.ListUsers(ctx); err != nil {
			log.Warn().Err(err).Msg("statistics: users unavailable")
			users = nil
		}
		return nil
	})
	_ = g.Wait()
	return ComputeStatistics(loans, books, users, lm.now())
}
