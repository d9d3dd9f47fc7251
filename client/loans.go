package client

import (
	"context"
	"net/url"
	"strings"

	"library-client/library"
)

// FormatDueDate appends a midnight time component to a bare date; values
// that already carry a time are sent unchanged.
func FormatDueDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "T") {
		return s
	}
	return s + "T00:00:00"
}

type createLoanPayload struct {
	BookID  library.ID `json:"bookId"`
	UserID  library.ID `json:"userId"`
	DueDate string     `json:"dueDate"`
	Notes   *string    `json:"notes"`
}

type renewLoanPayload struct {
	DueDate string `json:"dueDate"`
}

func loanPath(id library.ID, action string) string {
	p := "/loans/" + url.PathEscape(id.String())
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) ListLoans(ctx context.Context) ([]library.Loan, error) {
	var loans []library.Loan
	err := c.Get(ctx, "/loans", &loans)
	return loans, err
}

func (c *Client) ListActiveLoans(ctx context.Context) ([]library.Loan, error) {
	var loans []library.Loan
	err := c.Get(ctx, "/loans/active", &loans)
	return loans, err
}

func (c *Client) ListOverdueLoans(ctx context.Context) ([]library.Loan, error) {
	var loans []library.Loan
	err := c.Get(ctx, "/loans/overdue", &loans)
	return loans, err
}

func (c *Client) GetLoan(ctx context.Context, id library.ID) (*library.Loan, error) {
	var l library.Loan
	if err := c.Get(ctx, loanPath(id, ""), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLoan sends the request as-is; validation is the caller's job (see
// library.LibraryManager.CreateLoan).
func (c *Client) CreateLoan(ctx context.Context, req library.LoanRequest) (*library.Loan, error) {
	payload := createLoanPayload{
		BookID:  req.BookID,
		UserID:  req.Borrower(),
		DueDate: FormatDueDate(req.DueDate),
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		payload.Notes = &notes
	}
	var l library.Loan
	if err := c.Post(ctx, "/loans/create", payload, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) ReturnLoan(ctx context.Context, id library.ID) (*library.Loan, error) {
	var l library.Loan
	if err := c.Patch(ctx, loanPath(id, "return"), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) RenewLoan(ctx context.Context, id library.ID, dueDate string) (*library.Loan, error) {
	var l library.Loan
	if err := c.Patch(ctx, loanPath(id, "renew"), renewLoanPayload{DueDate: FormatDueDate(dueDate)}, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) PayFine(ctx context.Context, id library.ID) (*library.Loan, error) {
	var l library.Loan
	if err := c.Put(ctx, loanPath(id, "pay-fine"), nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

var _ library.Backend = (*Client)(nil)
