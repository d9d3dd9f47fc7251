package library

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ID is an opaque record identifier. Backends send either JSON numbers or
// strings; both decode into the same value.
type ID string

func (id ID) String() string { return string(id) }

// CompareIDs orders ids numerically when both are integers, otherwise as
// strings.
func CompareIDs(a, b ID) int {
	ai, aerr := strconv.ParseInt(string(a), 10, 64)
	bi, berr := strconv.ParseInt(string(b), 10, 64)
	if aerr != nil || berr != nil {
		return strings.Compare(string(a), string(b))
	}
	return cmp.Compare(ai, bi)
}

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Errorf("decode id %s: %w", b, err)
	}
	*id = ID(s)
	return nil
}

// MarshalJSON writes canonical integers as JSON numbers so that backends
// with integer keys accept them. Anything else, "007" included, stays a
// string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// wireLayout is the zone-less ISO-8601 form the backend uses for dates.
const wireLayout = "2006-01-02T15:04:05"

// Timestamp is a point in time exchanged as an ISO-8601 string. The zero
// value means the field was absent or null.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

// UnmarshalJSON parses ISO-8601 strings with or without a zone. Zone-less
// values are read in the local zone.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		t.Time = time.Time{}
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode timestamp: %w", err)
	}
	parsed, err := cast.ToTimeInDefaultLocationE(v, time.Local)
	if err != nil {
		return fmt.Errorf("decode timestamp %s: %w", b, err)
	}
	t.Time = parsed
	return nil
}

// MarshalJSON writes the zone-less wire layout, or null for the zero value.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(wireLayout))
}

// Role is the access level of an account.
type Role string

const (
	RoleMember    Role = "MEMBER"
	RoleLibrarian Role = "LIBRARIAN"
	RoleAdmin     Role = "ADMIN"
)

// Roles lists every role the backend accepts.
var Roles = []Role{RoleMember, RoleLibrarian, RoleAdmin}

// Book is a catalog entry as returned by the backend.
type Book struct {
	ID              ID        `json:"id,omitempty"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn,omitempty"`
	Category        string    `json:"category,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	PublishedYear   int       `json:"publishedYear,omitempty"`
	TotalCopies     int       `json:"totalCopies"`
	AvailableCopies int       `json:"availableCopies"`
	LoanedCopies    int       `json:"loanedCopies,omitempty"`
	Description     string    `json:"description,omitempty"`
	Available       *bool     `json:"available,omitempty"`
	IsAvailable     *bool     `json:"isAvailable,omitempty"`
	CreatedDate     Timestamp `json:"createdDate"`
}

// User is a registered account. Members are users with RoleMember.
type User struct {
	ID               ID        `json:"id,omitempty"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	FullName         string    `json:"fullName,omitempty"`
	UserFullName     string    `json:"userFullName,omitempty"`
	Role             Role      `json:"role"`
	IsActive         *bool     `json:"isActive,omitempty"`
	CreatedDate      Timestamp `json:"createdDate"`
	ActiveLoansCount int       `json:"activeLoansCount,omitempty"`
}

// Loan records a book lent to a user. Its status is never stored; see Status.
type Loan struct {
	ID           ID              `json:"id"`
	BookID       ID              `json:"bookId"`
	UserID       ID              `json:"userId"`
	MemberID     ID              `json:"memberId,omitempty"`
	Username     string          `json:"username,omitempty"`
	UserFullName string          `json:"userFullName,omitempty"`
	MemberName   string          `json:"memberName,omitempty"`
	BookTitle    string          `json:"bookTitle,omitempty"`
	BookAuthor   string          `json:"bookAuthor,omitempty"`
	BookISBN     string          `json:"bookIsbn,omitempty"`
	LoanDate     Timestamp       `json:"loanDate"`
	DueDate      Timestamp       `json:"dueDate"`
	ReturnDate   Timestamp       `json:"returnDate"`
	Notes        string          `json:"notes,omitempty"`
	Fine         decimal.Decimal `json:"fine"`
	Book         *Book           `json:"book,omitempty"`
	User         *User           `json:"user,omitempty"`
	Member       *User           `json:"member,omitempty"`

	// BackendStatus is whatever the server reported. It is informational
	// only and never consulted when deriving status.
	BackendStatus string `json:"status,omitempty"`
}

// Borrower returns the user the loan belongs to, whichever field carried it.
func (l Loan) Borrower() ID {
	if l.UserID != "" {
		return l.UserID
	}
	return l.MemberID
}

// Returned reports whether a return has been recorded.
func (l Loan) Returned() bool { return !l.ReturnDate.IsZero() }

// LoanRequest is the input of the loan-creation form.
type LoanRequest struct {
	BookID   ID     `json:"bookId"`
	MemberID ID     `json:"memberId,omitempty"`
	UserID   ID     `json:"userId,omitempty"`
	DueDate  string `json:"dueDate"`
	Notes    string `json:"notes,omitempty"`
}

// Borrower returns MemberID, falling back to UserID.
func (r LoanRequest) Borrower() ID {
	if r.MemberID != "" {
		return r.MemberID
	}
	return r.UserID
}

// Statistics is a dashboard snapshot derived from raw collections.
type Statistics struct {
	TotalLoans       int             `json:"totalLoans"`
	ActiveLoans      int             `json:"activeLoans"`
	OverdueLoans     int             `json:"overdueLoans"`
	ReturnedLoans    int             `json:"returnedLoans"`
	AvailableBooks   int             `json:"availableBooks"`
	TotalBooks       int             `json:"totalBooks"`
	TotalMembers     int             `json:"totalMembers"`
	TotalUsers       int             `json:"totalUsers"`
	OutstandingFines decimal.Decimal `json:"outstandingFines"`
}
