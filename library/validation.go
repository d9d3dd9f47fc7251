package library

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/cast"
)

// Loan request violation messages, in the order they are reported.
const (
	MsgBookRequired    = "book is required"
	MsgMemberRequired  = "member is required"
	MsgDueDateRequired = "due date is required"
	MsgDueDateInvalid  = "due date is invalid"
	MsgDueDatePast     = "due date cannot be in the past"
)

// ValidationResult is the outcome of validating a form.
type ValidationResult struct {
	Valid  bool     `json:"isValid"`
	Errors []string `json:"errors"`
}

// Err returns nil for a valid result and a *ValidationError otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Messages: r.Errors}
}

// ValidationError carries user-correctable problems with an input.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// IsValidationError reports whether err carries input violations.
func IsValidationError(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var fields validation.Errors
	if errors.As(err, &fields) {
		return true
	}
	var rule validation.Error
	return errors.As(err, &rule)
}

// ParseDate reads a bare date or an ISO-8601 timestamp. Zone-less input is
// interpreted in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return cast.ToTimeInDefaultLocationE(strings.TrimSpace(s), loc)
}

// dueDateViolations checks presence, format and that the due day is not
// before today.
func dueDateViolations(dueDate string, now time.Time) []string {
	if err := validation.Validate(strings.TrimSpace(dueDate), validation.Required); err != nil {
		return []string{MsgDueDateRequired}
	}
	due, err := ParseDate(dueDate, now.Location())
	if err != nil {
		return []string{MsgDueDateInvalid}
	}
	loc := now.Location()
	if calendarDay(due, loc).Before(calendarDay(now, loc)) {
		return []string{MsgDueDatePast}
	}
	return nil
}

// ValidateLoanRequest checks a proposed loan. Every rule is evaluated and
// every violation reported, in a fixed order. It does not look at book
// availability.
func ValidateLoanRequest(req LoanRequest, now time.Time) ValidationResult {
	errs := []string{}
	if err := validation.Validate(req.BookID, validation.Required); err != nil {
		errs = append(errs, MsgBookRequired)
	}
	if err := validation.Validate(req.Borrower(), validation.Required); err != nil {
		errs = append(errs, MsgMemberRequired)
	}
	errs = append(errs, dueDateViolations(req.DueDate, now)...)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateRenewal checks a new due date for an existing loan.
func ValidateRenewal(dueDate string, now time.Time) ValidationResult {
	errs := dueDateViolations(dueDate, now)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

var isbnPattern = regexp.MustCompile(`^(\d{9}[\dX]|\d{13})$`)

// NormalizeISBN strips separators so the value can be pattern checked.
func NormalizeISBN(s string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(s))
}

// BookRequest is the payload for creating or updating a book.
type BookRequest struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	PublishedYear int    `json:"publishedYear,omitempty"`
	Category      string `json:"category,omitempty"`
	TotalCopies   int    `json:"totalCopies"`
	Description   string `json:"description,omitempty"`
}

func (r BookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title,
			validation.Required.Error("title is required"),
			validation.Length(1, 255),
		),
		validation.Field(&r.Author,
			validation.Required.Error("author is required"),
			validation.Length(1, 255),
		),
		validation.Field(&r.ISBN,
			validation.When(r.ISBN != "",
				validation.By(func(value interface{}) error {
					s, _ := value.(string)
					if !isbnPattern.MatchString(NormalizeISBN(s)) {
						return errors.New("isbn must have 10 or 13 digits")
					}
					return nil
				}),
			),
		),
		validation.Field(&r.PublishedYear,
			validation.When(r.PublishedYear != 0,
				validation.Min(1000).Error("published year is too early"),
				validation.Max(time.Now().Year()).Error("published year cannot be in the future"),
			),
		),
		validation.Field(&r.TotalCopies,
			validation.Min(0).Error("total copies cannot be negative"),
		),
	)
}

// UserRequest is the payload for creating or updating a user.
type UserRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      Role   `json:"role,omitempty"`
}

func (r UserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required.Error("username is required"),
			validation.Length(3, 50),
		),
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			is.Email.Error("invalid email format"),
		),
		validation.Field(&r.Password,
			validation.When(r.Password != "",
				validation.Length(6, 128).Error("password must be 6-128 characters"),
			),
		),
		validation.Field(&r.FirstName, validation.Required.Error("first name is required")),
		validation.Field(&r.LastName, validation.Required.Error("last name is required")),
		validation.Field(&r.Role, roleRules()...),
	)
}

func roleRules() []validation.Rule {
	allowed := make([]interface{}, len(Roles))
	for i, r := range Roles {
		allowed[i] = r
	}
	return []validation.Rule{validation.In(allowed...).Error("role must be one of MEMBER, LIBRARIAN, ADMIN")}
}

// ValidateRole checks a role change target.
func ValidateRole(role Role) error {
	rules := append([]validation.Rule{validation.Required.Error("role is required")}, roleRules()...)
	return validation.Validate(role, rules...)
}
