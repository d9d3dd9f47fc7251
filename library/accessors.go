package library

import "strings"

// Display accessors. Each tries the candidate fields in a fixed order and
// returns the first non-empty value, or "" when none is set.

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// BookTitle returns the book's title.
func BookTitle(b *Book) string {
	if b == nil {
		return ""
	}
	return b.Title
}

// BookAuthor returns the book's author.
func BookAuthor(b *Book) string {
	if b == nil {
		return ""
	}
	return b.Author
}

// BookISBN returns the book's ISBN.
func BookISBN(b *Book) string {
	if b == nil {
		return ""
	}
	return b.ISBN
}

// UserFullName tries userFullName, fullName, "first last", then username.
func UserFullName(u *User) string {
	if u == nil {
		return ""
	}
	joined := strings.TrimSpace(u.FirstName + " " + u.LastName)
	return firstNonEmpty(u.UserFullName, u.FullName, joined, u.Username)
}

// UserEmail returns the user's email address.
func UserEmail(u *User) string {
	if u == nil {
		return ""
	}
	return u.Email
}

// LoanBookTitle tries loan.bookTitle, then loan.book.title.
func LoanBookTitle(l *Loan) string {
	if l == nil {
		return ""
	}
	return firstNonEmpty(l.BookTitle, BookTitle(l.Book))
}

// LoanMemberName tries loan.userFullName, loan.memberName,
// loan.member.fullName, then loan.user.fullName.
func LoanMemberName(l *Loan) string {
	if l == nil {
		return ""
	}
	var memberFull, userFull string
	if l.Member != nil {
		memberFull = l.Member.FullName
	}
	if l.User != nil {
		userFull = l.User.FullName
	}
	return firstNonEmpty(l.UserFullName, l.MemberName, memberFull, userFull)
}
