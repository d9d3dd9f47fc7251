package mockapi

import (
	"github.com/shopspring/decimal"

	"library-client/library"
)

// Demo account passwords created by Seed.
const (
	DemoAdminPassword     = "admin123"
	DemoLibrarianPassword = "librarian123"
	DemoMemberPassword    = "member123"
)

// Seed fills the server with a small demo library: three staff and member
// accounts, a shelf of books and loans covering every status and severity.
func (s *Server) Seed() error {
	now := s.now()
	day := func(offset int) library.Timestamp { return library.NewTimestamp(now.AddDate(0, 0, offset)) }

	if _, err := s.AddUser(library.User{
		Username: "admin", Email: "admin@library.test",
		FirstName: "Ada", LastName: "Admin", Role: library.RoleAdmin,
	}, DemoAdminPassword); err != nil {
		return err
	}
	if _, err := s.AddUser(library.User{
		Username: "librarian", Email: "librarian@library.test",
		FirstName: "Lena", LastName: "Reed", Role: library.RoleLibrarian,
	}, DemoLibrarianPassword); err != nil {
		return err
	}
	var members []library.User
	for _, u := range []library.User{
		{Username: "mia", Email: "mia@library.test", FirstName: "Mia", LastName: "Wong"},
		{Username: "noah", Email: "noah@library.test", FirstName: "Noah", LastName: "Kim"},
		{Username: "omar", Email: "omar@library.test", FirstName: "Omar", LastName: "Haddad"},
	} {
		m, err := s.AddUser(u, DemoMemberPassword)
		if err != nil {
			return err
		}
		members = append(members, m)
	}

	var books []library.Book
	for _, b := range []library.Book{
		{Title: "1984", Author: "George Orwell", ISBN: "9780451524935", Category: "Fiction", PublishedYear: 1949, TotalCopies: 3},
		{Title: "Animal Farm", Author: "George Orwell", ISBN: "9780451526342", Category: "Fiction", PublishedYear: 1945, TotalCopies: 2},
		{Title: "The Fellowship of the Ring", Author: "J.R.R. Tolkien", ISBN: "9780547928210", Category: "Fantasy", PublishedYear: 1954, TotalCopies: 2},
		{Title: "The Art of War", Author: "Sun Tzu", Category: "Philosophy", TotalCopies: 1},
		{Title: "Romeo and Juliet", Author: "William Shakespeare", Category: "Drama", TotalCopies: 1},
		{Title: "The Three Musketeers", Author: "Alexandre Dumas", Category: "Adventure", PublishedYear: 1844, TotalCopies: 2},
	} {
		books = append(books, s.AddBook(b))
	}

	for _, l := range []library.Loan{
		{BookID: books[0].ID, UserID: members[0].ID, LoanDate: day(-3), DueDate: day(11)},
		{BookID: books[1].ID, UserID: members[0].ID, LoanDate: day(-17), DueDate: day(-3)},
		{BookID: books[2].ID, UserID: members[1].ID, LoanDate: day(-30), DueDate: day(-16)},
		{BookID: books[3].ID, UserID: members[2].ID, LoanDate: day(-60), DueDate: day(-46)},
		{BookID: books[4].ID, UserID: members[1].ID, LoanDate: day(-40), DueDate: day(-26), ReturnDate: day(-20), Fine: DailyFine.Mul(decimal.NewFromInt(6))},
	} {
		s.AddLoan(l)
	}
	return nil
}
