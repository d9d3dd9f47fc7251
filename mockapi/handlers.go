package mockapi

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"library-client/library"
)

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// ------------------ Auth ------------------

func (s *Server) authBody(u *library.User, token string) gin.H {
	return gin.H{
		"token":     token,
		"id":        u.ID,
		"username":  u.Username,
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"role":      u.Role,
	}
}

func (s *Server) userByName(username string) *library.User {
	for _, u := range s.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	s.mu.Lock()
	u := s.userByName(req.Username)
	hash := s.passwords[req.Username]
	s.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid username or password"})
		return
	}
	if u.IsActive != nil && !*u.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "account disabled"})
		return
	}
	token, err := s.IssueToken(*u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not sign token"})
		return
	}
	c.JSON(http.StatusOK, s.authBody(u, token))
}

func (s *Server) register(c *gin.Context) {
	var req library.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	req.Role = library.RoleMember
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Password == "" {
		badRequest(c, "password is required")
		return
	}
	s.mu.Lock()
	taken := s.userByName(req.Username) != nil
	s.mu.Unlock()
	if taken {
		badRequest(c, "username already exists")
		return
	}
	u, err := s.AddUser(library.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not create user"})
		return
	}
	token, err := s.IssueToken(u)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not sign token"})
		return
	}
	c.JSON(http.StatusCreated, s.authBody(&u, token))
}

func (s *Server) validate(c *gin.Context) {
	_, ok := s.parseToken(c.GetHeader("Authorization"))
	c.JSON(http.StatusOK, gin.H{"valid": ok})
}

func (s *Server) refresh(c *gin.Context) {
	s.mu.Lock()
	u := s.userByName(c.GetString(ctxUserKey))
	var view library.User
	if u != nil {
		view = s.userView(u)
	}
	s.mu.Unlock()
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unknown user"})
		return
	}
	token, err := s.IssueToken(view)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not sign token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": view})
}

// ------------------ Books ------------------

func (s *Server) bookList(keep func(*library.Book) bool) []library.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []library.Book{}
	for _, b := range s.books {
		if keep == nil || keep(b) {
			out = append(out, s.bookView(b))
		}
	}
	slices.SortFunc(out, func(a, b library.Book) int { return library.CompareIDs(a.ID, b.ID) })
	return out
}

func (s *Server) listBooks(c *gin.Context) {
	c.JSON(http.StatusOK, s.bookList(nil))
}

func (s *Server) availableBooks(c *gin.Context) {
	c.JSON(http.StatusOK, s.bookList(func(b *library.Book) bool { return b.AvailableCopies > 0 }))
}

func (s *Server) searchBooks(c *gin.Context) {
	q := c.Query("query")
	c.JSON(http.StatusOK, s.bookList(func(b *library.Book) bool {
		return containsFold(b.Title, q) || containsFold(b.Author, q) || containsFold(b.ISBN, q)
	}))
}

func (s *Server) booksByCategory(c *gin.Context) {
	name := c.Param("name")
	c.JSON(http.StatusOK, s.bookList(func(b *library.Book) bool { return strings.EqualFold(b.Category, name) }))
}

func (s *Server) categories(c *gin.Context) {
	s.mu.Lock()
	seen := map[string]bool{}
	out := []string{}
	for _, b := range s.books {
		if b.Category != "" && !seen[b.Category] {
			seen[b.Category] = true
			out = append(out, b.Category)
		}
	}
	s.mu.Unlock()
	slices.Sort(out)
	c.JSON(http.StatusOK, out)
}

func (s *Server) getBook(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[library.ID(c.Param("id"))]
	if !ok {
		notFound(c, "book")
		return
	}
	c.JSON(http.StatusOK, s.bookView(b))
}

func (s *Server) createBook(c *gin.Context) {
	var req library.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	b := s.AddBook(library.Book{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Category:      req.Category,
		Publisher:     req.Publisher,
		PublishedYear: req.PublishedYear,
		TotalCopies:   req.TotalCopies,
		Description:   req.Description,
	})
	c.JSON(http.StatusCreated, b)
}

func (s *Server) updateBook(c *gin.Context) {
	var req library.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[library.ID(c.Param("id"))]
	if !ok {
		notFound(c, "book")
		return
	}
	if req.TotalCopies < b.LoanedCopies {
		badRequest(c, "total copies cannot be less than copies on loan")
		return
	}
	b.Title, b.Author, b.ISBN = req.Title, req.Author, req.ISBN
	b.Category, b.Publisher, b.Description = req.Category, req.Publisher, req.Description
	b.PublishedYear = req.PublishedYear
	b.TotalCopies = req.TotalCopies
	b.AvailableCopies = req.TotalCopies - b.LoanedCopies
	c.JSON(http.StatusOK, s.bookView(b))
}

func (s *Server) deleteBook(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := library.ID(c.Param("id"))
	b, ok := s.books[id]
	if !ok {
		notFound(c, "book")
		return
	}
	if b.LoanedCopies > 0 {
		badRequest(c, "book has copies on loan")
		return
	}
	delete(s.books, id)
	c.Status(http.StatusNoContent)
}

// ------------------ Users ------------------

func (s *Server) userList(keep func(*library.User) bool) []library.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []library.User{}
	for _, u := range s.users {
		if keep == nil || keep(u) {
			out = append(out, s.userView(u))
		}
	}
	slices.SortFunc(out, func(a, b library.User) int { return library.CompareIDs(a.ID, b.ID) })
	return out
}

func (s *Server) listUsers(c *gin.Context) {
	role := library.Role(strings.ToUpper(c.Query("role")))
	if role == "" {
		c.JSON(http.StatusOK, s.userList(nil))
		return
	}
	c.JSON(http.StatusOK, s.userList(func(u *library.User) bool { return u.Role == role }))
}

func (s *Server) searchUsers(c *gin.Context) {
	q := c.Query("query")
	c.JSON(http.StatusOK, s.userList(func(u *library.User) bool {
		return containsFold(u.Username, q) || containsFold(u.Email, q) ||
			containsFold(u.FirstName+" "+u.LastName, q)
	}))
}

func (s *Server) userStatistics(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byRole := map[library.Role]int{}
	active := 0
	for _, u := range s.users {
		byRole[u.Role]++
		if u.IsActive == nil || *u.IsActive {
			active++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"totalUsers":      len(s.users),
		"activeUsers":     active,
		"totalMembers":    byRole[library.RoleMember],
		"totalLibrarians": byRole[library.RoleLibrarian],
		"totalAdmins":     byRole[library.RoleAdmin],
	})
}

func (s *Server) getUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[library.ID(c.Param("id"))]
	if !ok {
		notFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, s.userView(u))
}

func (s *Server) createUser(c *gin.Context) {
	var req library.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Password == "" {
		badRequest(c, "password is required")
		return
	}
	s.mu.Lock()
	taken := s.userByName(req.Username) != nil
	s.mu.Unlock()
	if taken {
		badRequest(c, "username already exists")
		return
	}
	u, err := s.AddUser(library.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	}, req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "could not create user"})
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) updateUser(c *gin.Context) {
	var req library.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if err := req.Validate(); err != nil {
		badRequest(c, err.Error())
		return
	}
	var hash []byte
	if req.Password != "" {
		var err error
		if hash, err = bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "could not hash password"})
			return
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[library.ID(c.Param("id"))]
	if !ok {
		notFound(c, "user")
		return
	}
	if other := s.userByName(req.Username); other != nil && other.ID != u.ID {
		badRequest(c, "username already exists")
		return
	}
	if req.Username != u.Username {
		s.passwords[req.Username] = s.passwords[u.Username]
		delete(s.passwords, u.Username)
	}
	if hash != nil {
		s.passwords[req.Username] = hash
	}
	u.Username, u.Email = req.Username, req.Email
	u.FirstName, u.LastName = req.FirstName, req.LastName
	if req.Role != "" {
		u.Role = req.Role
	}
	c.JSON(http.StatusOK, s.userView(u))
}

func (s *Server) deleteUser(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := library.ID(c.Param("id"))
	u, ok := s.users[id]
	if !ok {
		notFound(c, "user")
		return
	}
	if s.activeLoanCount(id) > 0 {
		badRequest(c, "user has active loans")
		return
	}
	delete(s.passwords, u.Username)
	delete(s.users, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) changeRole(c *gin.Context) {
	var req struct {
		Role library.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if err := library.ValidateRole(req.Role); err != nil {
		badRequest(c, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[library.ID(c.Param("id"))]
	if !ok {
		notFound(c, "user")
		return
	}
	u.Role = req.Role
	c.JSON(http.StatusOK, s.userView(u))
}

// ------------------ Loans ------------------

func (s *Server) loanList(keep func(*library.Loan) bool) []library.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []library.Loan{}
	for _, l := range s.loans {
		if keep == nil || keep(l) {
			out = append(out, s.loanView(l))
		}
	}
	slices.SortFunc(out, func(a, b library.Loan) int { return library.CompareIDs(a.ID, b.ID) })
	return out
}

func (s *Server) listLoans(c *gin.Context) {
	c.JSON(http.StatusOK, s.loanList(nil))
}

func (s *Server) activeLoans(c *gin.Context) {
	c.JSON(http.StatusOK, s.loanList(func(l *library.Loan) bool { return !l.Returned() }))
}

func (s *Server) overdueLoans(c *gin.Context) {
	now := s.now()
	c.JSON(http.StatusOK, s.loanList(func(l *library.Loan) bool { return library.IsOverdue(*l, now) }))
}

func (s *Server) getLoan(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[library.ID(c.Param("id"))]
	if !ok {
		notFound(c, "loan")
		return
	}
	c.JSON(http.StatusOK, s.loanView(l))
}

func (s *Server) createLoan(c *gin.Context) {
	var req struct {
		BookID  library.ID `json:"bookId"`
		UserID  library.ID `json:"userId"`
		DueDate string     `json:"dueDate"`
		Notes   *string    `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	now := s.now()
	due := now.AddDate(0, 0, DefaultLoanDays)
	if req.DueDate != "" {
		parsed, err := library.ParseDate(req.DueDate, now.Location())
		if err != nil {
			badRequest(c, "invalid due date")
			return
		}
		due = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[req.BookID]
	if !ok {
		notFound(c, "book")
		return
	}
	if _, ok := s.users[req.UserID]; !ok {
		notFound(c, "user")
		return
	}
	if b.AvailableCopies <= 0 {
		badRequest(c, "book is not available")
		return
	}
	if s.activeLoanCount(req.UserID) >= MaxActiveLoans {
		badRequest(c, "user has reached the maximum number of active loans")
		return
	}
	l := &library.Loan{
		ID:       s.newID(),
		BookID:   req.BookID,
		UserID:   req.UserID,
		LoanDate: library.NewTimestamp(now),
		DueDate:  library.NewTimestamp(due),
	}
	if req.Notes != nil {
		l.Notes = *req.Notes
	}
	b.AvailableCopies--
	b.LoanedCopies++
	s.loans[l.ID] = l
	c.JSON(http.StatusCreated, s.loanView(l))
}

// openLoan looks up an unreturned loan and writes the error response
// itself when there is none. Callers hold s.mu.
func (s *Server) openLoan(c *gin.Context) (*library.Loan, bool) {
	l, ok := s.loans[library.ID(c.Param("id"))]
	if !ok {
		notFound(c, "loan")
		return nil, false
	}
	if l.Returned() {
		badRequest(c, "loan has already been returned")
		return nil, false
	}
	return l, true
}

func (s *Server) returnLoan(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.openLoan(c)
	if !ok {
		return
	}
	now := s.now()
	if days := library.DaysOverdue(*l, now); days > 0 {
		l.Fine = DailyFine.Mul(decimal.NewFromInt(int64(days)))
	}
	l.ReturnDate = library.NewTimestamp(now)
	if b, ok := s.books[l.BookID]; ok {
		b.AvailableCopies++
		b.LoanedCopies--
	}
	c.JSON(http.StatusOK, s.loanView(l))
}

func (s *Server) renewLoan(c *gin.Context) {
	var req struct {
		DueDate string `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	now := s.now()
	if res := library.ValidateRenewal(req.DueDate, now); !res.Valid {
		badRequest(c, strings.Join(res.Errors, "; "))
		return
	}
	due, _ := library.ParseDate(req.DueDate, now.Location())

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.openLoan(c)
	if !ok {
		return
	}
	l.DueDate = library.NewTimestamp(due)
	c.JSON(http.StatusOK, s.loanView(l))
}

func (s *Server) payFine(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[library.ID(c.Param("id"))]
	if !ok {
		notFound(c, "loan")
		return
	}
	if !l.Fine.IsPositive() {
		badRequest(c, "loan has no outstanding fine")
		return
	}
	l.Fine = decimal.Zero
	c.JSON(http.StatusOK, s.loanView(l))
}
