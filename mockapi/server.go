// Package mockapi is an in-memory stand-in for the library REST backend.
// It serves the same routes and payload shapes so the client and CLI can be
// exercised without the real server.
package mockapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"library-client/library"
)

// DailyFine is charged per day a loan is returned late.
var DailyFine = decimal.RequireFromString("0.50")

// MaxActiveLoans is how many unreturned loans one user may hold.
const MaxActiveLoans = 5

// DefaultLoanDays is the loan period used when a request has no due date.
const DefaultLoanDays = 14

const tokenTTL = 24 * time.Hour

const (
	ctxUserKey = "user_id"
	ctxRoleKey = "role"
)

type Server struct {
	mu        sync.Mutex
	books     map[library.ID]*library.Book
	users     map[library.ID]*library.User
	loans     map[library.ID]*library.Loan
	passwords map[string][]byte
	nextID    int

	secret  []byte
	now     func() time.Time
	failing map[string]bool
}

type Option func(*Server)

// WithSecret sets the HS256 signing key.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithFailingPath makes GET requests to path answer 500, for exercising
// client fallbacks. path is relative to /api, e.g. "/loans/active".
func WithFailingPath(path string) Option {
	return func(s *Server) { s.failing[path] = true }
}

func New(opts ...Option) *Server {
	s := &Server{
		books:     map[library.ID]*library.Book{},
		users:     map[library.ID]*library.User{},
		loans:     map[library.ID]*library.Loan{},
		passwords: map[string][]byte{},
		secret:    []byte("library-mock-secret"),
		now:       time.Now,
		failing:   map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine. Every route lives under /api.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), s.failures())

	api := r.Group("/api")
	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)
	api.POST("/auth/validate", s.validate)

	authed := api.Group("", s.requireAuth())
	authed.POST("/auth/refresh", s.refresh)

	authed.GET("/books", s.listBooks)
	authed.GET("/books/available", s.availableBooks)
	authed.GET("/books/search", s.searchBooks)
	authed.GET("/books/categories", s.categories)
	authed.GET("/books/category/:name", s.booksByCategory)
	authed.GET("/books/:id", s.getBook)
	authed.POST("/books", s.createBook)
	authed.PUT("/books/:id", s.updateBook)
	authed.DELETE("/books/:id", s.deleteBook)

	authed.GET("/users", s.listUsers)
	authed.GET("/users/search", s.searchUsers)
	authed.GET("/users/statistics", s.userStatistics)
	authed.GET("/users/:id", s.getUser)
	authed.POST("/users", s.createUser)
	authed.PUT("/users/:id", s.updateUser)
	authed.DELETE("/users/:id", s.deleteUser)
	authed.PUT("/users/:id/role", s.changeRole)

	authed.GET("/loans", s.listLoans)
	authed.GET("/loans/active", s.activeLoans)
	authed.GET("/loans/overdue", s.overdueLoans)
	authed.GET("/loans/:id", s.getLoan)
	authed.POST("/loans/create", s.createLoan)
	authed.PATCH("/loans/:id/return", s.returnLoan)
	authed.PATCH("/loans/:id/renew", s.renewLoan)
	authed.PUT("/loans/:id/pay-fine", s.payFine)
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Debug().
			Str("request_id", c.GetHeader("X-Request-ID")).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency_ms", time.Since(start)).
			Msg("mock API request")
	}
}

func (s *Server) failures() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet && s.failing[strings.TrimPrefix(c.Request.URL.Path, "/api")] {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "endpoint unavailable"})
			return
		}
		c.Next()
	}
}

// ------------------ Auth ------------------

// IssueToken signs a token for u, valid for a day from the server clock.
func (s *Server) IssueToken(u library.User) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.Username,
		"uid":  u.ID.String(),
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
	})
	return token.SignedString(s.secret)
}

func (s *Server) parseToken(header string) (jwt.MapClaims, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, false
	}
	tokenStr := strings.TrimSpace(parts[1])
	if tokenStr == "" {
		return nil, false
	}
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	return claims, ok
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing Authorization header"})
			return
		}
		claims, ok := s.parseToken(h)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		c.Set(ctxUserKey, sub)
		c.Set(ctxRoleKey, role)
		c.Next()
	}
}

// ------------------ Seeding ------------------

func (s *Server) newID() library.ID {
	s.nextID++
	return library.ID(strconv.Itoa(s.nextID))
}

// AddBook stores b under a fresh id. Available copies default to the total.
func (s *Server) AddBook(b library.Book) library.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.newID()
	if b.AvailableCopies == 0 && b.LoanedCopies == 0 {
		b.AvailableCopies = b.TotalCopies
	}
	if b.CreatedDate.IsZero() {
		b.CreatedDate = library.NewTimestamp(s.now())
	}
	s.books[b.ID] = &b
	return s.bookView(&b)
}

// AddUser stores u with a bcrypt hash of password.
func (s *Server) AddUser(u library.User, password string) (library.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return library.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.newID()
	if u.Role == "" {
		u.Role = library.RoleMember
	}
	if u.CreatedDate.IsZero() {
		u.CreatedDate = library.NewTimestamp(s.now())
	}
	s.users[u.ID] = &u
	s.passwords[u.Username] = hash
	return s.userView(&u), nil
}

// AddLoan stores l as-is, adjusting the book's copies when it is unreturned.
func (s *Server) AddLoan(l library.Loan) library.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.newID()
	if b, ok := s.books[l.BookID]; ok && !l.Returned() {
		b.AvailableCopies--
		b.LoanedCopies++
	}
	s.loans[l.ID] = &l
	return s.loanView(&l)
}

// ------------------ Views ------------------

func (s *Server) bookView(b *library.Book) library.Book {
	out := *b
	available := out.AvailableCopies > 0
	out.Available = &available
	return out
}

func (s *Server) userView(u *library.User) library.User {
	out := *u
	out.FullName = strings.TrimSpace(out.FirstName + " " + out.LastName)
	out.ActiveLoansCount = s.activeLoanCount(u.ID)
	return out
}

func (s *Server) loanView(l *library.Loan) library.Loan {
	out := *l
	if b, ok := s.books[l.BookID]; ok {
		out.BookTitle = b.Title
		out.BookAuthor = b.Author
		out.BookISBN = b.ISBN
	}
	if u, ok := s.users[l.Borrower()]; ok {
		out.Username = u.Username
		out.UserFullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	out.BackendStatus = string(library.Status(out, s.now()))
	return out
}

func (s *Server) activeLoanCount(userID library.ID) int {
	n := 0
	for _, l := range s.loans {
		if l.Borrower() == userID && !l.Returned() {
			n++
		}
	}
	return n
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"message": what + " not found"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": msg})
}
