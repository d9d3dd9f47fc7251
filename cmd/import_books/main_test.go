package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-client/client"
	"library-client/library"
	"library-client/mockapi"
	"library-client/session"
)

func TestReadCatalogFile(t *testing.T) {
	f, err := os.Open("catalog.yaml")
	require.NoError(t, err)
	defer f.Close()

	entries, err := readCatalog(f)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "1984", entries[0].Title)
	assert.Equal(t, 3, entries[0].request().TotalCopies)
	for _, e := range entries {
		assert.NoError(t, e.request().Validate(), e.Title)
	}
}

func TestCatalogEntryDefaultsToOneCopy(t *testing.T) {
	req := catalogEntry{Title: "Emma", Author: "Jane Austen", Year: 1815}.request()
	assert.Equal(t, 1, req.TotalCopies)
	assert.Equal(t, 1815, req.PublishedYear)
}

func newClient(t *testing.T, login bool) *client.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := mockapi.New()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	c := client.New(ts.URL+"/api", time.Second, session.New(session.NewMemoryStore()), client.WithLogger(zerolog.Nop()))
	if login {
		_, err := srv.AddUser(library.User{Username: "admin", Email: "admin@example.com", Role: library.RoleAdmin}, "secret1")
		require.NoError(t, err)
		_, err = c.Login(context.Background(), client.Credentials{Username: "admin", Password: "secret1"})
		require.NoError(t, err)
	}
	return c
}

func TestImportCatalog(t *testing.T) {
	c := newClient(t, true)
	entries := []catalogEntry{
		{Title: "Dune", Author: "Frank Herbert", Copies: 2},
		{Title: "", Author: "Nobody"},
		{Title: "Emma", Author: "Jane Austen"},
	}

	var out bytes.Buffer
	books, errCount := importCatalog(context.Background(), c, entries, &out)
	assert.Len(t, books, 2)
	assert.Equal(t, 1, errCount)
	assert.Contains(t, out.String(), "Importing: Dune by Frank Herbert... SUCCESS")
	assert.Contains(t, out.String(), "ERROR - ")

	out.Reset()
	printSummary(&out, books, errCount)
	assert.Contains(t, out.String(), "Successfully imported: 2 books")
	assert.Contains(t, out.String(), "Errors: 1")
}

func TestImportCatalogStopsWhenUnauthorized(t *testing.T) {
	c := newClient(t, false)
	entries := []catalogEntry{
		{Title: "Dune", Author: "Frank Herbert"},
		{Title: "Emma", Author: "Jane Austen"},
	}

	var out bytes.Buffer
	books, errCount := importCatalog(context.Background(), c, entries, &out)
	assert.Empty(t, books)
	assert.Equal(t, 2, errCount)
	assert.Equal(t, 1, strings.Count(out.String(), "Importing:"))
	assert.Contains(t, out.String(), "run 'library login'")
}

func TestRunRequiresSession(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LIBRARY_CONFIG", "")
	t.Setenv("LIBRARY_SESSION_BACKEND", "memory")
	t.Setenv("LIBRARY_SESSION_KEY", "")
	t.Setenv("LIBRARY_LOG_LEVEL", "error")

	var out bytes.Buffer
	err := run(context.Background(), &out, "catalog.yaml", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	err = run(context.Background(), &out, "missing.yaml", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
