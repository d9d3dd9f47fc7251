// Command import_books loads a YAML catalog into the library through the
// REST API, using the session saved by "library login".
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"library-client/client"
	"library-client/config"
	"library-client/library"
	"library-client/logger"
	"library-client/session"
)

// catalogEntry is one book in the catalog file.
type catalogEntry struct {
	Title       string `yaml:"title"`
	Author      string `yaml:"author"`
	ISBN        string `yaml:"isbn"`
	Publisher   string `yaml:"publisher"`
	Year        int    `yaml:"year"`
	Category    string `yaml:"category"`
	Copies      int    `yaml:"copies"`
	Description string `yaml:"description"`
}

func (e catalogEntry) request() library.BookRequest {
	copies := e.Copies
	if copies == 0 {
		copies = 1
	}
	return library.BookRequest{
		Title:         e.Title,
		Author:        e.Author,
		ISBN:          e.ISBN,
		Publisher:     e.Publisher,
		PublishedYear: e.Year,
		Category:      e.Category,
		TotalCopies:   copies,
		Description:   e.Description,
	}
}

type catalog struct {
	Books []catalogEntry `yaml:"books"`
}

func readCatalog(r io.Reader) ([]catalogEntry, error) {
	var c catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return c.Books, nil
}

type bookCreator interface {
	CreateBook(ctx context.Context, req library.BookRequest) (*library.Book, error)
}

// importCatalog creates every entry, reporting each outcome on out. It stops
// early only when the session is rejected.
func importCatalog(ctx context.Context, api bookCreator, entries []catalogEntry, out io.Writer) ([]library.Book, int) {
	var (
		imported []library.Book
		errCount int
	)
	for _, e := range entries {
		fmt.Fprintf(out, "Importing: %s by %s... ", e.Title, e.Author)
		b, err := api.CreateBook(ctx, e.request())
		if err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			if client.IsUnauthorized(err) {
				fmt.Fprintln(out, "Session rejected; run 'library login' and try again.")
				return imported, len(entries) - len(imported)
			}
			errCount++
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %s)\n", b.ID)
		imported = append(imported, *b)
	}
	return imported, errCount
}

func printSummary(out io.Writer, books []library.Book, errCount int) {
	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", len(books))
	fmt.Fprintf(out, "Errors: %d\n", errCount)
	if len(books) == 0 {
		return
	}
	fmt.Fprintln(out, "\nImported books:")
	fmt.Fprintf(out, "%-6s %-50s %-30s\n", "ID", "Title", "Author")
	fmt.Fprintln(out, strings.Repeat("-", 88))
	for _, b := range books {
		fmt.Fprintf(out, "%-6s %-50s %-30s\n", b.ID, truncateString(b.Title, 50), truncateString(b.Author, 30))
	}
}

func newRootCmd() *cobra.Command {
	var file, configPath string
	cmd := &cobra.Command{
		Use:           "import_books",
		Short:         "Create every book in a YAML catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), file, configPath)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "YAML catalog to import")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	return cmd
}

func run(ctx context.Context, out io.Writer, file, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	entries, err := readCatalog(f)
	f.Close()
	if err != nil {
		return err
	}

	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	sess := session.New(store)
	defer sess.Close()
	if !sess.Active(ctx) {
		return errors.New("not logged in; run 'library login' first")
	}

	api := client.New(cfg.API.URL, cfg.API.Timeout, sess)
	fmt.Fprintf(out, "Importing %d books from %s into %s\n", len(entries), file, cfg.API.URL)
	books, errCount := importCatalog(ctx, api, entries, out)
	printSummary(out, books, errCount)
	log.Info().Int("imported", len(books)).Int("errors", errCount).Msg("catalog import finished")
	if errCount > 0 {
		return fmt.Errorf("%d of %d books failed", errCount, len(entries))
	}
	return nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
