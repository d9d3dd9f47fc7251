package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"library-client/library"
)

func bookFlags(cmd *cobra.Command, req *library.BookRequest) {
	f := cmd.Flags()
	f.StringVar(&req.Title, "title", "", "book title")
	f.StringVar(&req.Author, "author", "", "author name")
	f.StringVar(&req.ISBN, "isbn", "", "ISBN-10 or ISBN-13")
	f.StringVar(&req.Category, "category", "", "category")
	f.StringVar(&req.Publisher, "publisher", "", "publisher")
	f.IntVar(&req.PublishedYear, "year", 0, "year of publication")
	f.IntVar(&req.TotalCopies, "copies", 1, "number of copies owned")
	f.StringVar(&req.Description, "description", "", "short description")
}

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Browse and manage the catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.api.ListBooks(cmd.Context())
			if err != nil {
				return err
			}
			library.SortBooks(books)
			printBooks(cmd.OutOrStdout(), books)
			return nil
		},
	}

	available := &cobra.Command{
		Use:   "available",
		Short: "List books with a copy on the shelf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.api.ListAvailableBooks(cmd.Context())
			if err != nil {
				return err
			}
			library.SortBooks(books)
			printBooks(cmd.OutOrStdout(), books)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.api.GetBook(cmd.Context(), library.ID(args[0]))
			if err != nil {
				return err
			}
			printBook(cmd.OutOrStdout(), b)
			return nil
		},
	}

	search := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search by title, author or ISBN",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			books, err := a.api.SearchBooks(cmd.Context(), query)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(books) == 0 {
				fmt.Fprintf(out, "No books found matching '%s'.\n", query)
				return nil
			}
			fmt.Fprintf(out, "Found %d book(s) matching '%s':\n", len(books), query)
			printBooks(out, books)
			return nil
		},
	}

	category := &cobra.Command{
		Use:   "category NAME",
		Short: "List books in a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := a.api.BooksByCategory(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			library.SortBooks(books)
			printBooks(cmd.OutOrStdout(), books)
			return nil
		},
	}

	categories := &cobra.Command{
		Use:   "categories",
		Short: "List the catalog's categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := a.api.Categories(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No categories.")
			}
			for _, n := range names {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}

	var addReq library.BookRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.api.CreateBook(cmd.Context(), addReq)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added book '%s' with ID %s\n", b.Title, b.ID)
			return nil
		},
	}
	bookFlags(add, &addReq)

	var updReq library.BookRequest
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Replace a book's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := library.ID(args[0])
			current, err := a.api.GetBook(ctx, id)
			if err != nil {
				return err
			}
			req := mergeBook(cmd, *current, updReq)
			b, err := a.api.UpdateBook(ctx, id, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated book %s\n", b.ID)
			return nil
		},
	}
	bookFlags(update, &updReq)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Remove a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.api.DeleteBook(cmd.Context(), library.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted book %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, available, show, search, category, categories, add, update, del)
	return cmd
}

// mergeBook starts from the stored book and applies only the flags the
// user actually set.
func mergeBook(cmd *cobra.Command, b library.Book, upd library.BookRequest) library.BookRequest {
	req := library.BookRequest{
		Title:         b.Title,
		Author:        b.Author,
		ISBN:          b.ISBN,
		Publisher:     b.Publisher,
		PublishedYear: b.PublishedYear,
		Category:      b.Category,
		TotalCopies:   b.TotalCopies,
		Description:   b.Description,
	}
	f := cmd.Flags()
	if f.Changed("title") {
		req.Title = upd.Title
	}
	if f.Changed("author") {
		req.Author = upd.Author
	}
	if f.Changed("isbn") {
		req.ISBN = upd.ISBN
	}
	if f.Changed("category") {
		req.Category = upd.Category
	}
	if f.Changed("publisher") {
		req.Publisher = upd.Publisher
	}
	if f.Changed("year") {
		req.PublishedYear = upd.PublishedYear
	}
	if f.Changed("copies") {
		req.TotalCopies = upd.TotalCopies
	}
	if f.Changed("description") {
		req.Description = upd.Description
	}
	return req
}
