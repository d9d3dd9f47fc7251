package client

import (
	"context"
	"net/url"

	"library-client/library"
)

func (c *Client) ListBooks(ctx context.Context) ([]library.Book, error) {
	var books []library.Book
	err := c.Get(ctx, "/books", &books)
	return books, err
}

func (c *Client) ListAvailableBooks(ctx context.Context) ([]library.Book, error) {
	var books []library.Book
	err := c.Get(ctx, "/books/available", &books)
	return books, err
}

func (c *Client) GetBook(ctx context.Context, id library.ID) (*library.Book, error) {
	var b library.Book
	if err := c.Get(ctx, "/books/"+url.PathEscape(id.String()), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) SearchBooks(ctx context.Context, query string) ([]library.Book, error) {
	var books []library.Book
	err := c.Get(ctx, "/books/search?"+url.Values{"query": {query}}.Encode(), &books)
	return books, err
}

func (c *Client) BooksByCategory(ctx context.Context, category string) ([]library.Book, error) {
	var books []library.Book
	err := c.Get(ctx, "/books/category/"+url.PathEscape(category), &books)
	return books, err
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := c.Get(ctx, "/books/categories", &categories)
	return categories, err
}

// CreateBook validates req locally before sending it.
func (c *Client) CreateBook(ctx context.Context, req library.BookRequest) (*library.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var b library.Book
	if err := c.Post(ctx, "/books", req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBook validates req locally before sending it.
func (c *Client) UpdateBook(ctx context.Context, id library.ID, req library.BookRequest) (*library.Book, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var b library.Book
	if err := c.Put(ctx, "/books/"+url.PathEscape(id.String()), req, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) DeleteBook(ctx context.Context, id library.ID) error {
	return c.Delete(ctx, "/books/"+url.PathEscape(id.String()), nil)
}
