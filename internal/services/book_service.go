package services

import (
	"context"
	"strings"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/storage"
)

// BookInput carries the owner-editable book fields.
type BookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ISBN        string `json:"isbn"`
	Description string `json:"description"`
	Condition   string `json:"condition"`
}

func (in BookInput) normalize() (BookInput, error) {
	out := BookInput{
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		ISBN:        strings.TrimSpace(in.ISBN),
		Description: strings.TrimSpace(in.Description),
		Condition:   strings.TrimSpace(in.Condition),
	}
	if err := required("title", out.Title); err != nil {
		return out, err
	}
	if err := required("author", out.Author); err != nil {
		return out, err
	}
	return out, nil
}

// BookService applies ownership rules on top of the book store.
type BookService struct {
	books storage.BookStore
}

func NewBookService(books storage.BookStore) *BookService {
	return &BookService{books: books}
}

// Available lists books open for requests, leaving out the viewer's own.
func (s *BookService) Available(ctx context.Context, viewer *entities.User) ([]entities.Book, error) {
	books, err := s.books.GetAllBooks(ctx)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return books, nil
	}

	others := make([]entities.Book, 0, len(books))
	for _, b := range books {
		if b.OwnerID != viewer.ID {
			others = append(others, b)
		}
	}
	return others, nil
}

func (s *BookService) Owned(ctx context.Context, owner *entities.User) ([]entities.Book, error) {
	return s.books.GetBooksByUser(ctx, owner.Username)
}

func (s *BookService) Add(ctx context.Context, owner *entities.User, in BookInput) (*entities.Book, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	book := &entities.Book{
		Title:       in.Title,
		Author:      in.Author,
		ISBN:        in.ISBN,
		Description: in.Description,
		Condition:   in.Condition,
		OwnerID:     owner.ID,
	}
	if err := s.books.AddBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Update edits a book owned by user. Availability is not editable here; it
// follows the exchange lifecycle.
func (s *BookService) Update(ctx context.Context, user *entities.User, id string, in BookInput) (*entities.Book, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	book, err := s.owned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	book.Title = in.Title
	book.Author = in.Author
	book.ISBN = in.ISBN
	book.Description = in.Description
	book.Condition = in.Condition
	if err := s.books.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// Delete removes a book owned by user. Books that are currently reserved by
// an exchange cannot be deleted.
func (s *BookService) Delete(ctx context.Context, user *entities.User, id string) error {
	book, err := s.owned(ctx, user, id)
	if err != nil {
		return err
	}
	if !book.Available {
		return ErrBookInUse
	}
	return s.books.DeleteBook(ctx, id)
}

func (s *BookService) owned(ctx context.Context, user *entities.User, id string) (*entities.Book, error) {
	book, err := s.books.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, storage.ErrNotFound
	}
	if book.OwnerID != user.ID {
		return nil, ErrForbidden
	}
	return book, nil
}
