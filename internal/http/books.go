package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookexchange/internal/services"
)

type BooksController struct {
	books *services.BookService
}

func NewBooksController(books *services.BookService) *BooksController {
	return &BooksController{
		books: books,
	}
}

// GetAvailableBooks handles GET /api/books
// Lists books open for requests, without the caller's own.
func (controller *BooksController) GetAvailableBooks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	books, err := controller.books.Available(c.Request.Context(), user)
	if err != nil {
		respondServiceError(c, err, "book", "list available books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// GetMyBooks handles GET /api/my/books
func (controller *BooksController) GetMyBooks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	books, err := controller.books.Owned(c.Request.Context(), user)
	if err != nil {
		respondServiceError(c, err, "book", "list own books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

// AddBook handles POST /api/books
func (controller *BooksController) AddBook(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := controller.books.Add(c.Request.Context(), user, req)
	if err != nil {
		respondServiceError(c, err, "book", "add book")
		return
	}
	respondCreated(c, book)
}

// UpdateBook handles PUT /api/books/:id
func (controller *BooksController) UpdateBook(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := controller.books.Update(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		respondServiceError(c, err, "book", "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook handles DELETE /api/books/:id
func (controller *BooksController) DeleteBook(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := controller.books.Delete(c.Request.Context(), user, c.Param("id")); err != nil {
		respondServiceError(c, err, "book", "delete book")
		return
	}
	c.Status(http.StatusNoContent)
}
