package relational

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/storage"
)

func (m *Manager) GetAllBooks(ctx context.Context) ([]entities.Book, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rows []bookRow
	err = db.Joins("Owner").
		Where("books.available = ?", true).
		Order("books.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("list available books", err)
	}
	return toBooks(rows), nil
}

func (m *Manager) GetBooksByUser(ctx context.Context, username string) ([]entities.Book, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	var rows []bookRow
	err = db.Joins("Owner").
		Where("Owner.username = ?", username).
		Order("books.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("list user books", err)
	}
	return toBooks(rows), nil
}

func (m *Manager) GetBook(ctx context.Context, id string) (*entities.Book, error) {
	bookID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	var row bookRow
	err = db.Joins("Owner").First(&row, "books.id = ?", bookID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("get book", err)
	}

	book := row.toEntity()
	return &book, nil
}

func (m *Manager) AddBook(ctx context.Context, book *entities.Book) error {
	ownerID, err := parseID(book.OwnerID)
	if err != nil {
		return err
	}
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}

	row := bookRow{
		Title:       book.Title,
		Author:      book.Author,
		ISBN:        book.ISBN,
		Description: book.Description,
		Condition:   book.Condition,
		OwnerID:     ownerID,
		Available:   true,
		AddedAt:     time.Now().UTC(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var owner userRow
		if err := tx.Select("id", "username").First(&owner, ownerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &storage.ConstraintError{Field: "owner_id", Value: book.OwnerID}
			}
			return err
		}
		row.Owner = owner
		return tx.Omit(clause.Associations).Create(&row).Error
	})
	if err != nil {
		return translate("add book", err)
	}

	book.ID = formatID(row.ID)
	book.Available = true
	book.AddedAt = row.AddedAt
	book.OwnerName = row.Owner.Username
	return nil
}

func (m *Manager) UpdateBook(ctx context.Context, book *entities.Book) error {
	id, err := parseID(book.ID)
	if err != nil {
		return err
	}
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&bookRow{}).Where("id = ?", id).Updates(map[string]any{
			"title":          book.Title,
			"author":         book.Author,
			"isbn":           book.ISBN,
			"description":    book.Description,
			"book_condition": book.Condition,
		}).Error; err != nil {
			return err
		}
		// available is owned by the exchange lifecycle
		var row bookRow
		if err := tx.Select("id", "available").First(&row, id).Error; err != nil {
			return err
		}
		book.Available = row.Available
		return nil
	})
	return translate("update book", err)
}

func (m *Manager) DeleteBook(ctx context.Context, id string) error {
	bookID, err := parseID(id)
	if err != nil {
		return err
	}
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var history int64
		if err := tx.Model(&exchangeRow{}).Where("book_id = ?", bookID).Count(&history).Error; err != nil {
			return err
		}
		if history > 0 {
			return &storage.ConstraintError{Field: "book_id", Value: id}
		}

		res := tx.Delete(&bookRow{}, bookID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	return translate("delete book", err)
}

func toBooks(rows []bookRow) []entities.Book {
	books := make([]entities.Book, 0, len(rows))
	for i := range rows {
		books = append(books, rows[i].toEntity())
	}
	return books
}
