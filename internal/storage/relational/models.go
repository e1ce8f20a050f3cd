package relational

import (
	"strconv"
	"time"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/storage"
)

type userRow struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"size:50;not null;uniqueIndex"`
	PasswordHash string    `gorm:"column:password;size:255;not null"`
	Email        string    `gorm:"size:100;not null;uniqueIndex"`
	FullName     string    `gorm:"size:100"`
	Address      string    `gorm:"type:text"`
	RegisteredAt time.Time `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

type bookRow struct {
	ID          uint    `gorm:"primaryKey"`
	Title       string  `gorm:"size:200;not null"`
	Author      string  `gorm:"size:100;not null"`
	ISBN        string  `gorm:"column:isbn;size:20"`
	Description string  `gorm:"type:text"`
	Condition   string  `gorm:"column:book_condition;size:50"`
	OwnerID     uint    `gorm:"not null;index"`
	Owner       userRow `gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT"`
	Available   bool    `gorm:"not null;default:true;index"`
	AddedAt     time.Time
}

func (bookRow) TableName() string { return "books" }

type exchangeRow struct {
	ID          uint    `gorm:"primaryKey"`
	RequesterID uint    `gorm:"not null;index"`
	Requester   userRow `gorm:"foreignKey:RequesterID;constraint:OnDelete:RESTRICT"`
	ProviderID  uint    `gorm:"not null;index"`
	Provider    userRow `gorm:"foreignKey:ProviderID;constraint:OnDelete:RESTRICT"`
	BookID      uint    `gorm:"not null;index"`
	Book        bookRow `gorm:"foreignKey:BookID;constraint:OnDelete:RESTRICT"`
	Status      string  `gorm:"size:20;not null;index"`
	RequestedAt time.Time
	CompletedAt *time.Time
}

func (exchangeRow) TableName() string { return "exchanges" }

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(id string) (uint, error) {
	n, err := strconv.ParseUint(id, 10, 0)
	if err != nil || n == 0 {
		return 0, storage.ErrInvalidID
	}
	return uint(n), nil
}

func (r *userRow) toEntity() entities.User {
	return entities.User{
		ID:           formatID(r.ID),
		Username:     r.Username,
		Email:        r.Email,
		FullName:     r.FullName,
		Address:      r.Address,
		RegisteredAt: r.RegisteredAt,
	}
}

func (r *bookRow) toEntity() entities.Book {
	return entities.Book{
		ID:          formatID(r.ID),
		Title:       r.Title,
		Author:      r.Author,
		ISBN:        r.ISBN,
		Description: r.Description,
		Condition:   r.Condition,
		OwnerID:     formatID(r.OwnerID),
		OwnerName:   r.Owner.Username,
		Available:   r.Available,
		AddedAt:     r.AddedAt,
	}
}

func (r *exchangeRow) toEntity() entities.Exchange {
	return entities.Exchange{
		ID:            formatID(r.ID),
		RequesterID:   formatID(r.RequesterID),
		ProviderID:    formatID(r.ProviderID),
		BookID:        formatID(r.BookID),
		Status:        entities.ExchangeStatus(r.Status),
		RequestedAt:   r.RequestedAt,
		CompletedAt:   r.CompletedAt,
		BookTitle:     r.Book.Title,
		RequesterName: r.Requester.Username,
		ProviderName:  r.Provider.Username,
	}
}
