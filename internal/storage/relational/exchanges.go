package relational

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/exchange"
	"github.com/mrlokans/bookexchange/internal/storage"
)

func (m *Manager) GetExchangesByUser(ctx context.Context, username string) ([]entities.Exchange, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	var user userRow
	err = db.Select("id").Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []entities.Exchange{}, nil
	}
	if err != nil {
		return nil, translate("list exchanges", err)
	}

	var rows []exchangeRow
	err = withExchangeDetails(db).
		Where("requester_id = ? OR provider_id = ?", user.ID, user.ID).
		Order("requested_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate("list exchanges", err)
	}

	exchanges := make([]entities.Exchange, 0, len(rows))
	for i := range rows {
		exchanges = append(exchanges, rows[i].toEntity())
	}
	return exchanges, nil
}

func (m *Manager) GetExchange(ctx context.Context, id string) (*entities.Exchange, error) {
	exchangeID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	var row exchangeRow
	err = withExchangeDetails(db).First(&row, exchangeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("get exchange", err)
	}

	e := row.toEntity()
	return &e, nil
}

// CreateExchange reserves the book and inserts the exchange in one
// transaction. The reservation is a guarded UPDATE so two concurrent
// requests for the same book cannot both win.
func (m *Manager) CreateExchange(ctx context.Context, e *entities.Exchange) error {
	bookID, err := parseID(e.BookID)
	if err != nil {
		return err
	}
	requesterID, err := parseID(e.RequesterID)
	if err != nil {
		return err
	}
	providerID, err := parseID(e.ProviderID)
	if err != nil {
		return err
	}
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}

	effect := exchange.PlanCreate()
	row := exchangeRow{
		RequesterID: requesterID,
		ProviderID:  providerID,
		BookID:      bookID,
		Status:      string(effect.Status),
		RequestedAt: time.Now().UTC(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var book bookRow
		if err := tx.First(&book, bookID).Error; err != nil {
			return err
		}
		if book.OwnerID != providerID {
			return &storage.ConstraintError{Field: "provider_id", Value: e.ProviderID}
		}

		var requesters int64
		if err := tx.Model(&userRow{}).Where("id = ?", requesterID).Count(&requesters).Error; err != nil {
			return err
		}
		if requesters == 0 {
			return &storage.ConstraintError{Field: "requester_id", Value: e.RequesterID}
		}

		if err := applyBookChange(tx, bookID, effect.Book); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&row).Error
	})
	if err != nil {
		return translate("create exchange", err)
	}

	e.ID = formatID(row.ID)
	e.Status = effect.Status
	e.RequestedAt = row.RequestedAt
	e.CompletedAt = nil
	return nil
}

func (m *Manager) UpdateExchangeStatus(ctx context.Context, id string, status entities.ExchangeStatus) error {
	exchangeID, err := parseID(id)
	if err != nil {
		return err
	}
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var row exchangeRow
		if err := tx.First(&row, exchangeID).Error; err != nil {
			return err
		}

		from := entities.ExchangeStatus(row.Status)
		effect, err := exchange.Plan(from, status)
		if err != nil {
			return err
		}

		updates := map[string]any{"status": string(effect.Status)}
		if effect.SetCompletion {
			updates["completed_at"] = time.Now().UTC()
		}

		res := tx.Model(&exchangeRow{}).
			Where("id = ? AND status = ?", exchangeID, row.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Someone else moved the exchange since we read it.
			var current exchangeRow
			if err := tx.Select("status").First(&current, exchangeID).Error; err != nil {
				return err
			}
			return &exchange.TransitionError{From: entities.ExchangeStatus(current.Status), To: status}
		}

		return applyBookChange(tx, row.BookID, effect.Book)
	})
	if err != nil && !isStorageError(err) {
		log.Printf("Failed to move exchange %s to %s: %v", id, status, err)
	}
	return translate("update exchange status", err)
}

// applyBookChange flips the availability flag with a guard on its current
// value. Reserving an already reserved book fails with ErrBookUnavailable.
func applyBookChange(tx *gorm.DB, bookID uint, change exchange.BookChange) error {
	var from, to bool
	switch change {
	case exchange.BookReserve:
		from, to = true, false
	case exchange.BookRelease:
		from, to = false, true
	default:
		return nil
	}

	res := tx.Model(&bookRow{}).
		Where("id = ? AND available = ?", bookID, from).
		Update("available", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 && change == exchange.BookReserve {
		return storage.ErrBookUnavailable
	}
	return nil
}

func withExchangeDetails(db *gorm.DB) *gorm.DB {
	return db.Preload("Book").Preload("Requester").Preload("Provider")
}
