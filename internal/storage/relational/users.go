package relational

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/storage"
)

func (m *Manager) AuthenticateUser(ctx context.Context, username, password string) (bool, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return false, err
	}

	var row userRow
	err = db.Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, translate("authenticate user", err)
	}

	return m.hasher.Matches(password, row.PasswordHash), nil
}

func (m *Manager) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	var row userRow
	err = db.Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("get user", err)
	}

	user := row.toEntity()
	return &user, nil
}

func (m *Manager) RegisterUser(ctx context.Context, user *entities.User) error {
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}

	hash, err := m.hasher.Hash(user.Password)
	if err != nil {
		return err
	}

	row := userRow{
		Username:     user.Username,
		PasswordHash: hash,
		Email:        user.Email,
		FullName:     user.FullName,
		Address:      user.Address,
		RegisteredAt: time.Now().UTC(),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := checkUnique(tx, "username", user.Username, 0); err != nil {
			return err
		}
		if err := checkUnique(tx, "email", user.Email, 0); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return translate("register user", err)
	}

	user.ID = formatID(row.ID)
	user.RegisteredAt = row.RegisteredAt
	return nil
}

func (m *Manager) UpdateUser(ctx context.Context, user *entities.User) error {
	id, err := parseID(user.ID)
	if err != nil {
		return err
	}
	db, err := m.conn(ctx)
	if err != nil {
		return err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var row userRow
		if err := tx.First(&row, id).Error; err != nil {
			return err
		}
		if err := checkUnique(tx, "email", user.Email, id); err != nil {
			return err
		}
		return tx.Model(&row).Updates(map[string]any{
			"email":     user.Email,
			"full_name": user.FullName,
			"address":   user.Address,
		}).Error
	})
	return translate("update user", err)
}

// checkUnique fails with a ConstraintError when another user than exceptID
// already holds value in column.
func checkUnique(tx *gorm.DB, column, value string, exceptID uint) error {
	var count int64
	q := tx.Model(&userRow{}).Where(column+" = ?", value)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return &storage.ConstraintError{Field: column, Value: value}
	}
	return nil
}
