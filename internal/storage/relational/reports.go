package relational

import (
	"context"
	"sort"

	"github.com/mrlokans/bookexchange/internal/entities"
)

type idCount struct {
	ID    uint
	Total int
}

// GetMostExchangedBooks counts exchanges of any status per book. Books that
// were never requested are left out.
func (m *Manager) GetMostExchangedBooks(ctx context.Context, limit int) ([]entities.Book, error) {
	if limit <= 0 {
		return []entities.Book{}, nil
	}
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	var counts []idCount
	err = db.Model(&exchangeRow{}).
		Select("book_id AS id, COUNT(*) AS total").
		Group("book_id").
		Order("total DESC, book_id ASC").
		Limit(limit).
		Scan(&counts).Error
	if err != nil {
		return nil, translate("count exchanges per book", err)
	}
	if len(counts) == 0 {
		return []entities.Book{}, nil
	}

	ids := make([]uint, 0, len(counts))
	for _, c := range counts {
		ids = append(ids, c.ID)
	}

	var rows []bookRow
	if err := db.Joins("Owner").Where("books.id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, translate("load most exchanged books", err)
	}
	byID := make(map[uint]*bookRow, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}

	books := make([]entities.Book, 0, len(counts))
	for _, c := range counts {
		row, ok := byID[c.ID]
		if !ok {
			continue
		}
		book := row.toEntity()
		book.ExchangeCount = c.Total
		books = append(books, book)
	}
	return books, nil
}

// GetMostActiveUsers ranks users by exchanges they requested plus exchanges
// they provided. Users without activity fill the tail in identifier order.
func (m *Manager) GetMostActiveUsers(ctx context.Context, limit int) ([]entities.User, error) {
	if limit <= 0 {
		return []entities.User{}, nil
	}
	db, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}

	var counts []idCount
	err = db.Raw(`SELECT activity.user_id AS id, COUNT(*) AS total FROM (
		SELECT requester_id AS user_id FROM exchanges
		UNION ALL
		SELECT provider_id AS user_id FROM exchanges
	) activity GROUP BY activity.user_id`).Scan(&counts).Error
	if err != nil {
		return nil, translate("count user activity", err)
	}
	activity := make(map[uint]int, len(counts))
	for _, c := range counts {
		activity[c.ID] = c.Total
	}

	var rows []userRow
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, translate("load users", err)
	}

	users := make([]entities.User, 0, len(rows))
	for i := range rows {
		user := rows[i].toEntity()
		user.ExchangeCount = activity[rows[i].ID]
		users = append(users, user)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].ExchangeCount > users[j].ExchangeCount
	})

	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *Manager) GetTotalExchanges(ctx context.Context) (int64, error) {
	return m.count(ctx, &exchangeRow{}, "count exchanges")
}

func (m *Manager) GetTotalBooks(ctx context.Context) (int64, error) {
	return m.count(ctx, &bookRow{}, "count books")
}

func (m *Manager) GetTotalUsers(ctx context.Context) (int64, error) {
	return m.count(ctx, &userRow{}, "count users")
}

func (m *Manager) count(ctx context.Context, model any, op string) (int64, error) {
	db, err := m.conn(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		return 0, translate(op, err)
	}
	return n, nil
}
