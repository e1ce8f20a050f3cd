package document

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mrlokans/bookexchange/internal/entities"
)

type bookCount struct {
	ID    primitive.ObjectID `bson:"_id"`
	Count int                `bson:"count"`
	Book  bookDoc            `bson:"book"`
}

type userCount struct {
	ID    primitive.ObjectID `bson:"_id"`
	Count int                `bson:"count"`
}

// GetMostExchangedBooks groups exchanges by book. Exchanges whose book was
// deleted are dropped by the lookup before the limit applies.
func (m *Manager) GetMostExchangedBooks(ctx context.Context, limit int) ([]entities.Book, error) {
	if limit <= 0 {
		return []entities.Book{}, nil
	}
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$book_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: booksCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "book"},
		}}},
		{{Key: "$unwind", Value: "$book"}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cur, err := db.Collection(exchangesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate("aggregate most exchanged books", err)
	}
	var counts []bookCount
	if err := cur.All(ctx, &counts); err != nil {
		return nil, translate("aggregate most exchanged books", err)
	}

	docs := make([]bookDoc, 0, len(counts))
	for _, c := range counts {
		docs = append(docs, c.Book)
	}
	books, err := joinOwners(ctx, db, docs)
	if err != nil {
		return nil, translate("aggregate most exchanged books", err)
	}
	for i := range books {
		books[i].ExchangeCount = counts[i].Count
	}
	return books, nil
}

// GetMostActiveUsers ranks users by requested plus provided exchanges.
// Users without activity fill the tail in identifier order.
func (m *Manager) GetMostActiveUsers(ctx context.Context, limit int) ([]entities.User, error) {
	if limit <= 0 {
		return []entities.User{}, nil
	}
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$project", Value: bson.D{
			{Key: "participants", Value: bson.A{"$requester_id", "$provider_id"}},
		}}},
		{{Key: "$unwind", Value: "$participants"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$participants"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cur, err := db.Collection(exchangesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate("aggregate user activity", err)
	}
	var counts []userCount
	if err := cur.All(ctx, &counts); err != nil {
		return nil, translate("aggregate user activity", err)
	}
	activity := make(map[primitive.ObjectID]int, len(counts))
	for _, c := range counts {
		activity[c.ID] = c.Count
	}

	cur, err = db.Collection(usersCollection).Find(ctx, bson.M{},
		options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetProjection(bson.M{"password": 0}))
	if err != nil {
		return nil, translate("load users", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("load users", err)
	}

	users := make([]entities.User, 0, len(docs))
	for i := range docs {
		user := docs[i].toEntity()
		user.ExchangeCount = activity[docs[i].ID]
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
	return m.count(ctx, exchangesCollection)
}

func (m *Manager) GetTotalBooks(ctx context.Context) (int64, error) {
	return m.count(ctx, booksCollection)
}

func (m *Manager) GetTotalUsers(ctx context.Context) (int64, error) {
	return m.count(ctx, usersCollection)
}

func (m *Manager) count(ctx context.Context, collection string) (int64, error) {
	db, err := m.database()
	if err != nil {
		return 0, err
	}
	n, err := db.Collection(collection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, translate("count "+collection, err)
	}
	return n, nil
}
