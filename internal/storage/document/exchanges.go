package document

import (
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/exchange"
	"github.com/mrlokans/bookexchange/internal/storage"
)

func (m *Manager) GetExchangesByUser(ctx context.Context, username string) ([]entities.Exchange, error) {
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	var user userDoc
	err = db.Collection(usersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []entities.Exchange{}, nil
	}
	if err != nil {
		return nil, translate("list exchanges", err)
	}

	filter := bson.M{"$or": bson.A{
		bson.M{"requester_id": user.ID},
		bson.M{"provider_id": user.ID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "requested_at", Value: 1}, {Key: "_id", Value: 1}})

	exchanges, err := findExchanges(ctx, db, filter, opts)
	if err != nil {
		return nil, translate("list exchanges", err)
	}
	return exchanges, nil
}

func (m *Manager) GetExchange(ctx context.Context, id string) (*entities.Exchange, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	exchanges, err := findExchanges(ctx, db, bson.M{"_id": oid}, options.Find())
	if err != nil {
		return nil, translate("get exchange", err)
	}
	if len(exchanges) == 0 {
		return nil, nil
	}
	return &exchanges[0], nil
}

// CreateExchange claims the book with a conditional update and then inserts
// the exchange. If the insert fails the claim is released again.
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
	db, err := m.database()
	if err != nil {
		return err
	}

	var book bookDoc
	if err := db.Collection(booksCollection).FindOne(ctx, bson.M{"_id": bookID}).Decode(&book); err != nil {
		return translate("create exchange", err)
	}
	if book.OwnerID != providerID {
		return &storage.ConstraintError{Field: "provider_id", Value: e.ProviderID}
	}

	n, err := db.Collection(usersCollection).CountDocuments(ctx, bson.M{"_id": requesterID}, options.Count().SetLimit(1))
	if err != nil {
		return translate("create exchange", err)
	}
	if n == 0 {
		return &storage.ConstraintError{Field: "requester_id", Value: e.RequesterID}
	}

	effect := exchange.PlanCreate()
	if err := applyBookChange(ctx, db, bookID, effect.Book); err != nil {
		return translate("reserve book", err)
	}

	doc := exchangeDoc{
		RequesterID: requesterID,
		ProviderID:  providerID,
		BookID:      bookID,
		Status:      string(effect.Status),
		RequestedAt: now(),
	}
	res, err := db.Collection(exchangesCollection).InsertOne(ctx, doc)
	if err != nil {
		if undoErr := applyBookChange(context.WithoutCancel(ctx), db, bookID, exchange.BookRelease); undoErr != nil {
			log.Printf("Failed to release book %s after failed exchange insert: %v", e.BookID, undoErr)
		} else {
			log.Printf("Released book %s after failed exchange insert", e.BookID)
		}
		return translate("create exchange", err)
	}

	e.ID = res.InsertedID.(primitive.ObjectID).Hex()
	e.Status = effect.Status
	e.RequestedAt = doc.RequestedAt
	e.CompletedAt = nil
	return nil
}

// UpdateExchangeStatus moves the exchange with a conditional update on its
// current status, then applies the book effect. If the book update fails the
// status is put back.
func (m *Manager) UpdateExchangeStatus(ctx context.Context, id string, status entities.ExchangeStatus) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	db, err := m.database()
	if err != nil {
		return err
	}
	exchanges := db.Collection(exchangesCollection)

	var doc exchangeDoc
	if err := exchanges.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return translate("update exchange status", err)
	}

	from := entities.ExchangeStatus(doc.Status)
	effect, err := exchange.Plan(from, status)
	if err != nil {
		return err
	}

	set := bson.M{"status": string(effect.Status)}
	if effect.SetCompletion {
		set["completed_at"] = now()
	}
	res, err := exchanges.UpdateOne(ctx, bson.M{"_id": oid, "status": doc.Status}, bson.M{"$set": set})
	if err != nil {
		return translate("update exchange status", err)
	}
	if res.MatchedCount == 0 {
		// Someone else moved the exchange since we read it.
		var current exchangeDoc
		if err := exchanges.FindOne(ctx, bson.M{"_id": oid}).Decode(&current); err != nil {
			return translate("update exchange status", err)
		}
		return &exchange.TransitionError{From: entities.ExchangeStatus(current.Status), To: status}
	}

	if err := applyBookChange(ctx, db, doc.BookID, effect.Book); err != nil {
		undo := bson.M{"$set": bson.M{"status": doc.Status}}
		if effect.SetCompletion {
			undo["$unset"] = bson.M{"completed_at": ""}
		}
		_, undoErr := exchanges.UpdateOne(context.WithoutCancel(ctx), bson.M{"_id": oid, "status": string(effect.Status)}, undo)
		if undoErr != nil {
			log.Printf("Failed to restore exchange %s to %s: %v", id, from, undoErr)
		} else {
			log.Printf("Restored exchange %s to %s after failed book update", id, from)
		}
		return translate("update book availability", err)
	}
	return nil
}

// applyBookChange flips the availability flag with a guard on its current
// value. Reserving an already reserved book fails with ErrBookUnavailable.
func applyBookChange(ctx context.Context, db *mongo.Database, bookID primitive.ObjectID, change exchange.BookChange) error {
	var from, to bool
	switch change {
	case exchange.BookReserve:
		from, to = true, false
	case exchange.BookRelease:
		from, to = false, true
	default:
		return nil
	}

	res, err := db.Collection(booksCollection).UpdateOne(ctx,
		bson.M{"_id": bookID, "available": from},
		bson.M{"$set": bson.M{"available": to}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 && change == exchange.BookReserve {
		return storage.ErrBookUnavailable
	}
	return nil
}

// findExchanges loads exchanges and joins book titles and usernames.
func findExchanges(ctx context.Context, db *mongo.Database, filter bson.M, opts *options.FindOptions) ([]entities.Exchange, error) {
	cur, err := db.Collection(exchangesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []exchangeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return []entities.Exchange{}, nil
	}

	bookIDs := make([]primitive.ObjectID, 0, len(docs))
	userIDs := make([]primitive.ObjectID, 0, 2*len(docs))
	for _, d := range docs {
		bookIDs = append(bookIDs, d.BookID)
		userIDs = append(userIDs, d.RequesterID, d.ProviderID)
	}

	titles, err := bookTitles(ctx, db, bookIDs)
	if err != nil {
		return nil, err
	}
	names, err := usernames(ctx, db, userIDs)
	if err != nil {
		return nil, err
	}

	exchanges := make([]entities.Exchange, 0, len(docs))
	for i := range docs {
		e := docs[i].toEntity()
		e.BookTitle = titles[docs[i].BookID]
		e.RequesterName = names[docs[i].RequesterID]
		e.ProviderName = names[docs[i].ProviderID]
		exchanges = append(exchanges, e)
	}
	return exchanges, nil
}

func bookTitles(ctx context.Context, db *mongo.Database, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	cur, err := db.Collection(booksCollection).Find(ctx,
		bson.M{"_id": bson.M{"$in": uniqueIDs(ids)}},
		options.Find().SetProjection(bson.M{"title": 1}))
	if err != nil {
		return nil, err
	}
	var docs []bookDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	titles := make(map[primitive.ObjectID]string, len(docs))
	for _, d := range docs {
		titles[d.ID] = d.Title
	}
	return titles, nil
}
