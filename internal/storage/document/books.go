package document

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/storage"
)

func (m *Manager) GetAllBooks(ctx context.Context) ([]entities.Book, error) {
	db, err := m.database()
	if err != nil {
		return nil, err
	}
	books, err := findBooks(ctx, db, bson.M{"available": true})
	if err != nil {
		return nil, translate("list available books", err)
	}
	return books, nil
}

func (m *Manager) GetBooksByUser(ctx context.Context, username string) ([]entities.Book, error) {
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	var owner userDoc
	err = db.Collection(usersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&owner)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []entities.Book{}, nil
	}
	if err != nil {
		return nil, translate("list user books", err)
	}

	books, err := findBooks(ctx, db, bson.M{"owner_id": owner.ID})
	if err != nil {
		return nil, translate("list user books", err)
	}
	return books, nil
}

func (m *Manager) GetBook(ctx context.Context, id string) (*entities.Book, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	books, err := findBooks(ctx, db, bson.M{"_id": oid})
	if err != nil {
		return nil, translate("get book", err)
	}
	if len(books) == 0 {
		return nil, nil
	}
	return &books[0], nil
}

func (m *Manager) AddBook(ctx context.Context, book *entities.Book) error {
	ownerID, err := parseID(book.OwnerID)
	if err != nil {
		return err
	}
	db, err := m.database()
	if err != nil {
		return err
	}

	var owner userDoc
	err = db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": ownerID}).Decode(&owner)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &storage.ConstraintError{Field: "owner_id", Value: book.OwnerID}
	}
	if err != nil {
		return translate("add book", err)
	}

	doc := bookDoc{
		Title:       book.Title,
		Author:      book.Author,
		ISBN:        book.ISBN,
		Description: book.Description,
		Condition:   book.Condition,
		OwnerID:     ownerID,
		Available:   true,
		AddedAt:     now(),
	}
	res, err := db.Collection(booksCollection).InsertOne(ctx, doc)
	if err != nil {
		return translate("add book", err)
	}

	book.ID = res.InsertedID.(primitive.ObjectID).Hex()
	book.Available = true
	book.AddedAt = doc.AddedAt
	book.OwnerName = owner.Username
	return nil
}

func (m *Manager) UpdateBook(ctx context.Context, book *entities.Book) error {
	oid, err := parseID(book.ID)
	if err != nil {
		return err
	}
	db, err := m.database()
	if err != nil {
		return err
	}

	// available is owned by the exchange lifecycle and is never $set here.
	var doc bookDoc
	err = db.Collection(booksCollection).FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":       book.Title,
		"author":      book.Author,
		"isbn":        book.ISBN,
		"description": book.Description,
		"condition":   book.Condition,
	}}, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	if err != nil {
		return translate("update book", err)
	}
	book.Available = doc.Available
	return nil
}

// DeleteBook removes the book document. Exchanges referencing it are kept
// and report an empty book title afterwards.
func (m *Manager) DeleteBook(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	db, err := m.database()
	if err != nil {
		return err
	}

	res, err := db.Collection(booksCollection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return translate("delete book", err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// findBooks loads books matching filter in identifier order and joins the
// owner's username.
func findBooks(ctx context.Context, db *mongo.Database, filter bson.M) ([]entities.Book, error) {
	cur, err := db.Collection(booksCollection).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []bookDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return joinOwners(ctx, db, docs)
}

func joinOwners(ctx context.Context, db *mongo.Database, docs []bookDoc) ([]entities.Book, error) {
	ownerIDs := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ownerIDs = append(ownerIDs, d.OwnerID)
	}
	names, err := usernames(ctx, db, ownerIDs)
	if err != nil {
		return nil, err
	}

	books := make([]entities.Book, 0, len(docs))
	for i := range docs {
		books = append(books, docs[i].toEntity(names[docs[i].OwnerID]))
	}
	return books, nil
}
