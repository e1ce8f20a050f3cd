package document

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mrlokans/bookexchange/internal/entities"
	"github.com/mrlokans/bookexchange/internal/storage"
)

const (
	usersCollection     = "users"
	booksCollection     = "books"
	exchangesCollection = "exchanges"
)

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Password     string             `bson:"password"`
	Email        string             `bson:"email"`
	FullName     string             `bson:"full_name"`
	Address      string             `bson:"address"`
	RegisteredAt time.Time          `bson:"registered_at"`
}

type bookDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Author      string             `bson:"author"`
	ISBN        string             `bson:"isbn,omitempty"`
	Description string             `bson:"description,omitempty"`
	Condition   string             `bson:"condition"`
	OwnerID     primitive.ObjectID `bson:"owner_id"`
	Available   bool               `bson:"available"`
	AddedAt     time.Time          `bson:"added_at"`
}

type exchangeDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	RequesterID primitive.ObjectID `bson:"requester_id"`
	ProviderID  primitive.ObjectID `bson:"provider_id"`
	BookID      primitive.ObjectID `bson:"book_id"`
	Status      string             `bson:"status"`
	RequestedAt time.Time          `bson:"requested_at"`
	CompletedAt *time.Time         `bson:"completed_at,omitempty"`
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, storage.ErrInvalidID
	}
	return oid, nil
}

// now is truncated to BSON datetime precision so values handed back to the
// caller match what a later read returns.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (d *userDoc) toEntity() entities.User {
	return entities.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		Address:      d.Address,
		RegisteredAt: d.RegisteredAt,
	}
}

func (d *bookDoc) toEntity(ownerName string) entities.Book {
	return entities.Book{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Author:      d.Author,
		ISBN:        d.ISBN,
		Description: d.Description,
		Condition:   d.Condition,
		OwnerID:     d.OwnerID.Hex(),
		OwnerName:   ownerName,
		Available:   d.Available,
		AddedAt:     d.AddedAt,
	}
}

func (d *exchangeDoc) toEntity() entities.Exchange {
	return entities.Exchange{
		ID:          d.ID.Hex(),
		RequesterID: d.RequesterID.Hex(),
		ProviderID:  d.ProviderID.Hex(),
		BookID:      d.BookID.Hex(),
		Status:      entities.ExchangeStatus(d.Status),
		RequestedAt: d.RequestedAt,
		CompletedAt: d.CompletedAt,
	}
}
