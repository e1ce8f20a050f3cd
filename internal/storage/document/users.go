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

func (m *Manager) AuthenticateUser(ctx context.Context, username, password string) (bool, error) {
	db, err := m.database()
	if err != nil {
		return false, err
	}

	var doc userDoc
	err = db.Collection(usersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, translate("authenticate user", err)
	}

	return m.hasher.Matches(password, doc.Password), nil
}

func (m *Manager) GetUserByUsername(ctx context.Context, username string) (*entities.User, error) {
	db, err := m.database()
	if err != nil {
		return nil, err
	}

	var doc userDoc
	err = db.Collection(usersCollection).FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("get user", err)
	}

	user := doc.toEntity()
	return &user, nil
}

func (m *Manager) RegisterUser(ctx context.Context, user *entities.User) error {
	db, err := m.database()
	if err != nil {
		return err
	}
	users := db.Collection(usersCollection)

	if err := checkUnique(ctx, users, "username", user.Username, primitive.NilObjectID); err != nil {
		return err
	}
	if err := checkUnique(ctx, users, "email", user.Email, primitive.NilObjectID); err != nil {
		return err
	}

	hash, err := m.hasher.Hash(user.Password)
	if err != nil {
		return err
	}

	doc := userDoc{
		Username:     user.Username,
		Password:     hash,
		Email:        user.Email,
		FullName:     user.FullName,
		Address:      user.Address,
		RegisteredAt: now(),
	}
	res, err := users.InsertOne(ctx, doc)
	if err != nil {
		return translate("register user", err)
	}

	user.ID = res.InsertedID.(primitive.ObjectID).Hex()
	user.RegisteredAt = doc.RegisteredAt
	return nil
}

func (m *Manager) UpdateUser(ctx context.Context, user *entities.User) error {
	id, err := parseID(user.ID)
	if err != nil {
		return err
	}
	db, err := m.database()
	if err != nil {
		return err
	}
	users := db.Collection(usersCollection)

	n, err := users.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return translate("update user", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	if err := checkUnique(ctx, users, "email", user.Email, id); err != nil {
		return err
	}

	res, err := users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"email":     user.Email,
		"full_name": user.FullName,
		"address":   user.Address,
	}})
	if err != nil {
		return translate("update user", err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// checkUnique fails with a ConstraintError when a user other than except
// already holds value in field. The unique indexes catch races.
func checkUnique(ctx context.Context, users *mongo.Collection, field, value string, except primitive.ObjectID) error {
	filter := bson.M{field: value}
	if !except.IsZero() {
		filter["_id"] = bson.M{"$ne": except}
	}

	n, err := users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return translate("check "+field, err)
	}
	if n > 0 {
		return &storage.ConstraintError{Field: field, Value: value}
	}
	return nil
}

// usernames resolves user IDs to usernames in one query.
func usernames(ctx context.Context, db *mongo.Database, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	names := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	cur, err := db.Collection(usersCollection).Find(ctx,
		bson.M{"_id": bson.M{"$in": uniqueIDs(ids)}},
		options.Find().SetProjection(bson.M{"username": 1}))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		names[d.ID] = d.Username
	}
	return names, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
