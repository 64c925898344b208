package repositories

import (
	"context"
	"fmt"
	"strings"

	"taskboard-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepo reads the users collection written by the users service.
type UserRepo struct {
	users *mongo.Collection
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{users: db.Collection(usersCollection)}
}

func (r *UserRepo) Lookup(ctx context.Context, userID string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, models.NotFoundError("user %s not found", userID)
	}

	var doc struct {
		Username string `bson:"username"`
		Name     string `bson:"name"`
		LastName string `bson:"lastName"`
	}
	err = r.users.FindOne(ctx,
		bson.M{"_id": oid, "isActive": bson.M{"$ne": false}},
		options.FindOne().SetProjection(bson.M{"username": 1, "name": 1, "lastName": 1}),
	).Decode(&doc)
	if err != nil {
		if isNoDocuments(err) {
			return nil, models.NotFoundError("user %s not found", userID)
		}
		return nil, fmt.Errorf("lookup user %s: %w", userID, err)
	}

	return &models.User{
		ID:          userID,
		Username:    doc.Username,
		DisplayName: strings.TrimSpace(doc.Name + " " + doc.LastName),
	}, nil
}
