package repositories

import (
	"context"
	"fmt"

	"taskboard-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RequestRepo struct {
	requests *mongo.Collection
}

func NewRequestRepo(db *mongo.Database) *RequestRepo {
	return &RequestRepo{requests: db.Collection(requestsCollection)}
}

func (r *RequestRepo) Add(ctx context.Context, userID string, postID primitive.ObjectID) (bool, error) {
	add := func() (*mongo.UpdateResult, error) {
		return r.requests.UpdateOne(ctx,
			bson.M{"userId": userID},
			bson.M{"$addToSet": bson.M{"postIds": postID}},
			options.Update().SetUpsert(true),
		)
	}

	res, err := add()
	if mongo.IsDuplicateKeyError(err) {
		res, err = add()
	}
	if err != nil {
		return false, fmt.Errorf("queue request for %s: %w", userID, err)
	}
	return res.ModifiedCount == 1 || res.UpsertedCount == 1, nil
}

func (r *RequestRepo) Pending(ctx context.Context, userID string) ([]primitive.ObjectID, error) {
	var queue models.Request
	if err := r.requests.FindOne(ctx, bson.M{"userId": userID}).Decode(&queue); err != nil {
		if isNoDocuments(err) {
			return []primitive.ObjectID{}, nil
		}
		return nil, fmt.Errorf("load requests for %s: %w", userID, err)
	}
	if queue.PostIDs == nil {
		return []primitive.ObjectID{}, nil
	}
	return queue.PostIDs, nil
}

func (r *RequestRepo) Remove(ctx context.Context, userID string, postID primitive.ObjectID) (bool, error) {
	res, err := r.requests.UpdateOne(ctx,
		bson.M{"userId": userID, "postIds": postID},
		bson.M{"$pull": bson.M{"postIds": postID}},
	)
	if err != nil {
		return false, fmt.Errorf("remove request: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *RequestRepo) RemovePost(ctx context.Context, postID primitive.ObjectID) (int64, error) {
	res, err := r.requests.UpdateMany(ctx,
		bson.M{"postIds": postID},
		bson.M{"$pull": bson.M{"postIds": postID}},
	)
	if err != nil {
		return 0, fmt.Errorf("drop requests for post %s: %w", postID.Hex(), err)
	}
	return res.ModifiedCount, nil
}
